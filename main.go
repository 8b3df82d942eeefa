package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/sirupsen/logrus"

	"github.com/screepers/steamless-client/internal/archive"
	"github.com/screepers/steamless-client/internal/backend"
	"github.com/screepers/steamless-client/internal/config"
	"github.com/screepers/steamless-client/internal/logging"
	"github.com/screepers/steamless-client/internal/metrics"
	"github.com/screepers/steamless-client/internal/proxy"
	"github.com/screepers/steamless-client/internal/server"
	"github.com/screepers/steamless-client/internal/server/routes"
	"github.com/screepers/steamless-client/internal/version"
	"github.com/screepers/steamless-client/web"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	// overrides 只包含命令行显式传入的字段，优先级高于配置文件与环境变量。
	overrides config.Overrides
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath, opts.overrides)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer logging.Close(logger)

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["package"] = cfg.Client.Package
		fields["client_module"] = cfg.Client.ClientModule
		fields["result"] = "ok"
		logger.WithFields(fields).Info("config_ok")
		return 0
	}

	// 启动顺序：配置 → 归档索引 → 客户端绑定 → Fiber app → 前端 http.Server。
	index, err := archive.Load(cfg.Client.Package)
	if err != nil {
		logger.WithFields(logging.BaseFields("startup", opts.configPath)).
			WithError(err).Error("package_unavailable")
		fmt.Fprintf(stdErr, "无法读取客户端包: %v\n", err)
		return 1
	}

	binding, err := server.NewClientBinding(cfg, index)
	if err != nil {
		fmt.Fprintf(stdErr, "构建客户端绑定失败: %v\n", err)
		return 1
	}

	srv, err := buildHTTPServer(cfg, binding, index, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务初始化失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["package"] = binding.Package
	fields["entries"] = binding.Entries
	fields["module_key"] = binding.ModuleKey
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("startup")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, srv, binding, logger)
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	parser := argparse.NewParser(version.Name, "Run the game client in a browser, served from the Steam package")

	configFlag := parser.String("", "config", &argparse.Options{Help: "配置文件路径（可被 STEAMLESS_CONFIG 覆盖）"})
	checkOnly := parser.Flag("", "check-config", &argparse.Options{Help: "仅校验配置后退出"})
	showVer := parser.Flag("", "version", &argparse.Options{Help: "显示版本信息"})

	pkg := parser.String("", "package", &argparse.Options{Help: "package.nw 路径"})
	host := parser.String("", "host", &argparse.Options{Help: "监听地址（默认 localhost）"})
	port := parser.Int("", "port", &argparse.Options{Help: "监听端口（默认 8080）"})
	backendFlag := parser.String("", "backend", &argparse.Options{Help: "固定后端地址，所有请求都转发到该服务器"})
	internal := parser.String("", "internal_backend", &argparse.Options{Help: "服务端访问后端时使用的内部地址"})
	serverList := parser.String("", "server_list", &argparse.Options{Help: "自定义服务器列表文件（JSON/YAML）"})
	beautify := parser.Flag("", "beautify", &argparse.Options{Help: "重新排版客户端 JS"})
	debug := parser.Flag("", "debug", &argparse.Options{Help: "输出调试日志"})
	module := parser.String("", "client_module", &argparse.Options{Help: "客户端模块（steam / classic）"})

	if err := parser.Parse(append([]string{version.Name}, args...)); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	overrides := config.Overrides{}
	setString := func(key, value string) {
		if value != "" {
			overrides[key] = value
		}
	}
	setString("Package", *pkg)
	setString("ListenHost", *host)
	setString("Backend", *backendFlag)
	setString("InternalBackend", *internal)
	setString("ServerList", *serverList)
	setString("ClientModule", *module)
	if *port != 0 {
		overrides["ListenPort"] = *port
	}
	if *beautify {
		overrides["Beautify"] = true
	}
	if *debug {
		overrides["Debug"] = true
	}

	path := os.Getenv("STEAMLESS_CONFIG")
	if *configFlag != "" {
		path = *configFlag
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   *checkOnly,
		showVersion: *showVer,
		overrides:   overrides,
	}, nil
}

func buildHTTPServer(cfg *config.Config, binding *server.ClientBinding, index *archive.Index, logger *logrus.Logger) (*http.Server, error) {
	m := metrics.New()
	httpClient := server.NewUpstreamClient(cfg)
	forwarder := proxy.NewForwarder(proxy.NewHandler(httpClient, logger, m), logger)

	landing, err := server.NewLanding(web.FS, binding.ServerList, binding.DisplayHost, binding.ListenPort)
	if err != nil {
		return nil, err
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:  logger,
		Binding: binding,
		Archive: index,
		Proxy:   forwarder,
		Prober:  backend.NewProber(httpClient, logger),
		Metrics: m,
		Landing: landing,
		Static:  web.FS,
	})
	if err != nil {
		return nil, err
	}
	routes.RegisterModuleRoutes(app, binding)
	routes.RegisterMetricsRoute(app, m)

	ws := proxy.NewWebSocketProxy(proxy.WebSocketOptions{
		Selector:        backend.NewSelector(binding.FixedBackend),
		InternalBackend: binding.InternalBackend,
		ModuleKey:       binding.ModuleKey,
		Logger:          logger,
		Metrics:         m,
	})
	return server.NewHTTPServer(server.FrontOptions{
		Addr:      cfg.Global.ListenAddress(),
		App:       app,
		WebSocket: ws,
	})
}

// serve 监听并阻塞到收到信号；监听失败按错误码表输出描述并返回 1。
func serve(ctx context.Context, srv *http.Server, binding *server.ClientBinding, logger *logrus.Logger) int {
	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		code, description := proxy.DescribeError(err)
		logger.WithFields(logrus.Fields{
			"action":     "listen",
			"address":    srv.Addr,
			"error_code": code,
		}).Error(description)
		fmt.Fprintf(stdErr, "%s: %s %s\n", code, description, srv.Addr)
		return 1
	}

	fields := logging.ServerFields(srv.Addr, binding.FixedBackend, binding.ModuleKey, binding.FixedBackend != "")
	fields["action"] = "listen"
	fields["url"] = fmt.Sprintf("http://%s/", binding.FallbackHost())
	logger.WithFields(fields).Info("listen")

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.WithFields(logrus.Fields{"action": "shutdown"}).Info("shutdown")
		_ = srv.Close()
		<-errc
		return 0
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return 0
		}
		logger.WithFields(logrus.Fields{"action": "serve"}).WithError(err).Error("serve_failed")
		return 1
	}
}
