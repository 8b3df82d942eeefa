package main

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("STEAMLESS_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsOverrides(t *testing.T) {
	opts, err := parseCLIFlags([]string{
		"--package", "/games/package.nw",
		"--port", "9000",
		"--backend", "http://localhost:21025",
		"--beautify",
	})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.overrides["Package"] != "/games/package.nw" {
		t.Fatalf("package override missing: %v", opts.overrides)
	}
	if opts.overrides["ListenPort"] != 9000 {
		t.Fatalf("port override missing: %v", opts.overrides)
	}
	if opts.overrides["Backend"] != "http://localhost:21025" {
		t.Fatalf("backend override missing: %v", opts.overrides)
	}
	if opts.overrides["Beautify"] != true {
		t.Fatalf("beautify override missing: %v", opts.overrides)
	}
	if _, ok := opts.overrides["ListenHost"]; ok {
		t.Fatalf("unset flags must not override config: %v", opts.overrides)
	}
	if _, ok := opts.overrides["Debug"]; ok {
		t.Fatalf("unset debug flag must not override config: %v", opts.overrides)
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	captureCLI(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	captureCLI(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunFailsWhenPackageMissing(t *testing.T) {
	output := captureCLI(t)
	code := run(cliOptions{overrides: map[string]any{"Package": "/nonexistent/package.nw"}})
	if code != 1 {
		t.Fatalf("缺少客户端包应返回 1，得到 %d", code)
	}
	if !strings.Contains(output.err.String(), "package.nw") {
		t.Fatalf("错误输出应包含包路径: %s", output.err.String())
	}
}

func TestRunVersionOutput(t *testing.T) {
	output := captureCLI(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(output.out.String(), "steamless-client") {
		t.Fatalf("version 输出应包含 steamless-client 标识")
	}
}

func TestServeReportsAddressInUse(t *testing.T) {
	output := captureCLI(t)
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer occupied.Close()

	srv := &http.Server{Addr: occupied.Addr().String(), Handler: http.NotFoundHandler()}
	code := serve(context.Background(), srv, testBinding(), quietLogger())
	if code != 1 {
		t.Fatalf("端口占用应返回 1，得到 %d", code)
	}
	if !strings.Contains(output.err.String(), "EADDRINUSE") {
		t.Fatalf("错误输出应包含 EADDRINUSE: %s", output.err.String())
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	if code := serve(ctx, srv, testBinding(), quietLogger()); code != 0 {
		t.Fatalf("收到信号后应返回 0，得到 %d", code)
	}
}
