package proxy

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/screepers/steamless-client/internal/backend"
	"github.com/screepers/steamless-client/internal/logging"
	"github.com/screepers/steamless-client/internal/metrics"
	"github.com/screepers/steamless-client/internal/server"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to complete the backend handshake.
	handshakeTimeout = 30 * time.Second
)

// 握手相关的头由 gorilla 自行生成，不能透传。
var handshakeHeaders = map[string]struct{}{
	"Sec-Websocket-Key":        {},
	"Sec-Websocket-Version":    {},
	"Sec-Websocket-Extensions": {},
	"Sec-Websocket-Protocol":   {},
	"Host":                     {},
}

// WebSocketOptions 描述 WebSocket 代理的依赖。
type WebSocketOptions struct {
	Selector        *backend.Selector
	InternalBackend string
	ModuleKey       string
	Logger          *logrus.Logger
	Metrics         *metrics.Metrics
}

// WebSocketProxy 是前端 net/http 服务上处理 Upgrade 请求的 handler，
// 与后端建立连接后双向转发帧。
type WebSocketProxy struct {
	selector  *backend.Selector
	internal  string
	moduleKey string
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	dialer    websocket.Dialer
	upgrader  websocket.Upgrader
}

// NewWebSocketProxy 创建 WebSocket 代理；Selector 为空时使用路径内嵌模式。
func NewWebSocketProxy(opts WebSocketOptions) *WebSocketProxy {
	selector := opts.Selector
	if selector == nil {
		selector = backend.NewSelector("")
	}
	return &WebSocketProxy{
		selector:  selector,
		internal:  opts.InternalBackend,
		moduleKey: opts.ModuleKey,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP 实现 http.Handler。
func (p *WebSocketProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	desc, ok := p.selector.Extract(r.RequestURI)
	if !ok || !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		closeConnection(w)
		return
	}
	target, err := backend.Target(desc.Backend, p.internal)
	if err != nil {
		p.logFailure(desc, "", err)
		closeConnection(w)
		return
	}

	backendURL := websocketURL(target, desc.Endpoint)
	header := forwardHeaders(r.Header)
	// change origin
	header.Set("Host", target.Host)

	dialer := p.dialer
	dialer.Subprotocols = websocket.Subprotocols(r)
	backendConn, resp, err := dialer.DialContext(r.Context(), backendURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		p.logFailure(desc, backendURL, err)
		closeConnection(w)
		return
	}

	upgradeHeader := http.Header{}
	if proto := backendConn.Subprotocol(); proto != "" {
		upgradeHeader.Set("Sec-Websocket-Protocol", proto)
	}
	if resp != nil {
		for _, cookie := range resp.Header.Values("Set-Cookie") {
			upgradeHeader.Add("Set-Cookie", cookie)
		}
	}
	clientConn, err := p.upgrader.Upgrade(w, r, upgradeHeader)
	if err != nil {
		// Upgrade 已经向客户端写回了错误响应。
		backendConn.Close()
		p.logFailure(desc, backendURL, err)
		return
	}

	p.relay(desc, backendURL, clientConn, backendConn)
}

// relay 双向转发直到任意一侧结束，然后关闭两端。
func (p *WebSocketProxy) relay(desc backend.Descriptor, backendURL string, clientConn, backendConn *websocket.Conn) {
	sessionID := uuid.NewString()
	started := time.Now()
	done := p.metrics.WebSocketOpened()
	defer done()

	errc := make(chan error, 2)
	go p.pump(backendConn, clientConn, "upstream", errc)
	go p.pump(clientConn, backendConn, "downstream", errc)

	first := <-errc
	clientConn.Close()
	backendConn.Close()
	<-errc

	if p.logger == nil {
		return
	}
	fields := logging.RequestFields(desc.Backend, desc.Endpoint, p.moduleKey, "")
	fields["action"] = "websocket"
	fields["session_id"] = sessionID
	fields["upstream"] = backendURL
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	var closeErr *websocket.CloseError
	if errors.As(first, &closeErr) {
		fields["close_code"] = closeErr.Code
	}
	p.logger.WithFields(fields).Info("websocket_closed")
}

// pump 从 src 读取消息写入 dst，保持消息类型与内容；收到关闭帧时转发给对端。
func (p *WebSocketProxy) pump(dst, src *websocket.Conn, direction string, errc chan<- error) {
	for {
		msgType, payload, err := src.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
				msg := websocket.FormatCloseMessage(closeErr.Code, closeErr.Text)
				_ = dst.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			}
			errc <- err
			return
		}
		dst.SetWriteDeadline(time.Now().Add(writeWait))
		if err := dst.WriteMessage(msgType, payload); err != nil {
			errc <- err
			return
		}
		p.metrics.WebSocketMessage(direction)
	}
}

func (p *WebSocketProxy) logFailure(desc backend.Descriptor, backendURL string, err error) {
	code, description := DescribeError(err)
	p.metrics.ProxyError(code)
	if p.logger == nil {
		return
	}
	fields := logging.RequestFields(desc.Backend, desc.Endpoint, p.moduleKey, "")
	fields["action"] = "websocket"
	fields["upstream"] = backendURL
	fields["error"] = err.Error()
	fields["error_code"] = code
	fields["error_description"] = description
	p.logger.WithFields(fields).Error("websocket_failed")
}

// websocketURL 把 http(s) origin 换成 ws(s) 并拼接 endpoint。
func websocketURL(target *url.URL, endpoint string) string {
	u := *target
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return strings.TrimRight(u.String(), "/") + endpoint
}

// forwardHeaders 复制客户端的非握手、非 hop-by-hop 头。
func forwardHeaders(src http.Header) http.Header {
	dst := http.Header{}
	for key, values := range src {
		canonical := http.CanonicalHeaderKey(key)
		if _, skip := handshakeHeaders[canonical]; skip || server.IsHopByHopHeader(canonical) {
			continue
		}
		for _, value := range values {
			dst.Add(canonical, value)
		}
	}
	return dst
}

// closeConnection 直接关闭底层连接，不写任何响应。
func closeConnection(w http.ResponseWriter) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	conn, _, err := hijacker.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}
