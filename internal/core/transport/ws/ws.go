// Package ws 实现 WebSocket 传输
//
// 服务端在 /ansible 路径上接受升级；每条消息是一个二进制帧，帧体为
// JSON {address, content}。出站连接按对端地址复用。
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/internal/core/transport/frame"
	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("transport/ws")

const (
	// Scheme 协议名
	Scheme = "ws"

	// Path 升级路径
	Path = "/ansible"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
	closeGrace        = time.Second
)

// Transport WebSocket 传输
type Transport struct {
	cfg      base.Config
	dialer   *websocket.Dialer
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	server    *http.Server
	advertise string
	inbound   map[*websocket.Conn]struct{}
	outbound  map[string]*outConn

	wg     sync.WaitGroup
	closed atomic.Bool
}

// outConn 复用的出站连接，gorilla 连接不支持并发写
type outConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

var _ interfaces.Transport = (*Transport)(nil)

// New 创建 WebSocket 传输
func New(cfg base.Config) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		cfg:      cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: cfg.SendTimeout},
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		ctx:      ctx,
		cancel:   cancel,
		inbound:  make(map[*websocket.Conn]struct{}),
		outbound: make(map[string]*outConn),
	}
}

// Scheme 返回协议名
func (t *Transport) Scheme() string {
	return Scheme
}

// Advertise 返回通告地址
func (t *Transport) Advertise() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.advertise
}

// ============================================================================
//                              发送
// ============================================================================

// Send 异步写入一个二进制帧
func (t *Transport) Send(msg *types.Message) {
	if t.closed.Load() {
		msg.Failed(base.ErrClosed)
		return
	}
	target, err := base.ParseTarget(Scheme, msg.Address)
	if err != nil {
		msg.Failed(err)
		return
	}
	data, err := frame.Marshal(frame.FromMessage(msg), t.cfg.MaxMessageSize)
	if err != nil {
		msg.Failed(err)
		return
	}

	t.mu.Lock()
	if t.closed.Load() {
		t.mu.Unlock()
		msg.Failed(base.ErrClosed)
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		err := t.write(target.Base, data)
		if err != nil {
			log.Debug("发送失败", "peer", target.Base, "error", err)
		}
		base.Complete(msg, err)
	}()
}

func (t *Transport) write(url string, data []byte) error {
	ctx, cancel := t.sendContext()
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		out, reused, err := t.connect(ctx, url)
		if err != nil {
			return err
		}

		out.mu.Lock()
		if deadline, ok := ctx.Deadline(); ok {
			_ = out.conn.SetWriteDeadline(deadline)
		}
		err = out.conn.WriteMessage(websocket.BinaryMessage, data)
		out.mu.Unlock()

		if err == nil {
			return nil
		}
		t.drop(url, out)
		if !reused {
			return err
		}
		log.Debug("复用连接写入失败，重新建连", "peer", url, "error", err)
	}
	return fmt.Errorf("write to %s: %w", url, net.ErrClosed)
}

func (t *Transport) sendContext() (context.Context, context.CancelFunc) {
	if t.cfg.SendTimeout > 0 {
		return context.WithTimeout(t.ctx, t.cfg.SendTimeout)
	}
	return context.WithCancel(t.ctx)
}

func (t *Transport) connect(ctx context.Context, url string) (*outConn, bool, error) {
	t.mu.Lock()
	if out, ok := t.outbound[url]; ok {
		t.mu.Unlock()
		return out, true, nil
	}
	t.mu.Unlock()

	var conn *websocket.Conn
	err := base.Retry(ctx, t.cfg.DialRetries, func() error {
		c, resp, err := t.dialer.DialContext(ctx, url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("dial %s: %w", url, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		_ = conn.Close()
		return nil, false, base.ErrClosed
	}
	if out, ok := t.outbound[url]; ok {
		_ = conn.Close()
		return out, true, nil
	}
	out := &outConn{conn: conn}
	t.outbound[url] = out
	t.wg.Add(1)
	go t.drain(url, out)
	return out, false, nil
}

// drain 读取出站连接上的控制帧，连接断开时移出连接池
func (t *Transport) drain(url string, out *outConn) {
	defer t.wg.Done()
	for {
		if _, _, err := out.conn.NextReader(); err != nil {
			t.drop(url, out)
			return
		}
	}
}

func (t *Transport) drop(url string, out *outConn) {
	t.mu.Lock()
	if t.outbound[url] == out {
		delete(t.outbound, url)
	}
	t.mu.Unlock()
	_ = out.conn.Close()
}

// ============================================================================
//                              服务端
// ============================================================================

// Listen 启动升级服务
func (t *Transport) Listen(ctx context.Context, handler interfaces.InboundHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return base.ErrClosed
	}
	if t.server != nil {
		return base.ErrAlreadyListening
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", t.cfg.Listen)
	if err != nil {
		return fmt.Errorf("ws listen %s: %w", t.cfg.Listen, err)
	}

	r := chi.NewRouter()
	r.Get(Path, t.accept(handler))
	t.server = &http.Server{Handler: r, ReadHeaderTimeout: readHeaderTimeout}
	t.advertise = base.AdvertiseAddr(Scheme, t.cfg.Advertise, ln.Addr(), Path)

	t.wg.Add(1)
	go func(srv *http.Server) {
		defer t.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("WebSocket 服务退出", "error", err)
		}
	}(t.server)

	log.Info("WebSocket 传输开始监听", "addr", ln.Addr().String(), "advertise", t.advertise)
	return nil
}

func (t *Transport) accept(handler interfaces.InboundHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug("升级失败", "remote", r.RemoteAddr, "error", err)
			return
		}
		if t.cfg.MaxMessageSize > 0 {
			conn.SetReadLimit(int64(t.cfg.MaxMessageSize))
		}

		t.mu.Lock()
		if t.closed.Load() {
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.inbound[conn] = struct{}{}
		t.mu.Unlock()

		t.serveConn(conn, handler)
	}
}

func (t *Transport) serveConn(conn *websocket.Conn, handler interfaces.InboundHandler) {
	defer func() {
		t.mu.Lock()
		delete(t.inbound, conn)
		t.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !t.closed.Load() {
				log.Debug("入站连接结束", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}
		if kind != websocket.BinaryMessage && kind != websocket.TextMessage {
			continue
		}

		f, err := frame.Unmarshal(data, t.cfg.MaxMessageSize)
		if err != nil {
			log.Warn("丢弃无法解码的帧", "remote", conn.RemoteAddr().String(), "error", err)
			continue
		}
		if err := base.Dispatch(handler, f.Message()); err != nil {
			log.Error("入站消息处理失败", "remote", conn.RemoteAddr().String(), "error", err)
		}
	}
}

// Close 关闭服务与全部连接
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.cancel()

	t.mu.Lock()
	srv := t.server
	conns := make([]*websocket.Conn, 0, len(t.inbound)+len(t.outbound))
	for conn := range t.inbound {
		conns = append(conns, conn)
	}
	for url, out := range t.outbound {
		conns = append(conns, out.conn)
		delete(t.outbound, url)
	}
	t.mu.Unlock()

	deadline := time.Now().Add(closeGrace)
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}

	var err error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = srv.Shutdown(ctx)
		cancel()
	}

	t.wg.Wait()
	return err
}
