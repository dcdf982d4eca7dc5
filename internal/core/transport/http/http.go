// Package http 实现 HTTP 传输
//
// 发送方把信封字节作为请求体 POST 到对端根路径，完整的传输地址
// （含 /#capability 片段）放在 X-Ansible-Address 头中，因为片段不会
// 随请求到达服务端。2xx 视为成功。
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/internal/core/transport/frame"
	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("transport/http")

const (
	// Scheme 协议名
	Scheme = "http"

	// AddressHeader 携带完整传输地址的请求头
	AddressHeader = "X-Ansible-Address"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Transport HTTP 传输
type Transport struct {
	cfg    base.Config
	client *http.Client

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	server    *http.Server
	advertise string

	wg     sync.WaitGroup
	closed atomic.Bool
}

var _ interfaces.Transport = (*Transport)(nil)

// New 创建 HTTP 传输
func New(cfg base.Config) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.SendTimeout},
		ctx:    ctx,
		cancel: cancel,
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

// Send 异步 POST 信封
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
	if limit := t.cfg.MaxMessageSize; limit > 0 && len(msg.Content) > limit {
		msg.Failed(fmt.Errorf("%w: %d > %d", frame.ErrTooLarge, len(msg.Content), limit))
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
		err := t.post(target, msg)
		if err != nil {
			log.Debug("发送失败", "peer", target.Base, "error", err)
		}
		base.Complete(msg, err)
	}()
}

func (t *Transport) post(target base.Target, msg *types.Message) error {
	url := target.Base + "/"
	req, err := http.NewRequestWithContext(t.ctx, http.MethodPost, url, bytes.NewReader(msg.Content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AddressHeader, msg.Address)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", base.ErrRejected, resp.Status)
	}
	return nil
}

// ============================================================================
//                              服务端
// ============================================================================

// Listen 启动 HTTP 服务
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
		return fmt.Errorf("http listen %s: %w", t.cfg.Listen, err)
	}

	t.server = &http.Server{
		Handler:           t.routes(handler),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	t.advertise = base.AdvertiseAddr(Scheme, t.cfg.Advertise, ln.Addr(), "")

	t.wg.Add(1)
	go func(srv *http.Server) {
		defer t.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP 服务退出", "error", err)
		}
	}(t.server)

	log.Info("HTTP 传输开始监听", "addr", ln.Addr().String(), "advertise", t.advertise)
	return nil
}

func (t *Transport) routes(handler interfaces.InboundHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", t.receive(handler))
	return r
}

// receive 处理入站 POST
//
// 信封无法解码时返回 400，处理器其他 panic 返回 500。
func (t *Transport) receive(handler interfaces.InboundHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := r.Body
		if t.cfg.MaxMessageSize > 0 {
			body = http.MaxBytesReader(w, r.Body, int64(t.cfg.MaxMessageSize))
		}
		content, err := io.ReadAll(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		address := r.Header.Get(AddressHeader)
		if address == "" {
			address = Scheme + "://" + r.Host + "/"
		}

		if err := base.Dispatch(handler, &types.Message{Address: address, Content: content}); err != nil {
			log.Error("入站消息处理失败", "remote", r.RemoteAddr, "error", err)
			if errors.Is(err, types.ErrMalformedEnvelope) {
				http.Error(w, "malformed envelope", http.StatusBadRequest)
				return
			}
			http.Error(w, "inbound handler failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// Close 停止服务并等待在途请求
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.cancel()

	var err error
	t.mu.Lock()
	srv := t.server
	t.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = srv.Shutdown(ctx)
		cancel()
	}

	t.wg.Wait()
	t.client.CloseIdleConnections()
	return err
}
