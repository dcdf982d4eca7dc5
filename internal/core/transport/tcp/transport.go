package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/internal/core/transport/frame"
	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("transport/tcp")

// Scheme 协议名
const Scheme = "tcp"

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport TCP 传输
type Transport struct {
	cfg    base.Config
	dialer net.Dialer

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listener  net.Listener
	advertise string
	inbound   map[net.Conn]struct{}
	outbound  map[string]*outConn

	wg     sync.WaitGroup
	closed atomic.Bool
}

// outConn 复用的出站连接，写入串行化
type outConn struct {
	mu   sync.Mutex
	conn net.Conn
}

var _ interfaces.Transport = (*Transport)(nil)

// New 创建 TCP 传输
func New(cfg base.Config) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		inbound:  make(map[net.Conn]struct{}),
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

// Send 异步发送消息，写入完成即成功
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
	data, err := frame.Encode(frame.FromMessage(msg), t.cfg.MaxMessageSize)
	if err != nil {
		msg.Failed(err)
		return
	}

	if !t.track() {
		msg.Failed(base.ErrClosed)
		return
	}
	go func() {
		defer t.wg.Done()
		err := t.write(target.Host, data)
		if err != nil {
			log.Debug("发送失败", "peer", target.Host, "error", err)
		}
		base.Complete(msg, err)
	}()
}

// track 在未关闭时登记一个后台任务
func (t *Transport) track() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return false
	}
	t.wg.Add(1)
	return true
}

// write 写入一帧；复用的连接写入失败时重新建连一次
func (t *Transport) write(host string, data []byte) error {
	ctx, cancel := t.sendContext()
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		out, reused, err := t.connect(ctx, host)
		if err != nil {
			return err
		}

		out.mu.Lock()
		if deadline, ok := ctx.Deadline(); ok {
			_ = out.conn.SetWriteDeadline(deadline)
		}
		_, err = out.conn.Write(data)
		out.mu.Unlock()

		if err == nil {
			return nil
		}
		t.drop(host, out)
		if !reused {
			return err
		}
		log.Debug("复用连接写入失败，重新建连", "peer", host, "error", err)
	}
	return fmt.Errorf("write to %s: %w", host, net.ErrClosed)
}

func (t *Transport) sendContext() (context.Context, context.CancelFunc) {
	if t.cfg.SendTimeout > 0 {
		return context.WithTimeout(t.ctx, t.cfg.SendTimeout)
	}
	return context.WithCancel(t.ctx)
}

// connect 获取或建立到 host 的出站连接
func (t *Transport) connect(ctx context.Context, host string) (*outConn, bool, error) {
	t.mu.Lock()
	if out, ok := t.outbound[host]; ok {
		t.mu.Unlock()
		return out, true, nil
	}
	t.mu.Unlock()

	var conn net.Conn
	err := base.Retry(ctx, t.cfg.DialRetries, func() error {
		c, err := t.dialer.DialContext(ctx, "tcp", host)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("dial %s: %w", host, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		_ = conn.Close()
		return nil, false, base.ErrClosed
	}
	if out, ok := t.outbound[host]; ok {
		// 并发建连，保留先到者
		_ = conn.Close()
		return out, true, nil
	}
	out := &outConn{conn: conn}
	t.outbound[host] = out
	return out, false, nil
}

func (t *Transport) drop(host string, out *outConn) {
	t.mu.Lock()
	if t.outbound[host] == out {
		delete(t.outbound, host)
	}
	t.mu.Unlock()
	_ = out.conn.Close()
}

// Close 关闭监听器与全部连接
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.cancel()

	var err error
	t.mu.Lock()
	if t.listener != nil {
		err = t.listener.Close()
	}
	for conn := range t.inbound {
		_ = conn.Close()
	}
	for host, out := range t.outbound {
		_ = out.conn.Close()
		delete(t.outbound, host)
	}
	t.mu.Unlock()

	t.wg.Wait()
	log.Debug("TCP 传输已关闭")
	return err
}
