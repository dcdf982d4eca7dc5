package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/internal/core/transport/frame"
	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("transport/quic")

// Scheme 协议名
const Scheme = "quic"

const (
	maxIdleTimeout     = 30 * time.Second
	keepAlivePeriod    = 10 * time.Second
	maxIncomingStreams = 1024
)

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport QUIC 传输
type Transport struct {
	cfg       base.Config
	quicConf  *quic.Config
	serverTLS *tls.Config
	clientTLS *tls.Config
	tlsErr    error

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listenTr  *quic.Transport
	dialTr    *quic.Transport
	listener  *quic.Listener
	advertise string
	inbound   map[*quic.Conn]struct{}
	outbound  map[string]*quic.Conn

	wg     sync.WaitGroup
	closed atomic.Bool
}

var _ interfaces.Transport = (*Transport)(nil)

// New 创建 QUIC 传输
func New(cfg base.Config) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	serverTLS, clientTLS, err := newTLSConfigs()
	if err != nil {
		log.Error("生成 TLS 配置失败", "error", err)
	}

	handshake := cfg.SendTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}
	return &Transport{
		cfg: cfg,
		quicConf: &quic.Config{
			HandshakeIdleTimeout: handshake,
			MaxIdleTimeout:       maxIdleTimeout,
			KeepAlivePeriod:      keepAlivePeriod,
			MaxIncomingStreams:   maxIncomingStreams,
		},
		serverTLS: serverTLS,
		clientTLS: clientTLS,
		tlsErr:    err,
		ctx:       ctx,
		cancel:    cancel,
		inbound:   make(map[*quic.Conn]struct{}),
		outbound:  make(map[string]*quic.Conn),
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

// Send 在新流上发送一帧，流关闭后回调成功
func (t *Transport) Send(msg *types.Message) {
	if t.closed.Load() {
		msg.Failed(base.ErrClosed)
		return
	}
	if t.tlsErr != nil {
		msg.Failed(t.tlsErr)
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
		err := t.write(target.Host, data)
		if err != nil {
			log.Debug("发送失败", "peer", target.Host, "error", err)
		}
		base.Complete(msg, err)
	}()
}

func (t *Transport) write(host string, data []byte) error {
	ctx, cancel := t.sendContext()
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		conn, reused, err := t.connect(ctx, host)
		if err != nil {
			return err
		}

		err = writeStream(ctx, conn, data)
		if err == nil {
			return nil
		}
		t.drop(host, conn)
		if !reused {
			return err
		}
		log.Debug("复用连接打开流失败，重新建连", "peer", host, "error", err)
	}
	return fmt.Errorf("write to %s: %w", host, net.ErrClosed)
}

func writeStream(ctx context.Context, conn *quic.Conn, data []byte) error {
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(deadline)
	}
	// 对端不回写，读方向直接取消
	stream.CancelRead(0)

	if _, err := stream.Write(data); err != nil {
		stream.CancelWrite(0)
		return err
	}
	return stream.Close()
}

func (t *Transport) sendContext() (context.Context, context.CancelFunc) {
	if t.cfg.SendTimeout > 0 {
		return context.WithTimeout(t.ctx, t.cfg.SendTimeout)
	}
	return context.WithCancel(t.ctx)
}

// connect 获取或建立到 host 的连接
func (t *Transport) connect(ctx context.Context, host string) (*quic.Conn, bool, error) {
	t.mu.Lock()
	if conn, ok := t.outbound[host]; ok {
		t.mu.Unlock()
		return conn, true, nil
	}
	tr, err := t.dialTransportLocked()
	t.mu.Unlock()
	if err != nil {
		return nil, false, err
	}

	addr, err := net.ResolveUDPAddr("udp", host)
	if err != nil {
		return nil, false, fmt.Errorf("resolve %s: %w", host, err)
	}

	var conn *quic.Conn
	err = base.Retry(ctx, t.cfg.DialRetries, func() error {
		c, err := tr.Dial(ctx, addr, t.clientTLS, t.quicConf)
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
		_ = conn.CloseWithError(0, "closing")
		return nil, false, base.ErrClosed
	}
	if existing, ok := t.outbound[host]; ok {
		_ = conn.CloseWithError(0, "duplicate")
		return existing, true, nil
	}
	t.outbound[host] = conn
	return conn, false, nil
}

// dialTransportLocked 返回拨号用的 quic.Transport
//
// 已监听时复用监听套接字，否则惰性创建一个临时套接字。
func (t *Transport) dialTransportLocked() (*quic.Transport, error) {
	if t.closed.Load() {
		return nil, base.ErrClosed
	}
	if t.listenTr != nil {
		return t.listenTr, nil
	}
	if t.dialTr != nil {
		return t.dialTr, nil
	}
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("quic dial socket: %w", err)
	}
	t.dialTr = &quic.Transport{Conn: udpConn}
	return t.dialTr, nil
}

func (t *Transport) drop(host string, conn *quic.Conn) {
	t.mu.Lock()
	if t.outbound[host] == conn {
		delete(t.outbound, host)
	}
	t.mu.Unlock()
	_ = conn.CloseWithError(0, "write failed")
}

// Close 关闭监听器、全部连接与套接字
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.cancel()

	t.mu.Lock()
	listener := t.listener
	conns := make([]*quic.Conn, 0, len(t.inbound)+len(t.outbound))
	for conn := range t.inbound {
		conns = append(conns, conn)
	}
	for host, conn := range t.outbound {
		conns = append(conns, conn)
		delete(t.outbound, host)
	}
	transports := []*quic.Transport{t.listenTr, t.dialTr}
	t.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	for _, conn := range conns {
		_ = conn.CloseWithError(0, "closing")
	}
	for _, tr := range transports {
		if tr == nil {
			continue
		}
		_ = tr.Close()
		if cerr := tr.Conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
			err = cerr
		}
	}

	t.wg.Wait()
	log.Debug("QUIC 传输已关闭")
	return err
}
