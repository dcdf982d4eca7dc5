// Package udp 实现 UDP 报文传输
//
// 一条消息即一个报文，报文体为 JSON {address, content}。
// 写入成功即视为发送成功，不做确认与重传。
package udp

import (
	"context"
	"errors"
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

var log = logger.Logger("transport/udp")

// Scheme 协议名
const Scheme = "udp"

// maxDatagram IPv4 UDP 报文负载上限
const maxDatagram = 65507

// Transport UDP 传输
type Transport struct {
	cfg base.Config

	mu        sync.Mutex
	conn      net.PacketConn
	advertise string

	wg     sync.WaitGroup
	closed atomic.Bool
}

var _ interfaces.Transport = (*Transport)(nil)

// New 创建 UDP 传输
func New(cfg base.Config) *Transport {
	return &Transport{cfg: cfg}
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

func (t *Transport) limit() int {
	if t.cfg.MaxMessageSize <= 0 || t.cfg.MaxMessageSize > maxDatagram {
		return maxDatagram
	}
	return t.cfg.MaxMessageSize
}

// ============================================================================
//                              发送
// ============================================================================

// Send 发送一个报文
//
// 已监听时复用监听套接字，使对端看到的源地址与通告地址一致。
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
	data, err := frame.Marshal(frame.FromMessage(msg), t.limit())
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
	conn := t.conn
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		err := t.write(conn, target.Host, data)
		if err != nil {
			log.Debug("发送失败", "peer", target.Host, "error", err)
		}
		base.Complete(msg, err)
	}()
}

func (t *Transport) write(conn net.PacketConn, host string, data []byte) error {
	addr, err := net.ResolveUDPAddr("udp", host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}

	if conn != nil {
		_, err = conn.WriteTo(data, addr)
		return err
	}

	c, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return err
	}
	defer c.Close()
	_, err = c.Write(data)
	return err
}

// ============================================================================
//                              监听
// ============================================================================

// Listen 绑定套接字并在后台读取报文
func (t *Transport) Listen(ctx context.Context, handler interfaces.InboundHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return base.ErrClosed
	}
	if t.conn != nil {
		return base.ErrAlreadyListening
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", t.cfg.Listen)
	if err != nil {
		return fmt.Errorf("udp listen %s: %w", t.cfg.Listen, err)
	}
	t.conn = conn
	t.advertise = base.AdvertiseAddr(Scheme, t.cfg.Advertise, conn.LocalAddr(), "")

	t.wg.Add(1)
	go t.readLoop(conn, handler)

	log.Info("UDP 传输开始监听", "addr", conn.LocalAddr().String(), "advertise", t.advertise)
	return nil
}

func (t *Transport) readLoop(conn net.PacketConn, handler interfaces.InboundHandler) {
	defer t.wg.Done()

	// 多留一字节以识别超限报文
	buf := make([]byte, t.limit()+1)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("读取报文失败", "error", err)
			continue
		}

		f, err := frame.Unmarshal(buf[:n], t.limit())
		if err != nil {
			log.Warn("丢弃无法解码的报文", "from", from.String(), "error", err)
			continue
		}

		if err := base.Dispatch(handler, f.Message()); err != nil {
			log.Error("入站消息处理失败", "from", from.String(), "error", err)
		}
	}
}

// Close 关闭套接字
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	t.mu.Lock()
	if t.conn != nil {
		err = t.conn.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()
	return err
}
