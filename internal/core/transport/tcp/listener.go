package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/internal/core/transport/frame"
	"github.com/dep2p/go-ansible/pkg/interfaces"
)

// ============================================================================
//                              监听与入站
// ============================================================================

// Listen 开始监听，入站帧交给 handler
func (t *Transport) Listen(ctx context.Context, handler interfaces.InboundHandler) error {
	if t.closed.Load() {
		return base.ErrClosed
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return base.ErrClosed
	}
	if t.listener != nil {
		return base.ErrAlreadyListening
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", t.cfg.Listen)
	if err != nil {
		return fmt.Errorf("tcp listen %s: %w", t.cfg.Listen, err)
	}
	t.listener = ln
	t.advertise = base.AdvertiseAddr(Scheme, t.cfg.Advertise, ln.Addr(), "")

	t.wg.Add(1)
	go t.acceptLoop(ln, handler)

	log.Info("TCP 传输开始监听", "addr", ln.Addr().String(), "advertise", t.advertise)
	return nil
}

func (t *Transport) acceptLoop(ln net.Listener, handler interfaces.InboundHandler) {
	defer t.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("接受连接失败", "error", err)
			continue
		}

		t.mu.Lock()
		if t.closed.Load() {
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.inbound[conn] = struct{}{}
		t.wg.Add(1)
		t.mu.Unlock()

		go t.serveConn(conn, handler)
	}
}

// serveConn 逐帧读取直到连接关闭
func (t *Transport) serveConn(conn net.Conn, handler interfaces.InboundHandler) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		delete(t.inbound, conn)
		t.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		f, err := frame.Read(r, t.cfg.MaxMessageSize)
		if err != nil {
			if errors.Is(err, frame.ErrMalformed) {
				// 长度前缀已消费，流仍然对齐
				log.Warn("丢弃无法解码的帧", "remote", conn.RemoteAddr().String(), "error", err)
				continue
			}
			if !errors.Is(err, io.EOF) && !t.closed.Load() {
				log.Debug("入站连接结束", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}

		if err := base.Dispatch(handler, f.Message()); err != nil {
			log.Error("入站消息处理失败", "remote", conn.RemoteAddr().String(), "error", err)
		}
	}
}
