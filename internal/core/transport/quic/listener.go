package quic

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/internal/core/transport/frame"
	"github.com/dep2p/go-ansible/pkg/interfaces"
)

// ============================================================================
//                              监听与入站
// ============================================================================

// Listen 绑定 UDP 套接字并接受 QUIC 连接
func (t *Transport) Listen(ctx context.Context, handler interfaces.InboundHandler) error {
	if t.tlsErr != nil {
		return t.tlsErr
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
	pc, err := lc.ListenPacket(ctx, "udp", t.cfg.Listen)
	if err != nil {
		return fmt.Errorf("quic listen %s: %w", t.cfg.Listen, err)
	}

	tr := &quic.Transport{Conn: pc}
	ln, err := tr.Listen(t.serverTLS, t.quicConf)
	if err != nil {
		_ = pc.Close()
		return fmt.Errorf("quic listen %s: %w", t.cfg.Listen, err)
	}

	t.listenTr = tr
	t.listener = ln
	t.advertise = base.AdvertiseAddr(Scheme, t.cfg.Advertise, pc.LocalAddr(), "")

	t.wg.Add(1)
	go t.acceptLoop(ln, handler)

	log.Info("QUIC 传输开始监听", "addr", pc.LocalAddr().String(), "advertise", t.advertise)
	return nil
}

func (t *Transport) acceptLoop(ln *quic.Listener, handler interfaces.InboundHandler) {
	defer t.wg.Done()

	for {
		conn, err := ln.Accept(t.ctx)
		if err != nil {
			if !t.closed.Load() {
				log.Warn("QUIC 监听退出", "error", err)
			}
			return
		}

		t.mu.Lock()
		if t.closed.Load() {
			t.mu.Unlock()
			_ = conn.CloseWithError(0, "closing")
			return
		}
		t.inbound[conn] = struct{}{}
		t.wg.Add(1)
		t.mu.Unlock()

		go t.serveConn(conn, handler)
	}
}

// serveConn 接受连接上的流，每条流承载一帧
func (t *Transport) serveConn(conn *quic.Conn, handler interfaces.InboundHandler) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		delete(t.inbound, conn)
		t.mu.Unlock()
	}()

	for {
		stream, err := conn.AcceptStream(t.ctx)
		if err != nil {
			log.Debug("入站连接结束", "remote", conn.RemoteAddr().String(), "error", err)
			return
		}

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.serveStream(conn, stream, handler)
		}()
	}
}

func (t *Transport) serveStream(conn *quic.Conn, stream *quic.Stream, handler interfaces.InboundHandler) {
	defer stream.CancelRead(0)
	defer stream.CancelWrite(0)

	if t.cfg.SendTimeout > 0 {
		_ = stream.SetReadDeadline(time.Now().Add(t.cfg.SendTimeout))
	}

	f, err := frame.Read(bufio.NewReader(stream), t.cfg.MaxMessageSize)
	if err != nil {
		log.Warn("丢弃无法读取的流", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}
	if err := base.Dispatch(handler, f.Message()); err != nil {
		log.Error("入站消息处理失败", "remote", conn.RemoteAddr().String(), "error", err)
	}
}
