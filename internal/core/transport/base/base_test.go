package base

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/pkg/types"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name   string
		scheme string
		addr   string
		want   Target
		err    error
	}{
		{
			name:   "tcp",
			scheme: "tcp",
			addr:   "tcp://127.0.0.1:4001/#cap",
			want:   Target{Base: "tcp://127.0.0.1:4001", Host: "127.0.0.1:4001", Capability: "cap"},
		},
		{
			name:   "带路径",
			scheme: "ws",
			addr:   "ws://127.0.0.1:4002/ansible/#x",
			want:   Target{Base: "ws://127.0.0.1:4002/ansible", Host: "127.0.0.1:4002", Path: "/ansible", Capability: "x"},
		},
		{
			name:   "空能力片段",
			scheme: "udp",
			addr:   "udp://[::1]:9/#",
			want:   Target{Base: "udp://[::1]:9", Host: "[::1]:9"},
		},
		{name: "缺少片段", scheme: "tcp", addr: "tcp://127.0.0.1:1", err: ErrInvalidAddress},
		{name: "协议不符", scheme: "tcp", addr: "udp://127.0.0.1:1/#c", err: ErrSchemeMismatch},
		{name: "缺少端口", scheme: "tcp", addr: "tcp://localhost/#c", err: ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.scheme, tt.addr)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvertiseAddr(t *testing.T) {
	listen := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4001}

	assert.Equal(t, "tcp://127.0.0.1:4001", AdvertiseAddr("tcp", "", listen, ""))
	assert.Equal(t, "ws://127.0.0.1:4001/ansible", AdvertiseAddr("ws", "", listen, "/ansible"))
	assert.Equal(t, "tcp://example.com:80", AdvertiseAddr("tcp", "example.com:80", listen, ""))
	assert.Equal(t, "http://proxy/x", AdvertiseAddr("http", "http://proxy/x", listen, ""))
	assert.Empty(t, AdvertiseAddr("tcp", "", nil, ""))
}

func TestDispatch(t *testing.T) {
	t.Run("正常", func(t *testing.T) {
		var got *types.Message
		err := Dispatch(func(m *types.Message) { got = m }, &types.Message{Address: "a"})
		require.NoError(t, err)
		assert.Equal(t, "a", got.Address)
	})

	t.Run("错误 panic", func(t *testing.T) {
		err := Dispatch(func(*types.Message) { panic(types.ErrMalformedEnvelope) }, &types.Message{})
		assert.ErrorIs(t, err, ErrHandlerPanic)
		assert.ErrorIs(t, err, types.ErrMalformedEnvelope)
	})

	t.Run("非错误 panic", func(t *testing.T) {
		err := Dispatch(func(*types.Message) { panic("boom") }, &types.Message{})
		assert.ErrorIs(t, err, ErrHandlerPanic)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestComplete(t *testing.T) {
	var ok int
	var failed error
	msg := &types.Message{OK: func() { ok++ }, Fail: func(err error) { failed = err }}

	Complete(msg, nil)
	assert.Equal(t, 1, ok)

	boom := errors.New("boom")
	Complete(msg, boom)
	assert.Equal(t, boom, failed)
}

func TestConfigFromUnified(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromUnified(nil, "tcp"))

	cfg := config.NewConfig()
	cfg.Transport.UDP.Listen = "0.0.0.0:5000"
	cfg.Transport.UDP.Advertise = "203.0.113.1:5000"
	cfg.Transport.SendTimeout = config.Duration(time.Second)
	cfg.Transport.DialRetries = 0
	cfg.Transport.MaxMessageSize = 4096

	c := ConfigFromUnified(cfg, "udp")
	assert.Equal(t, "0.0.0.0:5000", c.Listen)
	assert.Equal(t, "203.0.113.1:5000", c.Advertise)
	assert.Equal(t, time.Second, c.SendTimeout)
	assert.Equal(t, 0, c.DialRetries)
	assert.Equal(t, 4096, c.MaxMessageSize)
}

func TestRetry(t *testing.T) {
	t.Run("重试后成功", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, func() error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("次数耗尽", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := Retry(context.Background(), 2, func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})

	t.Run("不重试", func(t *testing.T) {
		calls := 0
		_ = Retry(context.Background(), 0, func() error {
			calls++
			return errors.New("boom")
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("上下文取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		_ = Retry(ctx, 5, func() error {
			calls++
			return errors.New("boom")
		})
		assert.LessOrEqual(t, calls, 1)
	})
}
