// Package transporttest 提供各传输共用的一致性测试
package transporttest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

// waitTimeout 单次等待上限
const waitTimeout = 5 * time.Second

// Factory 按配置创建传输
type Factory func(cfg base.Config) interfaces.Transport

// Options 一致性测试选项
type Options struct {
	// ConnectionOriented 对端不可达时发送必定失败
	ConnectionOriented bool
}

// TestConfig 返回适合测试的配置
func TestConfig() base.Config {
	cfg := base.DefaultConfig()
	cfg.SendTimeout = 2 * time.Second
	cfg.DialRetries = 1
	cfg.MaxMessageSize = 64 << 10
	return cfg
}

// ============================================================================
//                              辅助类型
// ============================================================================

// Inbox 收集入站消息
type Inbox struct {
	ch chan *types.Message
}

// NewInbox 创建收件箱
func NewInbox() *Inbox {
	return &Inbox{ch: make(chan *types.Message, 128)}
}

// Handler 返回入站处理器
func (in *Inbox) Handler() interfaces.InboundHandler {
	return func(msg *types.Message) { in.ch <- msg }
}

// Next 等待下一条入站消息
func (in *Inbox) Next(t *testing.T) *types.Message {
	t.Helper()
	select {
	case msg := <-in.ch:
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("等待入站消息超时")
		return nil
	}
}

// Outcome 记录一次发送的结果
type Outcome struct {
	mu    sync.Mutex
	oks   int
	fails int
	err   error
	done  chan struct{}
	once  sync.Once
}

// Message 构造带完成回调的消息
func (o *Outcome) Message(addr string, content []byte) *types.Message {
	o.done = make(chan struct{})
	return &types.Message{
		Address: addr,
		Content: content,
		OK: func() {
			o.mu.Lock()
			o.oks++
			o.mu.Unlock()
			o.once.Do(func() { close(o.done) })
		},
		Fail: func(err error) {
			o.mu.Lock()
			o.fails++
			o.err = err
			o.mu.Unlock()
			o.once.Do(func() { close(o.done) })
		},
	}
}

// Wait 等待完成并返回错误
func (o *Outcome) Wait(t *testing.T) error {
	t.Helper()
	select {
	case <-o.done:
	case <-time.After(waitTimeout):
		t.Fatal("等待发送结果超时")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Counts 返回成功与失败次数
func (o *Outcome) Counts() (oks, fails int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.oks, o.fails
}

// Listening 创建并启动监听中的传输
func Listening(t *testing.T, factory Factory, handler interfaces.InboundHandler) interfaces.Transport {
	t.Helper()
	tr := factory(TestConfig())
	require.NoError(t, tr.Listen(context.Background(), handler))
	t.Cleanup(func() { _ = tr.Close() })
	require.NotEmpty(t, tr.Advertise())
	return tr
}

// ============================================================================
//                              一致性测试
// ============================================================================

// Run 运行一致性测试
func Run(t *testing.T, scheme string, factory Factory, opts Options) {
	t.Run("协议名", func(t *testing.T) {
		tr := factory(TestConfig())
		defer tr.Close()
		assert.Equal(t, scheme, tr.Scheme())
	})

	t.Run("往返保留内容与片段", func(t *testing.T) {
		inbox := NewInbox()
		server := Listening(t, factory, inbox.Handler())
		client := Listening(t, factory, func(*types.Message) {})

		content := []byte{0x00, 0x01, 0xfe, 0xff, '{', '"'}
		addr := types.TransportAddress(server.Advertise(), "mailbox")

		var out Outcome
		client.Send(out.Message(addr, content))
		require.NoError(t, out.Wait(t))

		got := inbox.Next(t)
		assert.Equal(t, content, got.Content)
		assert.Equal(t, "#mailbox", types.Fragment(got.Address))
		assert.Nil(t, got.OK)
		assert.Nil(t, got.Fail)

		oks, fails := out.Counts()
		assert.Equal(t, 1, oks)
		assert.Equal(t, 0, fails)
	})

	t.Run("多条消息", func(t *testing.T) {
		inbox := NewInbox()
		server := Listening(t, factory, inbox.Handler())
		client := Listening(t, factory, func(*types.Message) {})

		const n = 20
		outs := make([]*Outcome, n)
		for i := range outs {
			outs[i] = &Outcome{}
			client.Send(outs[i].Message(types.TransportAddress(server.Advertise(), "c"), []byte{byte(i)}))
		}
		seen := make(map[byte]bool)
		for range n {
			seen[inbox.Next(t).Content[0]] = true
		}
		for _, o := range outs {
			require.NoError(t, o.Wait(t))
		}
		assert.Len(t, seen, n)
	})

	t.Run("处理器 panic 不影响后续消息", func(t *testing.T) {
		inbox := NewInbox()
		var once sync.Once
		handler := func(msg *types.Message) {
			panicked := false
			once.Do(func() { panicked = true })
			if panicked {
				panic(types.ErrMalformedEnvelope)
			}
			inbox.Handler()(msg)
		}
		server := Listening(t, factory, handler)
		client := Listening(t, factory, func(*types.Message) {})
		addr := types.TransportAddress(server.Advertise(), "c")

		var first Outcome
		client.Send(first.Message(addr, []byte("bad")))
		_ = first.Wait(t)

		var second Outcome
		client.Send(second.Message(addr, []byte("good")))
		require.NoError(t, second.Wait(t))
		assert.Equal(t, []byte("good"), inbox.Next(t).Content)
	})

	t.Run("非法地址", func(t *testing.T) {
		client := Listening(t, factory, func(*types.Message) {})

		var out Outcome
		client.Send(out.Message("nope://127.0.0.1:1/#c", nil))
		assert.ErrorIs(t, out.Wait(t), base.ErrSchemeMismatch)

		var missing Outcome
		client.Send(missing.Message(scheme+"://127.0.0.1:1", nil))
		assert.ErrorIs(t, missing.Wait(t), base.ErrInvalidAddress)
	})

	t.Run("超过帧上限", func(t *testing.T) {
		server := Listening(t, factory, func(*types.Message) {})
		client := Listening(t, factory, func(*types.Message) {})

		var out Outcome
		client.Send(out.Message(types.TransportAddress(server.Advertise(), "c"), make([]byte, 128<<10)))
		assert.Error(t, out.Wait(t))
	})

	t.Run("重复监听", func(t *testing.T) {
		tr := Listening(t, factory, func(*types.Message) {})
		assert.ErrorIs(t, tr.Listen(context.Background(), func(*types.Message) {}), base.ErrAlreadyListening)
	})

	t.Run("关闭后发送失败", func(t *testing.T) {
		server := Listening(t, factory, func(*types.Message) {})
		client := factory(TestConfig())
		require.NoError(t, client.Close())
		require.NoError(t, client.Close())

		var out Outcome
		client.Send(out.Message(types.TransportAddress(server.Advertise(), "c"), []byte("x")))
		assert.ErrorIs(t, out.Wait(t), base.ErrClosed)
		assert.ErrorIs(t, client.Listen(context.Background(), func(*types.Message) {}), base.ErrClosed)
	})

	if opts.ConnectionOriented {
		t.Run("对端不可达", func(t *testing.T) {
			gone := factory(TestConfig())
			require.NoError(t, gone.Listen(context.Background(), func(*types.Message) {}))
			addr := types.TransportAddress(gone.Advertise(), "c")
			require.NoError(t, gone.Close())

			client := Listening(t, factory, func(*types.Message) {})
			var out Outcome
			client.Send(out.Message(addr, []byte("x")))
			assert.Error(t, out.Wait(t))
		})
	}
}
