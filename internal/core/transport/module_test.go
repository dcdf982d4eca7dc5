package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/internal/core/discovery"
	"github.com/dep2p/go-ansible/internal/core/discovery/memory"
	"github.com/dep2p/go-ansible/internal/core/router"
	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
	"github.com/dep2p/go-ansible/tests/mocks"
)

// stubRouter 记录注册的传输
type stubRouter struct {
	interfaces.Router

	mu         sync.Mutex
	registered map[string]string
}

func newStubRouter() *stubRouter {
	return &stubRouter{registered: make(map[string]string)}
}

func (r *stubRouter) RegisterTransport(scheme, data string, _ interfaces.SendFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[scheme] = data
}

func (r *stubRouter) Receive(*types.Message) {}

func TestConfigFromUnified(t *testing.T) {
	t.Run("默认只启用 tcp", func(t *testing.T) {
		assert.Equal(t, []string{"tcp"}, NewConfig().Schemes())
		assert.Equal(t, []string{"tcp"}, ConfigFromUnified(nil).Schemes())
	})

	t.Run("按配置启用", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Transport.HTTP.Enable = true
		cfg.Transport.QUIC.Enable = true
		cfg.Transport.TCP.Enable = false

		c := ConfigFromUnified(cfg)
		assert.Equal(t, []string{"http", "quic"}, c.Schemes())
		assert.Equal(t, "127.0.0.1:0", c.Endpoints["http"].Listen)
	})
}

func TestNewTransport(t *testing.T) {
	for _, scheme := range []string{"http", "ws", "tcp", "udp", "quic"} {
		t.Run(scheme, func(t *testing.T) {
			tr, err := NewTransport(scheme, base.DefaultConfig())
			require.NoError(t, err)
			defer tr.Close()
			assert.Equal(t, scheme, tr.Scheme())
		})
	}

	_, err := NewTransport("smtp", base.DefaultConfig())
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestTransportManager_Start(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Transport.UDP.Enable = true
	cfg.Transport.HTTP.Enable = true

	extra := &mocks.MockTransport{SchemeValue: "mem", AdvertiseValue: "mem://a"}
	tm, err := NewTransportManager(ConfigFromUnified(cfg), extra)
	require.NoError(t, err)
	assert.Equal(t, []string{"http", "tcp", "udp", "mem"}, tm.Schemes())

	r := newStubRouter()
	require.NoError(t, tm.Start(context.Background(), r))

	assert.Regexp(t, `^http://127\.0\.0\.1:\d+$`, r.registered["http"])
	assert.Regexp(t, `^tcp://127\.0\.0\.1:\d+$`, r.registered["tcp"])
	assert.Regexp(t, `^udp://127\.0\.0\.1:\d+$`, r.registered["udp"])
	assert.Equal(t, "mem://a", r.registered["mem"])

	require.NoError(t, tm.Close())
	assert.True(t, extra.Closed())
}

func TestTransportManager_StartFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	cfg := config.NewConfig()
	cfg.Transport.TCP.Listen = occupied.Addr().String()

	extra := &mocks.MockTransport{SchemeValue: "mem"}
	tm, err := NewTransportManager(ConfigFromUnified(cfg), extra)
	require.NoError(t, err)

	r := newStubRouter()
	err = tm.Start(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tcp")
	assert.Empty(t, r.registered)
	assert.True(t, extra.Closed())
}

func TestTransportManager_DuplicateScheme(t *testing.T) {
	_, err := NewTransportManager(NewConfig(), &mocks.MockTransport{SchemeValue: "tcp"})
	assert.ErrorIs(t, err, ErrDuplicateScheme)
}

func TestTransportManager_CloseErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &mocks.MockTransport{SchemeValue: "a", CloseFunc: func() error { return boom }}
	b := &mocks.MockTransport{SchemeValue: "b", CloseFunc: func() error { return boom }}

	tm, err := NewTransportManager(Config{}, a, b)
	require.NoError(t, err)

	err = tm.Close()
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "close a")
	assert.Contains(t, err.Error(), "close b")
}

// node 通过 fx 组装一个节点
func node(t *testing.T, network *memory.Network, schemes ...string) *router.Router {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Transport.TCP.Enable = false
	for _, scheme := range schemes {
		switch scheme {
		case "http":
			cfg.Transport.HTTP.Enable = true
		case "ws":
			cfg.Transport.WebSocket.Enable = true
		case "tcp":
			cfg.Transport.TCP.Enable = true
		case "udp":
			cfg.Transport.UDP.Enable = true
		case "quic":
			cfg.Transport.QUIC.Enable = true
		}
	}

	var r *router.Router
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg, network),
		discovery.Module(),
		router.Module(),
		Module(),
		fx.Populate(&r),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)
	return r
}

func TestModule_RoundTrip(t *testing.T) {
	for _, scheme := range []string{"http", "ws", "tcp", "udp", "quic"} {
		t.Run(scheme, func(t *testing.T) {
			network := memory.NewNetwork()
			alice := node(t, network, scheme)
			bob := node(t, network, scheme)
			assert.Equal(t, []string{scheme}, bob.Transports())

			got := make(chan *types.Message, 1)
			_, err := bob.RegisterDomain(context.Background(), "bob", func(msg *types.Message) { got <- msg })
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			result := alice.Deliver(ctx, "ansible://bob/#inbox", []byte("hello "+scheme), "")
			require.NoError(t, result.Wait(ctx))

			select {
			case msg := <-got:
				assert.Equal(t, "ansible://bob/#inbox", msg.Address)
				assert.Equal(t, []byte("hello "+scheme), msg.Content)
			case <-ctx.Done():
				t.Fatal("等待投递超时")
			}
		})
	}
}
