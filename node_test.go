package ansible

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/internal/core/router"
	"github.com/dep2p/go-ansible/pkg/types"
	"github.com/dep2p/go-ansible/tests/mocks"
)

func testConfig(schemes ...string) *config.Config {
	cfg := config.NewConfig()
	cfg.Transport.TCP.Enable = false
	for _, scheme := range schemes {
		switch scheme {
		case "http":
			cfg.Transport.HTTP.Enable = true
		case "tcp":
			cfg.Transport.TCP.Enable = true
		case "udp":
			cfg.Transport.UDP.Enable = true
		}
	}
	return cfg
}

func startNode(t *testing.T, opts ...Option) *Node {
	t.Helper()
	node, err := Start(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if node.IsRunning() {
			_ = node.Stop(context.Background())
		}
	})
	return node
}

func TestNode_Lifecycle(t *testing.T) {
	node, err := New(WithConfig(testConfig("tcp")))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, node.State())

	t.Run("启动前不可用", func(t *testing.T) {
		_, err := node.RegisterDomain(context.Background(), "a", func(*types.Message) {})
		assert.ErrorIs(t, err, ErrNotStarted)

		result := node.Deliver(context.Background(), "ansible://a/#b", nil, "")
		assert.ErrorIs(t, result.Wait(context.Background()), ErrNotStarted)

		assert.ErrorIs(t, node.Stop(context.Background()), ErrNotStarted)
	})

	require.NoError(t, node.Start(context.Background()))
	assert.True(t, node.IsRunning())
	assert.ErrorIs(t, node.Start(context.Background()), ErrAlreadyStarted)
	assert.Equal(t, []string{"tcp"}, node.Transports())
	assert.Regexp(t, `^tcp://127\.0\.0\.1:\d+$`, node.Advertisement()["tcp"])

	require.NoError(t, node.Stop(context.Background()))
	assert.Equal(t, StateStopped, node.State())
	assert.ErrorIs(t, node.Stop(context.Background()), ErrNodeClosed)
	assert.ErrorIs(t, node.Start(context.Background()), ErrNodeClosed)

	var failed error
	node.Send(&types.Message{Address: "ansible://a/#b", Fail: func(err error) { failed = err }})
	assert.ErrorIs(t, failed, ErrNodeClosed)
}

func TestNode_InvalidConfig(t *testing.T) {
	cfg := testConfig("tcp")
	cfg.Router.Selection = "roulette"

	_, err := New(WithConfig(cfg))
	assert.ErrorIs(t, err, config.ErrInvalidSelection)

	_, err = New(WithConfig(nil))
	assert.ErrorIs(t, err, config.ErrNilConfig)

	_, err = New(WithDiscovery(nil))
	assert.Error(t, err)
}

func TestNode_RoundTrip(t *testing.T) {
	network := NewMemoryNetwork()
	alice := startNode(t, WithConfig(testConfig("tcp", "udp")), WithNetwork(network))
	bob := startNode(t, WithConfig(testConfig("udp", "http")), WithNetwork(network))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := alice.RegisterDomain(ctx, "alice", func(*types.Message) {})
	require.NoError(t, err)

	got := make(chan *types.Message, 1)
	contact, err := bob.RegisterDomain(ctx, "bob", func(msg *types.Message) { got <- msg })
	require.NoError(t, err)
	assert.Contains(t, contact.Data, "udp")
	assert.Contains(t, contact.Data, "http")
	assert.Equal(t, 2, network.Len())

	// 双方共同支持的只有 udp
	result := alice.Deliver(ctx, "ansible://bob/#inbox", []byte{0x00, 0xff}, "alice")
	require.NoError(t, result.Wait(ctx))

	select {
	case msg := <-got:
		assert.Equal(t, "ansible://bob/#inbox", msg.Address)
		assert.Equal(t, []byte{0x00, 0xff}, msg.Content)
	case <-ctx.Done():
		t.Fatal("等待投递超时")
	}

	t.Run("停止时注销本地域", func(t *testing.T) {
		require.NoError(t, bob.Stop(context.Background()))
		assert.Equal(t, 1, network.Len())

		result := alice.Deliver(ctx, "ansible://bob/#inbox", []byte("late"), "")
		err := result.Wait(ctx)
		assert.ErrorIs(t, err, router.ErrResolutionFailed)
	})
}

func TestNode_UnsupportedTransport(t *testing.T) {
	network := NewMemoryNetwork()
	alice := startNode(t, WithConfig(testConfig("tcp")), WithNetwork(network))
	bob := startNode(t, WithConfig(testConfig("http")), WithNetwork(network))

	_, err := bob.RegisterDomain(context.Background(), "bob", func(*types.Message) {})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = alice.Deliver(ctx, "ansible://bob/#x", nil, "").Wait(ctx)
	assert.ErrorIs(t, err, router.ErrUnsupportedTransport)
	assert.Contains(t, err.Error(), "http")
}

func TestNode_ExtraTransport(t *testing.T) {
	mem := mocks.NewMockTransport("mem", "mem://local")
	node := startNode(t, WithConfig(testConfig()), WithTransports(mem))

	assert.Equal(t, []string{"mem"}, node.Transports())

	got := make(chan *types.Message, 1)
	_, err := node.RegisterDomain(context.Background(), "self", func(msg *types.Message) { got <- msg })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result := node.Deliver(ctx, "ansible://self/#loop", []byte("x"), "")
	require.NoError(t, result.Wait(ctx))

	sent := mem.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "mem://local/#loop", sent[0].Address)

	// 模拟对端把信封交回本节点
	mem.Deliver(&types.Message{Address: sent[0].Address, Content: sent[0].Content})
	msg := <-got
	assert.Equal(t, "ansible://self/#loop", msg.Address)

	require.NoError(t, node.Stop(context.Background()))
	assert.True(t, mem.Closed())
}

func TestNode_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	node := startNode(t, WithConfig(testConfig("tcp")), WithRegisterer(reg))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := node.Deliver(ctx, "not-ansible://x/#y", nil, "").Wait(ctx)
	assert.ErrorIs(t, err, types.ErrAddressMalformed)

	assert.Equal(t, float64(1), counterValue(t, reg, "ansible_router_sends_started_total"))

	count, err := testutil.GatherAndCount(reg, "ansible_router_sends_failed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// counterValue 从 registry 读取无标签计数器的值
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("未找到指标 %s", name)
	return 0
}

func TestNodeState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", NodeState(42).String())
}

func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)

	GitCommit = "0123456789abcdef"
	defer func() { GitCommit = "" }()
	assert.Contains(t, VersionInfo(), "(01234567)")
}
