package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dep2p/go-ansible/internal/core/discovery/memory"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
	"github.com/dep2p/go-ansible/tests/mocks"
)

func findSync(t *testing.T, d interfaces.Discovery, id string) (*types.Contact, error) {
	t.Helper()
	type result struct {
		c   *types.Contact
		err error
	}
	ch := make(chan result, 1)
	d.Find(context.Background(), id, func(c *types.Contact, err error) { ch <- result{c, err} })
	select {
	case r := <-ch:
		return r.c, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("Find 未回调")
		return nil, nil
	}
}

func TestCache_Hit(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockDiscovery(ctrl)
	bob := &types.Contact{ID: "bob", Data: map[string]string{"tcp": "tcp://b"}}

	inner.EXPECT().Find(gomock.Any(), "bob", gomock.Any()).
		Do(func(_ context.Context, _ string, cb interfaces.FindCallback) {
			go cb(bob.Clone(), nil)
		}).
		Times(1)

	d := New(inner, 8, time.Minute)

	first, err := findSync(t, d, "bob")
	require.NoError(t, err)
	second, err := findSync(t, d, "bob")
	require.NoError(t, err)

	assert.Equal(t, bob, first)
	assert.Equal(t, bob, second)
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Size: 1}, d.Stats())
}

func TestCache_ErrorNotCached(t *testing.T) {
	network := memory.NewNetwork()
	d := New(network.Node(nil), 8, time.Minute)

	_, err := findSync(t, d, "ghost")
	assert.ErrorIs(t, err, memory.ErrNotFound)
	assert.Zero(t, d.Stats().Size)

	// 后端出现记录后能被解析
	_, err = network.Node(nil).Register(context.Background(), &types.Contact{ID: "ghost"})
	require.NoError(t, err)
	c, err := findSync(t, d, "ghost")
	require.NoError(t, err)
	assert.Equal(t, "ghost", c.ID)
}

func TestCache_TTL(t *testing.T) {
	network := memory.NewNetwork()
	d := New(network.Node(nil), 8, 50*time.Millisecond)
	ctx := context.Background()

	_, err := d.Register(ctx, &types.Contact{ID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Stats().Size)

	require.Eventually(t, func() bool { return d.Stats().Size == 0 }, time.Second, 10*time.Millisecond)
}

func TestCache_UnregisterInvalidates(t *testing.T) {
	network := memory.NewNetwork()
	d := New(network.Node(nil), 8, time.Minute)
	ctx := context.Background()

	_, err := d.Register(ctx, &types.Contact{ID: "alice"})
	require.NoError(t, err)
	require.NoError(t, d.Unregister(ctx, "alice"))

	_, err = findSync(t, d, "alice")
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestCache_HintDoesNotOverride(t *testing.T) {
	network := memory.NewNetwork()
	d := New(network.Node(nil), 8, time.Minute)
	ctx := context.Background()

	_, err := d.Register(ctx, &types.Contact{ID: "alice", Data: map[string]string{"tcp": "tcp://a"}})
	require.NoError(t, err)
	require.NoError(t, d.Add(ctx, &types.Contact{ID: "alice", Data: map[string]string{"udp": "udp://x"}}))

	c, err := findSync(t, d, "alice")
	require.NoError(t, err)
	assert.Contains(t, c.Data, "tcp")

	require.NoError(t, d.Add(ctx, &types.Contact{ID: "carol"}))
	c, err = findSync(t, d, "carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", c.ID)
}

func TestCache_Close(t *testing.T) {
	inner := memory.NewNetwork().Node(nil)
	d := New(inner, 8, time.Minute)

	require.NoError(t, d.Close())
	_, err := inner.Register(context.Background(), &types.Contact{ID: "x"})
	assert.ErrorIs(t, err, memory.ErrClosed)
}
