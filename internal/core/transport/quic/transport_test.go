package quic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/internal/core/transport/transporttest"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

func newTransport(cfg base.Config) interfaces.Transport {
	return New(cfg)
}

func TestTransport_Conformance(t *testing.T) {
	transporttest.Run(t, Scheme, newTransport, transporttest.Options{ConnectionOriented: true})
}

func TestTransport_DialWithoutListen(t *testing.T) {
	inbox := transporttest.NewInbox()
	server := transporttest.Listening(t, newTransport, inbox.Handler())

	client := New(transporttest.TestConfig())
	defer client.Close()

	var out transporttest.Outcome
	client.Send(out.Message(types.TransportAddress(server.Advertise(), "c"), []byte("hi")))
	require.NoError(t, out.Wait(t))
	assert.Equal(t, []byte("hi"), inbox.Next(t).Content)

	client.mu.Lock()
	assert.NotNil(t, client.dialTr)
	assert.Nil(t, client.listenTr)
	client.mu.Unlock()
}

func TestTransport_SharesListenSocket(t *testing.T) {
	inbox := transporttest.NewInbox()
	server := transporttest.Listening(t, newTransport, inbox.Handler())
	client := New(transporttest.TestConfig())
	defer client.Close()
	require.NoError(t, client.Listen(context.Background(), func(*types.Message) {}))

	addr := types.TransportAddress(server.Advertise(), "c")
	for i := 0; i < 3; i++ {
		var out transporttest.Outcome
		client.Send(out.Message(addr, []byte{byte(i)}))
		require.NoError(t, out.Wait(t))
		inbox.Next(t)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Nil(t, client.dialTr)
	assert.Len(t, client.outbound, 1)
}
