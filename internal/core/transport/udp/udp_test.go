package udp

import (
	"net"
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
	transporttest.Run(t, Scheme, newTransport, transporttest.Options{})
}

func TestTransport_SendWithoutListen(t *testing.T) {
	inbox := transporttest.NewInbox()
	server := transporttest.Listening(t, newTransport, inbox.Handler())

	client := New(transporttest.TestConfig())
	defer client.Close()

	var out transporttest.Outcome
	client.Send(out.Message(types.TransportAddress(server.Advertise(), "c"), []byte("hi")))
	require.NoError(t, out.Wait(t))
	assert.Equal(t, []byte("hi"), inbox.Next(t).Content)
}

func TestTransport_GarbageDatagramIgnored(t *testing.T) {
	inbox := transporttest.NewInbox()
	server := transporttest.Listening(t, newTransport, inbox.Handler())
	target, err := base.ParseTarget(Scheme, types.TransportAddress(server.Advertise(), "c"))
	require.NoError(t, err)

	conn, err := net.Dial("udp", target.Host)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("not json"))
	require.NoError(t, err)

	client := New(transporttest.TestConfig())
	defer client.Close()
	var out transporttest.Outcome
	client.Send(out.Message(types.TransportAddress(server.Advertise(), "c"), []byte("after")))
	require.NoError(t, out.Wait(t))
	assert.Equal(t, []byte("after"), inbox.Next(t).Content)
}

func TestTransport_Limit(t *testing.T) {
	assert.Equal(t, maxDatagram, New(base.Config{}).limit())
	assert.Equal(t, maxDatagram, New(base.Config{MaxMessageSize: 1 << 20}).limit())
	assert.Equal(t, 512, New(base.Config{MaxMessageSize: 512}).limit())
}
