package tcp

import (
	"bufio"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/internal/core/transport/frame"
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

func TestTransport_ReusesConnection(t *testing.T) {
	inbox := transporttest.NewInbox()
	server := transporttest.Listening(t, newTransport, inbox.Handler())
	client := New(transporttest.TestConfig())
	defer client.Close()

	addr := types.TransportAddress(server.Advertise(), "c")
	for i := 0; i < 3; i++ {
		var out transporttest.Outcome
		client.Send(out.Message(addr, []byte{byte(i)}))
		require.NoError(t, out.Wait(t))
		inbox.Next(t)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Len(t, client.outbound, 1)
}

func TestTransport_MalformedFrameSkipped(t *testing.T) {
	inbox := transporttest.NewInbox()
	server := transporttest.Listening(t, newTransport, inbox.Handler())

	target, err := base.ParseTarget(Scheme, types.TransportAddress(server.Advertise(), "c"))
	require.NoError(t, err)

	conn, err := net.Dial("tcp", target.Host)
	require.NoError(t, err)
	defer conn.Close()

	// 长度正确但内容不是 JSON 的帧
	_, err = conn.Write(append([]byte{4}, []byte("nope")...))
	require.NoError(t, err)
	require.NoError(t, frame.Write(conn, frame.Frame{Address: "tcp://x/#c", Content: []byte("ok")}, 0))

	got := inbox.Next(t)
	assert.Equal(t, []byte("ok"), got.Content)
}

func TestTransport_AdvertiseOverride(t *testing.T) {
	cfg := transporttest.TestConfig()
	cfg.Advertise = "203.0.113.7:4001"
	tr := New(cfg)
	defer tr.Close()

	assert.Empty(t, tr.Advertise())
	require.NoError(t, tr.Listen(context.Background(), func(*types.Message) {}))
	assert.Equal(t, "tcp://203.0.113.7:4001", tr.Advertise())
}

func TestTransport_StreamReader(t *testing.T) {
	// 入站连接上连续多帧按序交付
	inbox := transporttest.NewInbox()
	server := transporttest.Listening(t, newTransport, inbox.Handler())
	target, err := base.ParseTarget(Scheme, types.TransportAddress(server.Advertise(), "c"))
	require.NoError(t, err)

	conn, err := net.Dial("tcp", target.Host)
	require.NoError(t, err)
	defer conn.Close()

	w := bufio.NewWriter(conn)
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, frame.Write(w, frame.Frame{Address: "tcp://x/#" + s, Content: []byte(s)}, 0))
	}
	require.NoError(t, w.Flush())

	for _, s := range []string{"a", "b", "c"} {
		got := inbox.Next(t)
		assert.Equal(t, []byte(s), got.Content)
		assert.Equal(t, "#"+s, types.Fragment(got.Address))
	}
}
