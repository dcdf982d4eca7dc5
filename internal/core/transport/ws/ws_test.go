package ws

import (
	"testing"

	"github.com/gorilla/websocket"
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

func TestTransport_AdvertiseHasPath(t *testing.T) {
	tr := transporttest.Listening(t, newTransport, func(*types.Message) {})
	assert.Regexp(t, `^ws://127\.0\.0\.1:\d+/ansible$`, tr.Advertise())
}

func TestTransport_RawClient(t *testing.T) {
	inbox := transporttest.NewInbox()
	server := transporttest.Listening(t, newTransport, inbox.Handler())

	conn, resp, err := websocket.DefaultDialer.Dial(server.Advertise(), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	t.Run("无法解码的帧被丢弃", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("nope")))
	})

	t.Run("文本帧同样接受", func(t *testing.T) {
		data, err := frame.Marshal(frame.Frame{Address: server.Advertise() + "/#t", Content: []byte("text")}, 0)
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

		got := inbox.Next(t)
		assert.Equal(t, []byte("text"), got.Content)
		assert.Equal(t, "#t", types.Fragment(got.Address))
	})
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
