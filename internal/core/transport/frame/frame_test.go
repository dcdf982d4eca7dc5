package frame

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ansible/pkg/types"
)

func TestFrame_Stream(t *testing.T) {
	var buf bytes.Buffer
	first := Frame{Address: "tcp://127.0.0.1:1/#a", Content: []byte{0x00, 0xff, 0x10}}
	second := Frame{Address: "tcp://127.0.0.1:1/#b", Content: []byte("hello")}

	require.NoError(t, Write(&buf, first, 0))
	require.NoError(t, Write(&buf, second, 0))

	r := bufio.NewReader(&buf)
	got, err := Read(r, 0)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = Read(r, 0)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = Read(r, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrame_Limits(t *testing.T) {
	big := Frame{Address: "udp://x/#y", Content: bytes.Repeat([]byte{1}, 256)}

	t.Run("编码超限", func(t *testing.T) {
		_, err := Marshal(big, 64)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("读取超限", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, big, 0))
		_, err := Read(bufio.NewReader(&buf), 64)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("非法帧体", func(t *testing.T) {
		_, err := Unmarshal([]byte("{nope"), 0)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("截断", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, big, 0))
		truncated := buf.Bytes()[:buf.Len()-10]
		_, err := Read(bufio.NewReader(bytes.NewReader(truncated)), 0)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestFrame_Message(t *testing.T) {
	msg := &types.Message{Address: "quic://h:1/#c", Content: []byte("x"), OK: func() {}}
	f := FromMessage(msg)
	in := f.Message()

	assert.Equal(t, msg.Address, in.Address)
	assert.Equal(t, msg.Content, in.Content)
	assert.Nil(t, in.OK)
	assert.Nil(t, in.Fail)
}
