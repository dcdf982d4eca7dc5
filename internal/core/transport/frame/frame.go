// Package frame 定义流式与报文传输共用的线上帧
//
// 帧体为 JSON {address, content}；流式传输（tcp、quic）在帧体前加
// varint 长度前缀，报文传输（udp、ws）一条报文即一帧。
package frame

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"

	"github.com/dep2p/go-ansible/pkg/types"
)

// DefaultMaxSize 未配置时的帧体上限
const DefaultMaxSize = 1 << 20

var (
	// ErrTooLarge 帧体超过上限
	ErrTooLarge = errors.New("frame: too large")

	// ErrMalformed 帧体无法解码
	ErrMalformed = errors.New("frame: malformed")
)

// Frame 线上帧
type Frame struct {
	// Address 传输地址（含 /#capability 片段）
	Address string `json:"address"`

	// Content 信封字节
	Content []byte `json:"content"`
}

// FromMessage 从消息构造帧
func FromMessage(msg *types.Message) Frame {
	return Frame{Address: msg.Address, Content: msg.Content}
}

// Message 转为入站消息（不带回调）
func (f Frame) Message() *types.Message {
	return &types.Message{Address: f.Address, Content: f.Content}
}

// Marshal 编码帧体
func Marshal(f Frame, maxSize int) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	if len(data) > limit(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(data), limit(maxSize))
	}
	return data, nil
}

// Unmarshal 解码帧体
func Unmarshal(data []byte, maxSize int) (Frame, error) {
	var f Frame
	if len(data) > limit(maxSize) {
		return f, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(data), limit(maxSize))
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return f, nil
}

// Encode 编码为 varint 长度前缀加帧体
func Encode(f Frame, maxSize int) ([]byte, error) {
	data, err := Marshal(f, maxSize)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, varint.UvarintSize(uint64(len(data)))+len(data))
	buf = append(buf, varint.ToUvarint(uint64(len(data)))...)
	return append(buf, data...), nil
}

// Write 写入一帧
func Write(w io.Writer, f Frame, maxSize int) error {
	buf, err := Encode(f, maxSize)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Read 读取一帧
//
// 流结束于帧边界时返回 io.EOF。
func Read(r *bufio.Reader, maxSize int) (Frame, error) {
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return Frame{}, err
	}
	if n > uint64(limit(maxSize)) {
		return Frame{}, fmt.Errorf("%w: %d > %d", ErrTooLarge, n, limit(maxSize))
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return Frame{}, err
	}
	return Unmarshal(data, maxSize)
}

func limit(maxSize int) int {
	if maxSize <= 0 {
		return DefaultMaxSize
	}
	return maxSize
}
