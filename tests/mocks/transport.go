package mocks

import (
	"context"
	"sync"

	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

// MockTransport 模拟 Transport 接口实现
//
// 默认行为：Send 记录消息后立即调用 OK。
type MockTransport struct {
	SchemeValue    string
	AdvertiseValue string

	// 可覆盖的方法
	SendFunc   func(msg *types.Message)
	ListenFunc func(ctx context.Context, handler interfaces.InboundHandler) error
	CloseFunc  func() error

	mu      sync.Mutex
	sent    []*types.Message
	handler interfaces.InboundHandler
	closed  bool
}

var _ interfaces.Transport = (*MockTransport)(nil)

// NewMockTransport 创建带有默认值的 MockTransport
func NewMockTransport(scheme, advertise string) *MockTransport {
	return &MockTransport{
		SchemeValue:    scheme,
		AdvertiseValue: advertise,
	}
}

// Scheme 返回协议名
func (m *MockTransport) Scheme() string {
	return m.SchemeValue
}

// Advertise 返回通告地址
func (m *MockTransport) Advertise() string {
	return m.AdvertiseValue
}

// Send 记录消息
func (m *MockTransport) Send(msg *types.Message) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	if m.SendFunc != nil {
		m.SendFunc(msg)
		return
	}
	msg.Succeed()
}

// Listen 保存入站处理器
func (m *MockTransport) Listen(ctx context.Context, handler interfaces.InboundHandler) error {
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()

	if m.ListenFunc != nil {
		return m.ListenFunc(ctx, handler)
	}
	return nil
}

// Close 关闭
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Sent 返回已发送消息的副本
func (m *MockTransport) Sent() []*types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Message(nil), m.sent...)
}

// Deliver 模拟一条入站消息
func (m *MockTransport) Deliver(msg *types.Message) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()

	if h != nil {
		h(msg)
	}
}

// Closed 是否已关闭
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
