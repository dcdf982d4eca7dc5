package router

import (
	"sort"
	"sync"

	"github.com/dep2p/go-ansible/pkg/interfaces"
)

// TransportEntry 传输注册表条目
type TransportEntry struct {
	// Scheme 协议名
	Scheme string

	// Data 通告数据（本节点在该协议下的地址）
	Data string

	// Send 发送操作
	Send interfaces.SendFunc
}

// TransportRegistry 传输注册表
//
// 协议名 → 通告数据与发送操作。条目不会被单独移除。
type TransportRegistry struct {
	mu      sync.RWMutex
	entries map[string]TransportEntry
}

// NewTransportRegistry 创建传输注册表
func NewTransportRegistry() *TransportRegistry {
	return &TransportRegistry{
		entries: make(map[string]TransportEntry),
	}
}

// Register 注册或覆盖传输
func (r *TransportRegistry) Register(scheme, data string, send interfaces.SendFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[scheme] = TransportEntry{Scheme: scheme, Data: data, Send: send}
}

// Lookup 查找传输
func (r *TransportRegistry) Lookup(scheme string) (TransportEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[scheme]
	return entry, ok
}

// Advertisement 返回 协议名 → 通告数据 的快照
func (r *TransportRegistry) Advertisement() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := make(map[string]string, len(r.entries))
	for scheme, entry := range r.entries {
		data[scheme] = entry.Data
	}
	return data
}

// Schemes 返回已注册的协议名（已排序）
func (r *TransportRegistry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemes := make([]string, 0, len(r.entries))
	for scheme := range r.entries {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}
