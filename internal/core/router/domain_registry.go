package router

import (
	"sort"
	"sync"

	"github.com/dep2p/go-ansible/pkg/types"
)

// DomainEntry 域注册表条目
type DomainEntry struct {
	// Name 域名
	Name string

	// Receptionist 本地接待者
	Receptionist types.Receptionist

	// Contact 注册时发布到发现后端的记录
	Contact *types.Contact
}

// DomainRegistry 域注册表
//
// 一个域名同一时刻最多对应一个条目，重复注册静默覆盖。
type DomainRegistry struct {
	mu      sync.RWMutex
	entries map[string]DomainEntry
}

// NewDomainRegistry 创建域注册表
func NewDomainRegistry() *DomainRegistry {
	return &DomainRegistry{
		entries: make(map[string]DomainEntry),
	}
}

// Put 存储条目，返回是否覆盖了已有条目
func (r *DomainRegistry) Put(name string, receptionist types.Receptionist, contact *types.Contact) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced = r.entries[name]
	r.entries[name] = DomainEntry{Name: name, Receptionist: receptionist, Contact: contact}
	return replaced
}

// Delete 删除条目
func (r *DomainRegistry) Delete(name string) (DomainEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if ok {
		delete(r.entries, name)
	}
	return entry, ok
}

// Lookup 查找条目
func (r *DomainRegistry) Lookup(name string) (DomainEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	return entry, ok
}

// Names 返回已注册的域名（已排序）
func (r *DomainRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
