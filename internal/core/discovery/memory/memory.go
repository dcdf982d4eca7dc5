// Package memory 提供进程内发现后端
//
// Network 是若干节点共享的记录表，扮演 DHT 的角色；每个节点通过
// Network.Node 获得自己的 Discovery 视图，注册时记录被附加上节点位置。
// Find 总是异步回调，与真实网络后端的调用方式一致。
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("discovery/memory")

// 预定义错误
var (
	// ErrNotFound 记录不存在或已过期
	ErrNotFound = errors.New("memory: record not found")

	// ErrClosed 发现视图已关闭
	ErrClosed = errors.New("memory: discovery closed")

	// ErrInvalidRecord 记录缺少 ID
	ErrInvalidRecord = errors.New("memory: invalid record")
)

// ============================================================================
//                              记录
// ============================================================================

// record 带过期时间的记录，expires 为零值表示永不过期
type record struct {
	contact *types.Contact
	expires time.Time
}

func (r record) expired(now time.Time) bool {
	return !r.expires.IsZero() && !now.Before(r.expires)
}

// ============================================================================
//                              Network
// ============================================================================

// Network 共享记录表
type Network struct {
	mu      sync.RWMutex
	records map[string]record

	clock   clock.Clock
	ttl     time.Duration
	latency time.Duration
}

// NetworkOption Network 配置选项
type NetworkOption func(*Network)

// WithClock 设置时钟
func WithClock(clk clock.Clock) NetworkOption {
	return func(n *Network) {
		n.clock = clk
	}
}

// WithRecordTTL 设置记录存活时间，0 表示永不过期
func WithRecordTTL(ttl time.Duration) NetworkOption {
	return func(n *Network) {
		n.ttl = ttl
	}
}

// WithLatency 设置 Find 的模拟延迟
func WithLatency(d time.Duration) NetworkOption {
	return func(n *Network) {
		n.latency = d
	}
}

// NewNetwork 创建共享记录表
func NewNetwork(opts ...NetworkOption) *Network {
	n := &Network{
		records: make(map[string]record),
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Node 创建一个节点视图
//
// location 为 nil 时注册的记录不带位置。
func (n *Network) Node(location *types.Location) *Discovery {
	return &Discovery{
		network:  n,
		location: location,
		routes:   make(map[string]record),
	}
}

func (n *Network) put(c *types.Contact) {
	r := record{contact: c}
	if n.ttl > 0 {
		r.expires = n.clock.Now().Add(n.ttl)
	}

	n.mu.Lock()
	n.records[c.ID] = r
	n.mu.Unlock()
}

func (n *Network) remove(id string) {
	n.mu.Lock()
	delete(n.records, id)
	n.mu.Unlock()
}

func (n *Network) get(id string) (*types.Contact, bool) {
	n.mu.RLock()
	r, ok := n.records[id]
	n.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if r.expired(n.clock.Now()) {
		n.mu.Lock()
		if cur, ok := n.records[id]; ok && cur.expired(n.clock.Now()) {
			delete(n.records, id)
		}
		n.mu.Unlock()
		return nil, false
	}
	return r.contact.Clone(), true
}

// Len 返回未过期记录数
func (n *Network) Len() int {
	now := n.clock.Now()

	n.mu.RLock()
	defer n.mu.RUnlock()

	count := 0
	for _, r := range n.records {
		if !r.expired(now) {
			count++
		}
	}
	return count
}

// ============================================================================
//                              Discovery
// ============================================================================

// Discovery 节点视图，实现 interfaces.Discovery
type Discovery struct {
	network  *Network
	location *types.Location

	// routes 由入站提示学到的路由，仅本节点可见
	mu     sync.RWMutex
	routes map[string]record

	// lmu 保证 closed 检查与 wg.Add 原子
	lmu    sync.RWMutex
	closed atomic.Bool
	wg     sync.WaitGroup
}

var _ interfaces.DiscoveryCloser = (*Discovery)(nil)

// Register 发布记录并附加本节点位置
func (d *Discovery) Register(_ context.Context, contact *types.Contact) (*types.Contact, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if contact == nil || contact.ID == "" {
		return nil, ErrInvalidRecord
	}

	c := contact.Clone()
	if d.location != nil {
		loc := *d.location
		c.Location = &loc
	}
	d.network.put(c)

	log.Debug("记录已发布", "id", c.ID, "contact", c.String())
	return c.Clone(), nil
}

// Unregister 移除记录
func (d *Discovery) Unregister(_ context.Context, id string) error {
	if d.closed.Load() {
		return ErrClosed
	}
	d.network.remove(id)
	return nil
}

// Find 异步解析
//
// 优先使用共享记录表，找不到时回退到本节点从提示中学到的路由。
func (d *Discovery) Find(ctx context.Context, id string, cb interfaces.FindCallback) {
	d.lmu.RLock()
	if d.closed.Load() {
		d.lmu.RUnlock()
		go cb(nil, ErrClosed)
		return
	}
	d.wg.Add(1)
	d.lmu.RUnlock()

	go func() {
		defer d.wg.Done()

		if d.network.latency > 0 {
			select {
			case <-d.network.clock.After(d.network.latency):
			case <-ctx.Done():
				cb(nil, ctx.Err())
				return
			}
		}
		if err := ctx.Err(); err != nil {
			cb(nil, err)
			return
		}

		if c, ok := d.network.get(id); ok {
			cb(c, nil)
			return
		}
		if c, ok := d.route(id); ok {
			log.Debug("使用提示路由", "id", id)
			cb(c, nil)
			return
		}
		cb(nil, ErrNotFound)
	}()
}

// Add 记录入站提示
func (d *Discovery) Add(_ context.Context, hint *types.Contact) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if hint == nil || hint.ID == "" {
		return ErrInvalidRecord
	}

	r := record{contact: hint.Clone()}
	if d.network.ttl > 0 {
		r.expires = d.network.clock.Now().Add(d.network.ttl)
	}

	d.mu.Lock()
	d.routes[hint.ID] = r
	d.mu.Unlock()
	return nil
}

func (d *Discovery) route(id string) (*types.Contact, bool) {
	d.mu.RLock()
	r, ok := d.routes[id]
	d.mu.RUnlock()

	if !ok || r.expired(d.network.clock.Now()) {
		return nil, false
	}
	return r.contact.Clone(), true
}

// Close 关闭视图并等待进行中的 Find
func (d *Discovery) Close() error {
	d.lmu.Lock()
	swapped := d.closed.CompareAndSwap(false, true)
	d.lmu.Unlock()

	if !swapped {
		return nil
	}
	d.wg.Wait()
	return nil
}
