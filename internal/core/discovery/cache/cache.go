// Package cache 为任意发现后端提供解析结果缓存
//
// 成功的 Find 结果写入带 TTL 的 LRU；命中时不再访问底层后端。
// 底层后端的重复回调原样透传，由调用方去重。
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("discovery/cache")

// Stats 缓存命中统计
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// Discovery 带缓存的发现后端
type Discovery struct {
	inner interfaces.Discovery
	lru   *expirable.LRU[string, *types.Contact]

	hits   atomic.Int64
	misses atomic.Int64
}

var _ interfaces.DiscoveryCloser = (*Discovery)(nil)

// New 包装底层后端
func New(inner interfaces.Discovery, size int, ttl time.Duration) *Discovery {
	return &Discovery{
		inner: inner,
		lru:   expirable.NewLRU[string, *types.Contact](size, nil, ttl),
	}
}

// Register 发布记录，并缓存发布结果
func (d *Discovery) Register(ctx context.Context, contact *types.Contact) (*types.Contact, error) {
	registered, err := d.inner.Register(ctx, contact)
	if err != nil {
		return nil, err
	}
	if registered != nil {
		d.lru.Add(registered.ID, registered.Clone())
	}
	return registered, nil
}

// Unregister 移除记录并失效缓存
func (d *Discovery) Unregister(ctx context.Context, id string) error {
	d.lru.Remove(id)
	return d.inner.Unregister(ctx, id)
}

// Find 先查缓存，未命中时访问底层后端
func (d *Discovery) Find(ctx context.Context, id string, cb interfaces.FindCallback) {
	if c, ok := d.lru.Get(id); ok {
		d.hits.Add(1)
		go cb(c.Clone(), nil)
		return
	}

	d.misses.Add(1)
	d.inner.Find(ctx, id, func(c *types.Contact, err error) {
		if err == nil && c != nil {
			d.lru.Add(id, c.Clone())
		}
		cb(c, err)
	})
}

// Add 转交提示；缓存中没有该域时同时写入缓存
func (d *Discovery) Add(ctx context.Context, hint *types.Contact) error {
	if err := d.inner.Add(ctx, hint); err != nil {
		return err
	}
	if hint != nil && hint.ID != "" && !d.lru.Contains(hint.ID) {
		d.lru.Add(hint.ID, hint.Clone())
	}
	return nil
}

// Invalidate 失效单个域
func (d *Discovery) Invalidate(id string) {
	d.lru.Remove(id)
}

// Stats 返回统计
func (d *Discovery) Stats() Stats {
	return Stats{
		Hits:   d.hits.Load(),
		Misses: d.misses.Load(),
		Size:   d.lru.Len(),
	}
}

// Close 清空缓存并关闭底层后端
func (d *Discovery) Close() error {
	d.lru.Purge()
	if closer, ok := d.inner.(interfaces.DiscoveryCloser); ok {
		log.Debug("关闭底层发现后端")
		return closer.Close()
	}
	return nil
}
