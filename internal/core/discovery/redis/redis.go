// Package redis 提供基于 Redis 的发现后端
//
// 每个域一条 JSON 记录，键为 KeyPrefix + 域名，带 TTL。
// 入站提示用 SETNX 写入，不覆盖域主人自己发布的记录。
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("discovery/redis")

// 预定义错误
var (
	// ErrNotFound 记录不存在或已过期
	ErrNotFound = errors.New("redis: record not found")

	// ErrInvalidRecord 记录缺少 ID
	ErrInvalidRecord = errors.New("redis: invalid record")

	// ErrMissingURL 未配置连接串
	ErrMissingURL = errors.New("redis: url is required")
)

// Config Redis 发现配置
type Config struct {
	URL         string
	KeyPrefix   string
	PoolSize    int
	DialTimeout time.Duration
	RecordTTL   time.Duration
	Location    *types.Location
}

// Discovery 实现 interfaces.Discovery
type Discovery struct {
	client   *goredis.Client
	prefix   string
	ttl      time.Duration
	location *types.Location

	// ownsClient 为 true 时 Close 关闭客户端
	ownsClient bool
	wg         sync.WaitGroup
}

var _ interfaces.DiscoveryCloser = (*Discovery)(nil)

// New 连接 Redis 并创建发现后端
func New(ctx context.Context, cfg Config) (*Discovery, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	d := NewWithClient(client, cfg)
	d.ownsClient = true
	log.Info("Redis 发现后端已连接", "addr", opts.Addr, "db", opts.DB, "prefix", d.prefix)
	return d, nil
}

// NewWithClient 使用已有客户端创建发现后端，Close 不会关闭该客户端
func NewWithClient(client *goredis.Client, cfg Config) *Discovery {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ansible:contact:"
	}
	return &Discovery{
		client:   client,
		prefix:   prefix,
		ttl:      cfg.RecordTTL,
		location: cfg.Location,
	}
}

func (d *Discovery) key(id string) string {
	return d.prefix + id
}

// Register 写入记录
func (d *Discovery) Register(ctx context.Context, contact *types.Contact) (*types.Contact, error) {
	if contact == nil || contact.ID == "" {
		return nil, ErrInvalidRecord
	}

	c := contact.Clone()
	if d.location != nil {
		loc := *d.location
		c.Location = &loc
	}

	data, err := encodeContact(c)
	if err != nil {
		return nil, err
	}
	if err := d.client.Set(ctx, d.key(c.ID), data, d.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis set %s: %w", c.ID, err)
	}
	return c, nil
}

// Unregister 删除记录
func (d *Discovery) Unregister(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, d.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", id, err)
	}
	return nil
}

// Find 异步读取记录
func (d *Discovery) Find(ctx context.Context, id string, cb interfaces.FindCallback) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		cb(d.lookup(ctx, id))
	}()
}

func (d *Discovery) lookup(ctx context.Context, id string) (*types.Contact, error) {
	data, err := d.client.Get(ctx, d.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	return decodeContact(data)
}

// Add 写入提示记录（仅当键不存在时）
func (d *Discovery) Add(ctx context.Context, hint *types.Contact) error {
	if hint == nil || hint.ID == "" {
		return ErrInvalidRecord
	}

	data, err := encodeContact(hint)
	if err != nil {
		return err
	}
	set, err := d.client.SetNX(ctx, d.key(hint.ID), data, d.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %s: %w", hint.ID, err)
	}
	if !set {
		log.Debug("已有记录，忽略提示", "id", hint.ID)
	}
	return nil
}

// Close 等待进行中的 Find，并关闭自己创建的客户端
func (d *Discovery) Close() error {
	d.wg.Wait()
	if d.ownsClient {
		return d.client.Close()
	}
	return nil
}

// ============================================================================
//                              编解码
// ============================================================================

func encodeContact(c *types.Contact) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode contact %s: %w", c.ID, err)
	}
	return data, nil
}

func decodeContact(data []byte) (*types.Contact, error) {
	c := &types.Contact{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode contact: %w", err)
	}
	if c.ID == "" {
		return nil, ErrInvalidRecord
	}
	return c, nil
}
