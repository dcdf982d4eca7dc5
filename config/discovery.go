package config

import (
	"fmt"
	"time"
)

// 发现后端
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DiscoveryConfig 发现配置
type DiscoveryConfig struct {
	// Backend 发现后端："memory" 或 "redis"
	Backend string `json:"backend"`

	// Location 注册时附加到联系人记录的节点位置（可选）
	Location *LocationConfig `json:"location,omitempty"`

	// RecordTTL 联系人记录的存活时间，0 表示永不过期
	RecordTTL Duration `json:"record_ttl"`

	// Cache 解析结果缓存
	Cache CacheConfig `json:"cache"`

	// Redis Redis 后端配置
	Redis RedisConfig `json:"redis"`
}

// LocationConfig 节点位置
type LocationConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// CacheConfig 解析缓存配置
type CacheConfig struct {
	// Enable 启用缓存
	Enable bool `json:"enable"`

	// Size 最大条目数
	Size int `json:"size"`

	// TTL 条目存活时间
	TTL Duration `json:"ttl"`
}

// RedisConfig Redis 后端配置
type RedisConfig struct {
	// URL 连接串，如 redis://localhost:6379/0
	URL string `json:"url"`

	// KeyPrefix 记录键前缀
	KeyPrefix string `json:"key_prefix"`

	// PoolSize 连接池大小，0 使用客户端默认值
	PoolSize int `json:"pool_size"`

	// DialTimeout 建连超时
	DialTimeout Duration `json:"dial_timeout"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Backend:   BackendMemory,
		RecordTTL: Duration(10 * time.Minute),
		Cache: CacheConfig{
			Enable: false,
			Size:   1024,
			TTL:    Duration(30 * time.Second),
		},
		Redis: RedisConfig{
			URL:         "redis://localhost:6379/0",
			KeyPrefix:   "ansible:contact:",
			DialTimeout: Duration(5 * time.Second),
		},
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("%w: discovery.redis.url", ErrMissingField)
		}
		if c.Redis.PoolSize < 0 {
			return fmt.Errorf("%w: discovery.redis.pool_size", ErrNegativeValue)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}

	if c.RecordTTL < 0 || c.Cache.TTL < 0 || c.Redis.DialTimeout < 0 {
		return fmt.Errorf("%w: discovery", ErrNegativeDuration)
	}
	if c.Cache.Enable && c.Cache.Size <= 0 {
		return fmt.Errorf("%w: discovery.cache.size", ErrNegativeValue)
	}
	if c.Location != nil && (c.Location.Port < 0 || c.Location.Port > 65535) {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Location.Port)
	}
	return nil
}
