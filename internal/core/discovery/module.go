// Package discovery 提供发现后端模块
//
// 根据配置选择后端：
//   - memory: 进程内共享记录表（测试与单进程多节点）
//   - redis: 多进程共享的 Redis 记录
//
// 可选地在后端外包一层 LRU 解析缓存。
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/internal/core/discovery/cache"
	"github.com/dep2p/go-ansible/internal/core/discovery/memory"
	"github.com/dep2p/go-ansible/internal/core/discovery/redis"
	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

// 包级别日志实例
var log = logger.Logger("discovery")

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 统一配置（可选）
	Config *config.Config `optional:"true"`

	// Network 共享的进程内记录表（可选，memory 后端使用）
	Network *memory.Network `optional:"true"`

	// Clock 时钟（可选）
	Clock clock.Clock `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Discovery 发现后端
	Discovery interfaces.Discovery
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideDiscovery 按配置创建发现后端
func ProvideDiscovery(lc fx.Lifecycle, input ModuleInput) (ModuleOutput, error) {
	cfg := input.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}

	backend, err := newBackend(cfg.Discovery, input.Network, input.Clock)
	if err != nil {
		return ModuleOutput{}, err
	}

	var disc interfaces.DiscoveryCloser = backend
	if cfg.Discovery.Cache.Enable {
		disc = cache.New(backend, cfg.Discovery.Cache.Size, cfg.Discovery.Cache.TTL.Duration())
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			log.Info("发现后端关闭", "backend", cfg.Discovery.Backend)
			return disc.Close()
		},
	})

	log.Info("发现后端就绪",
		"backend", cfg.Discovery.Backend,
		"cache", cfg.Discovery.Cache.Enable)
	return ModuleOutput{Discovery: disc}, nil
}

func newBackend(cfg config.DiscoveryConfig, network *memory.Network, clk clock.Clock) (interfaces.DiscoveryCloser, error) {
	location := locationFromConfig(cfg.Location)

	switch cfg.Backend {
	case config.BackendMemory, "":
		if network == nil {
			opts := []memory.NetworkOption{memory.WithRecordTTL(cfg.RecordTTL.Duration())}
			if clk != nil {
				opts = append(opts, memory.WithClock(clk))
			}
			network = memory.NewNetwork(opts...)
		}
		return network.Node(location), nil

	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), dialBudget(cfg))
		defer cancel()
		d, err := redis.New(ctx, redis.Config{
			URL:         cfg.Redis.URL,
			KeyPrefix:   cfg.Redis.KeyPrefix,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout.Duration(),
			RecordTTL:   cfg.RecordTTL.Duration(),
			Location:    location,
		})
		if err != nil {
			return nil, err
		}
		return d, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
	}
}

// defaultDialBudget 未配置建连超时时的连接预算
const defaultDialBudget = 10 * time.Second

func dialBudget(cfg config.DiscoveryConfig) time.Duration {
	if d := cfg.Redis.DialTimeout.Duration() * 2; d > 0 {
		return d
	}
	return defaultDialBudget
}

func locationFromConfig(loc *config.LocationConfig) *types.Location {
	if loc == nil {
		return nil
	}
	return &types.Location{Host: loc.Host, Port: loc.Port}
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("discovery",
		fx.Provide(ProvideDiscovery),
	)
}
