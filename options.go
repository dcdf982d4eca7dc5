package ansible

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/internal/core/discovery/memory"
	"github.com/dep2p/go-ansible/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*nodeConfig) error

// nodeConfig 内部选项结构
type nodeConfig struct {
	config *config.Config

	// discovery 外部提供的发现后端（替代配置中的后端）
	discovery interfaces.Discovery

	// network 进程内共享的 memory 记录表
	network *memory.Network

	// transports 额外传输
	transports []interfaces.Transport

	// registerer 指标注册器
	registerer prometheus.Registerer

	// userFxOptions 用户扩展
	userFxOptions []fx.Option
}

func newNodeConfig() *nodeConfig {
	return &nodeConfig{config: config.NewConfig()}
}

// WithConfig 使用统一配置
func WithConfig(cfg *config.Config) Option {
	return func(c *nodeConfig) error {
		if cfg == nil {
			return config.ErrNilConfig
		}
		c.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载统一配置
func WithConfigFile(path string) Option {
	return func(c *nodeConfig) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		c.config = cfg
		return nil
	}
}

// WithDiscovery 使用外部发现后端
//
// 节点停止时不会关闭外部后端。
func WithDiscovery(d interfaces.Discovery) Option {
	return func(c *nodeConfig) error {
		if d == nil {
			return errors.New("discovery is nil")
		}
		c.discovery = d
		return nil
	}
}

// MemoryNetwork 进程内共享的发现记录表
type MemoryNetwork = memory.Network

// NewMemoryNetwork 创建进程内记录表，供 WithNetwork 使用
func NewMemoryNetwork() *MemoryNetwork {
	return memory.NewNetwork()
}

// WithNetwork 让 memory 后端加入共享的进程内记录表
//
// 同一进程内的多个节点共享同一个 Network 才能互相解析。
func WithNetwork(network *MemoryNetwork) Option {
	return func(c *nodeConfig) error {
		c.network = network
		return nil
	}
}

// WithTransports 追加额外传输
func WithTransports(transports ...interfaces.Transport) Option {
	return func(c *nodeConfig) error {
		c.transports = append(c.transports, transports...)
		return nil
	}
}

// WithRegisterer 启用指标并注册到 reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *nodeConfig) error {
		c.registerer = reg
		return nil
	}
}

// WithFxOption 追加 fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(c *nodeConfig) error {
		c.userFxOptions = append(c.userFxOptions, opts...)
		return nil
	}
}
