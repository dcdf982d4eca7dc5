// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Transport.HTTP.Enable = true
//	cfg.Router.Selection = "first"
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

// Config 是节点的完整配置结构
//
// 配置按照功能模块组织：
//   - Router: 出站路由（传输选择、解析超时）
//   - Discovery: 发现后端（内存/Redis）与缓存
//   - Transport: 各传输协议的监听与通告地址
//   - Metrics: Prometheus 指标
type Config struct {
	// Router 路由配置
	Router RouterConfig `json:"router"`

	// Discovery 发现配置
	Discovery DiscoveryConfig `json:"discovery"`

	// Transport 传输配置
	Transport TransportConfig `json:"transport"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Domains 启动时注册的域名
	//
	// 由命令行工具使用，每个域挂载一个记录日志的接待者。
	Domains []string `json:"domains,omitempty"`
}

// NewConfig 创建默认配置
//
// 默认使用内存发现后端，仅启用 TCP 传输。
func NewConfig() *Config {
	return &Config{
		Router:    DefaultRouterConfig(),
		Discovery: DefaultDiscoveryConfig(),
		Transport: DefaultTransportConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Router.Validate(); err != nil {
		return err
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	for _, name := range c.Domains {
		if name == "" {
			return ErrEmptyDomain
		}
	}
	return nil
}
