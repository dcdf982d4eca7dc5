package router

import (
	"context"
	"time"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/pkg/interfaces"
)

// Config 路由器配置
type Config struct {
	// Selection 传输选择策略名
	Selection string

	// ResolveTimeout 域解析超时，0 表示不限
	ResolveTimeout time.Duration

	// Selector 自定义选择策略，非 nil 时优先于 Selection
	Selector Selector

	// Metrics 指标观察者，nil 时不记录
	Metrics interfaces.RouterMetrics

	// BaseContext 发现调用的根上下文，Close 时取消
	BaseContext context.Context
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Selection: SelectRandom,
	}
}

// ConfigFromUnified 从统一配置转换
func ConfigFromUnified(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Selection = cfg.Router.Selection
	c.ResolveTimeout = cfg.Router.ResolveTimeout.Duration()
	return c
}

// Option 配置选项函数
type Option func(*Config)

// WithSelection 设置选择策略
func WithSelection(policy string) Option {
	return func(c *Config) {
		c.Selection = policy
	}
}

// WithSelector 设置自定义选择策略
func WithSelector(s Selector) Option {
	return func(c *Config) {
		c.Selector = s
	}
}

// WithResolveTimeout 设置解析超时
func WithResolveTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ResolveTimeout = timeout
	}
}

// WithMetrics 设置指标观察者
func WithMetrics(m interfaces.RouterMetrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithBaseContext 设置根上下文
func WithBaseContext(ctx context.Context) Option {
	return func(c *Config) {
		c.BaseContext = ctx
	}
}

// WithConfig 整体替换配置中的策略与超时
func WithConfig(cfg *Config) Option {
	return func(c *Config) {
		if cfg == nil {
			return
		}
		c.Selection = cfg.Selection
		c.ResolveTimeout = cfg.ResolveTimeout
		if cfg.Selector != nil {
			c.Selector = cfg.Selector
		}
		if cfg.Metrics != nil {
			c.Metrics = cfg.Metrics
		}
		if cfg.BaseContext != nil {
			c.BaseContext = cfg.BaseContext
		}
	}
}

// nopMetrics 不记录任何指标
type nopMetrics struct{}

func (nopMetrics) SendStarted() {}
func (nopMetrics) SendFailed(string) {}
func (nopMetrics) SendDispatched(string) {}
func (nopMetrics) SendCompleted(string) {}
func (nopMetrics) InboundDelivered() {}
func (nopMetrics) InboundDropped(string) {}
func (nopMetrics) HintApplied(bool) {}
func (nopMetrics) ReceptionistPanicked() {}

var _ interfaces.RouterMetrics = nopMetrics{}
