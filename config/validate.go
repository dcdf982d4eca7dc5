package config

import (
	"errors"
	"fmt"
)

// 配置错误
var (
	ErrNilConfig        = errors.New("config is nil")
	ErrInvalidSelection = errors.New("invalid selection policy")
	ErrInvalidBackend   = errors.New("invalid discovery backend")
	ErrInvalidListen    = errors.New("invalid listen address")
	ErrInvalidPort      = errors.New("invalid port")
	ErrMissingField     = errors.New("missing required field")
	ErrNegativeDuration = errors.New("duration must not be negative")
	ErrNegativeValue    = errors.New("value out of range")
	ErrEmptyDomain      = errors.New("empty domain name")
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，额外处理 nil。
func ValidateAll(c *Config) error {
	if c == nil {
		return ErrNilConfig
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 未知的选择策略 -> random
//   - 未启用任何传输 -> 启用 TCP
//   - 消息大小非正 -> 默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	if c.Router.Selection != SelectionFirst {
		c.Router.Selection = SelectionRandom
	}

	enabled := false
	for _, ep := range c.Transport.Endpoints() {
		enabled = enabled || ep.Enable
	}
	if !enabled {
		c.Transport.TCP.Enable = true
		if c.Transport.TCP.Listen == "" {
			c.Transport.TCP.Listen = DefaultTransportConfig().TCP.Listen
		}
	}

	if c.Transport.MaxMessageSize <= 0 {
		c.Transport.MaxMessageSize = DefaultTransportConfig().MaxMessageSize
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}
	return c, nil
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
}
