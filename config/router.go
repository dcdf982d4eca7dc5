package config

import (
	"fmt"
)

// 传输选择策略
const (
	SelectionRandom = "random"
	SelectionFirst  = "first"
)

// RouterConfig 出站路由配置
type RouterConfig struct {
	// Selection 多个候选传输时的选择策略："random" 或 "first"
	Selection string `json:"selection"`

	// ResolveTimeout 域解析超时，0 表示不限
	//
	// 超时后发现协作者的回调仍可能到达，由解析令牌保证只处理一次。
	ResolveTimeout Duration `json:"resolve_timeout"`
}

// DefaultRouterConfig 返回默认路由配置
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Selection: SelectionRandom,
	}
}

// Validate 验证路由配置
func (c RouterConfig) Validate() error {
	switch c.Selection {
	case SelectionRandom, SelectionFirst:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSelection, c.Selection)
	}
	if c.ResolveTimeout < 0 {
		return fmt.Errorf("%w: resolve_timeout", ErrNegativeDuration)
	}
	return nil
}
