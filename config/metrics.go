package config

import "fmt"

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enable 启用 Prometheus 指标
	Enable bool `json:"enable"`

	// Namespace 指标命名空间
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enable:    false,
		Namespace: "ansible",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Enable && c.Namespace == "" {
		return fmt.Errorf("%w: metrics.namespace", ErrMissingField)
	}
	return nil
}
