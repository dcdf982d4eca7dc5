package config

import (
	"fmt"
	"net"
	"time"
)

// TransportConfig 传输配置
//
// 每种协议独立启用；Listen 为本地监听地址，Advertise 为写入联系人记录的
// 对外地址（为空时由监听地址推导）。
type TransportConfig struct {
	HTTP      EndpointConfig `json:"http"`
	WebSocket EndpointConfig `json:"ws"`
	TCP       EndpointConfig `json:"tcp"`
	UDP       EndpointConfig `json:"udp"`
	QUIC      EndpointConfig `json:"quic"`

	// SendTimeout 单条消息发送超时
	SendTimeout Duration `json:"send_timeout"`

	// DialRetries 建连失败后的重试次数
	DialRetries int `json:"dial_retries"`

	// MaxMessageSize 单条消息帧的最大字节数
	MaxMessageSize int `json:"max_message_size"`
}

// EndpointConfig 单个传输协议的端点配置
type EndpointConfig struct {
	Enable    bool   `json:"enable"`
	Listen    string `json:"listen"`
	Advertise string `json:"advertise,omitempty"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		HTTP:           EndpointConfig{Listen: "127.0.0.1:0"},
		WebSocket:      EndpointConfig{Listen: "127.0.0.1:0"},
		TCP:            EndpointConfig{Enable: true, Listen: "127.0.0.1:0"},
		UDP:            EndpointConfig{Listen: "127.0.0.1:0"},
		QUIC:           EndpointConfig{Listen: "127.0.0.1:0"},
		SendTimeout:    Duration(10 * time.Second),
		DialRetries:    3,
		MaxMessageSize: 1 << 20,
	}
}

// Endpoints 返回 协议名 → 端点配置
func (c TransportConfig) Endpoints() map[string]EndpointConfig {
	return map[string]EndpointConfig{
		"http": c.HTTP,
		"ws":   c.WebSocket,
		"tcp":  c.TCP,
		"udp":  c.UDP,
		"quic": c.QUIC,
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	for scheme, ep := range c.Endpoints() {
		if !ep.Enable {
			continue
		}
		if _, _, err := net.SplitHostPort(ep.Listen); err != nil {
			return fmt.Errorf("%w: transport.%s.listen %q", ErrInvalidListen, scheme, ep.Listen)
		}
	}
	if c.SendTimeout < 0 {
		return fmt.Errorf("%w: transport.send_timeout", ErrNegativeDuration)
	}
	if c.DialRetries < 0 {
		return fmt.Errorf("%w: transport.dial_retries", ErrNegativeValue)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: transport.max_message_size", ErrNegativeValue)
	}
	return nil
}
