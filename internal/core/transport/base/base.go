// Package base 提供各传输共用的配置、地址拆分与入站分发
package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrClosed 传输已关闭
	ErrClosed = errors.New("transport: closed")

	// ErrAlreadyListening 重复调用 Listen
	ErrAlreadyListening = errors.New("transport: already listening")

	// ErrInvalidAddress 传输地址无法拆分
	ErrInvalidAddress = errors.New("transport: invalid address")

	// ErrSchemeMismatch 传输地址的协议名与传输不符
	ErrSchemeMismatch = errors.New("transport: scheme mismatch")

	// ErrRejected 对端拒收
	ErrRejected = errors.New("transport: rejected by peer")

	// ErrHandlerPanic 入站处理器 panic
	ErrHandlerPanic = errors.New("transport: inbound handler panic")
)

// ============================================================================
//                              配置
// ============================================================================

// Config 单个传输的配置
type Config struct {
	// Listen 监听地址 host:port
	Listen string

	// Advertise 通告地址（为空时由监听地址推导）
	Advertise string

	// SendTimeout 单条消息的发送超时
	SendTimeout time.Duration

	// DialRetries 建连重试次数
	DialRetries int

	// MaxMessageSize 单帧上限
	MaxMessageSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Listen:         "127.0.0.1:0",
		SendTimeout:    10 * time.Second,
		DialRetries:    3,
		MaxMessageSize: 1 << 20,
	}
}

// ConfigFromUnified 从统一配置提取指定协议的传输配置
func ConfigFromUnified(cfg *config.Config, scheme string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if ep, ok := cfg.Transport.Endpoints()[scheme]; ok {
		if ep.Listen != "" {
			c.Listen = ep.Listen
		}
		c.Advertise = ep.Advertise
	}
	if d := cfg.Transport.SendTimeout.Duration(); d > 0 {
		c.SendTimeout = d
	}
	if cfg.Transport.DialRetries >= 0 {
		c.DialRetries = cfg.Transport.DialRetries
	}
	if cfg.Transport.MaxMessageSize > 0 {
		c.MaxMessageSize = cfg.Transport.MaxMessageSize
	}
	return c
}

// ============================================================================
//                              地址
// ============================================================================

// Target 拆分后的传输地址
//
//	tcp://127.0.0.1:4001/#cap  → Host=127.0.0.1:4001 Capability=cap
//	ws://127.0.0.1:4002/ansible/#cap → Host=127.0.0.1:4002 Path=/ansible
type Target struct {
	// Base 去掉片段后的对端地址
	Base string

	// Host host:port
	Host string

	// Path 路径（可为空）
	Path string

	// Capability 能力片段
	Capability string
}

// ParseTarget 拆分 <scheme>://<host:port>[path]/#<capability>
func ParseTarget(scheme, addr string) (Target, error) {
	baseAddr, capability, ok := strings.Cut(addr, types.CapabilitySep)
	if !ok {
		return Target{}, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	rest, ok := strings.CutPrefix(baseAddr, scheme+"://")
	if !ok {
		return Target{}, fmt.Errorf("%w: want %s, got %s", ErrSchemeMismatch, scheme, addr)
	}

	host, path := rest, ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		host, path = rest[:i], rest[i:]
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		return Target{}, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}

	return Target{Base: baseAddr, Host: host, Path: path, Capability: capability}, nil
}

// AdvertiseAddr 计算通告地址
//
// 配置的通告地址不带协议名时补上 scheme 与 path。
func AdvertiseAddr(scheme, configured string, listen net.Addr, path string) string {
	if configured != "" {
		if strings.Contains(configured, "://") {
			return configured
		}
		return scheme + "://" + configured + path
	}
	if listen == nil {
		return ""
	}
	return scheme + "://" + listen.String() + path
}

// ============================================================================
//                              入站与完成
// ============================================================================

// Dispatch 调用入站处理器并恢复其 panic
func Dispatch(handler interfaces.InboundHandler, msg *types.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("%w: %w", ErrHandlerPanic, e)
				return
			}
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	handler(msg)
	return nil
}

// Complete 按 err 调用 msg 的完成回调
func Complete(msg *types.Message, err error) {
	if err != nil {
		msg.Failed(err)
		return
	}
	msg.Succeed()
}

// ============================================================================
//                              建连重试
// ============================================================================

const (
	retryInitialInterval = 50 * time.Millisecond
	retryMaxInterval     = time.Second
)

// Retry 以指数退避执行 op，首次之外最多重试 retries 次
//
// ctx 取消时立即停止。
func Retry(ctx context.Context, retries int, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryInitialInterval
	eb.MaxInterval = retryMaxInterval
	eb.MaxElapsedTime = 0

	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
	return backoff.Retry(op, b)
}
