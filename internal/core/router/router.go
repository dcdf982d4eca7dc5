// Package router 实现位置透明的消息路由器
//
// 路由器维护两张表：
//   - 传输注册表：协议名 → 通告数据与发送操作
//   - 域注册表：本地域名 → 接待者
//
// 出站时通过发现协作者把域名解析为联系人记录，选出双方都支持的传输，
// 把负载封装成信封交给传输；入站时解包信封并交给对应域的接待者。
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("router")

// Router 路由器
type Router struct {
	discovery  interfaces.Discovery
	domains    *DomainRegistry
	transports *TransportRegistry
	selector   Selector
	metrics    interfaces.RouterMetrics
	config     *Config

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

var _ interfaces.Router = (*Router)(nil)

// New 创建路由器
func New(discovery interfaces.Discovery, opts ...Option) (*Router, error) {
	if discovery == nil {
		return nil, ErrNilDiscovery
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	selector := cfg.Selector
	if selector == nil {
		s, err := NewSelector(cfg.Selection)
		if err != nil {
			return nil, err
		}
		selector = s
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	base := cfg.BaseContext
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)

	return &Router{
		discovery:  discovery,
		domains:    NewDomainRegistry(),
		transports: NewTransportRegistry(),
		selector:   selector,
		metrics:    metrics,
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// ============================================================================
//                              注册
// ============================================================================

// RegisterTransport 注册（或覆盖）传输
//
// send 为 nil 的传输仍会出现在通告数据中，但不会被选为出站传输。
func (r *Router) RegisterTransport(scheme, data string, send interfaces.SendFunc) {
	if scheme == "" {
		log.Warn("忽略空协议名的传输注册")
		return
	}
	r.transports.Register(scheme, data, send)
	log.Debug("传输已注册", "scheme", scheme, "data", data, "sendable", send != nil)
}

// RegisterDomain 注册本地域并向发现后端发布
//
// 发布失败时不修改域注册表。重复注册同名域时覆盖之前的接待者，
// 且不会先注销旧记录。
func (r *Router) RegisterDomain(ctx context.Context, name string, receptionist types.Receptionist) (*types.Contact, error) {
	if name == "" || receptionist == nil {
		return nil, ErrInvalidDomain
	}

	contact := &types.Contact{
		ID:   name,
		Data: r.transports.Advertisement(),
	}

	registered, err := r.discovery.Register(ctx, contact)
	if err != nil {
		log.Warn("域发布失败", "domain", name, "error", err)
		return nil, fmt.Errorf("register domain %s: %w", name, err)
	}
	if registered == nil {
		registered = contact
	}

	if replaced := r.domains.Put(name, receptionist, registered); replaced {
		log.Warn("域已存在，覆盖接待者", "domain", name)
	}
	log.Info("域已注册", "domain", name, "contact", registered.String())

	return registered.Clone(), nil
}

// UnregisterDomain 注销本地域
//
// 未注册的域为 no-op。
func (r *Router) UnregisterDomain(ctx context.Context, name string) error {
	if _, ok := r.domains.Delete(name); !ok {
		return nil
	}
	if err := r.discovery.Unregister(ctx, name); err != nil {
		log.Warn("域注销失败", "domain", name, "error", err)
		return fmt.Errorf("unregister domain %s: %w", name, err)
	}
	log.Info("域已注销", "domain", name)
	return nil
}

// ============================================================================
//                              查询
// ============================================================================

// Domains 返回已注册的域名
func (r *Router) Domains() []string {
	return r.domains.Names()
}

// Transports 返回已注册的协议名
func (r *Router) Transports() []string {
	return r.transports.Schemes()
}

// Contact 返回本地域注册时发布的记录
func (r *Router) Contact(name string) (*types.Contact, bool) {
	entry, ok := r.domains.Lookup(name)
	if !ok {
		return nil, false
	}
	return entry.Contact.Clone(), true
}

// Selector 返回当前选择策略
func (r *Router) Selector() Selector {
	return r.selector
}

// Close 取消进行中的解析
//
// 之后仍可调用 Send，但依赖上下文的发现后端会立即失败。
func (r *Router) Close() error {
	r.closeOnce.Do(r.cancel)
	return nil
}
