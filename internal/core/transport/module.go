package transport

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/fx"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/internal/core/transport/base"
	"github.com/dep2p/go-ansible/internal/core/transport/http"
	"github.com/dep2p/go-ansible/internal/core/transport/quic"
	"github.com/dep2p/go-ansible/internal/core/transport/tcp"
	"github.com/dep2p/go-ansible/internal/core/transport/udp"
	"github.com/dep2p/go-ansible/internal/core/transport/ws"
	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
)

var log = logger.Logger("transport")

// Factory 按配置创建传输
type Factory func(cfg base.Config) interfaces.Transport

// factories 内置传输
var factories = map[string]Factory{
	http.Scheme: func(cfg base.Config) interfaces.Transport { return http.New(cfg) },
	ws.Scheme:   func(cfg base.Config) interfaces.Transport { return ws.New(cfg) },
	tcp.Scheme:  func(cfg base.Config) interfaces.Transport { return tcp.New(cfg) },
	udp.Scheme:  func(cfg base.Config) interfaces.Transport { return udp.New(cfg) },
	quic.Scheme: func(cfg base.Config) interfaces.Transport { return quic.New(cfg) },
}

// ============================================================================
//                              配置
// ============================================================================

// Config 传输管理器配置
type Config struct {
	// Endpoints 启用的协议名到传输配置
	Endpoints map[string]base.Config
}

// NewConfig 创建默认配置
func NewConfig() Config {
	return ConfigFromUnified(config.NewConfig())
}

// ConfigFromUnified 从统一配置创建传输配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	c := Config{Endpoints: make(map[string]base.Config)}
	for scheme, ep := range cfg.Transport.Endpoints() {
		if ep.Enable {
			c.Endpoints[scheme] = base.ConfigFromUnified(cfg, scheme)
		}
	}
	return c
}

// Schemes 返回启用的协议名（已排序）
func (c Config) Schemes() []string {
	schemes := make([]string, 0, len(c.Endpoints))
	for scheme := range c.Endpoints {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// NewTransport 创建内置传输
func NewTransport(scheme string, cfg base.Config) (interfaces.Transport, error) {
	factory, ok := factories[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
	return factory(cfg), nil
}

// ============================================================================
//                              TransportManager
// ============================================================================

// TransportManager 传输管理器
type TransportManager struct {
	config     Config
	transports []interfaces.Transport
}

// NewTransportManager 创建传输管理器
//
// extra 为调用方提供的额外传输，协议名不能与内置传输重复。
func NewTransportManager(cfg Config, extra ...interfaces.Transport) (*TransportManager, error) {
	tm := &TransportManager{config: cfg}
	seen := make(map[string]bool)

	for _, scheme := range cfg.Schemes() {
		tr, err := NewTransport(scheme, cfg.Endpoints[scheme])
		if err != nil {
			return nil, err
		}
		tm.transports = append(tm.transports, tr)
		seen[scheme] = true
	}
	for _, tr := range extra {
		if tr == nil {
			continue
		}
		if seen[tr.Scheme()] {
			_ = tm.Close()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScheme, tr.Scheme())
		}
		tm.transports = append(tm.transports, tr)
		seen[tr.Scheme()] = true
	}

	log.Debug("创建传输管理器", "schemes", tm.Schemes())
	return tm, nil
}

// Transports 返回全部传输
func (tm *TransportManager) Transports() []interfaces.Transport {
	return tm.transports
}

// Schemes 返回全部协议名
func (tm *TransportManager) Schemes() []string {
	schemes := make([]string, 0, len(tm.transports))
	for _, tr := range tm.transports {
		schemes = append(schemes, tr.Scheme())
	}
	return schemes
}

// Start 并行启动监听，全部成功后向路由器注册
//
// 任一传输监听失败时关闭全部传输并返回错误，不注册任何传输。
func (tm *TransportManager) Start(ctx context.Context, router interfaces.Router) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, tr := range tm.transports {
		g.Go(func() error {
			if err := tr.Listen(gctx, router.Receive); err != nil {
				return fmt.Errorf("%s: %w", tr.Scheme(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return multierr.Append(err, tm.Close())
	}

	for _, tr := range tm.transports {
		router.RegisterTransport(tr.Scheme(), tr.Advertise(), tr.Send)
		log.Info("传输已注册", "scheme", tr.Scheme(), "advertise", tr.Advertise())
	}
	return nil
}

// Close 关闭全部传输
func (tm *TransportManager) Close() error {
	var err error
	for _, tr := range tm.transports {
		if cerr := tr.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", tr.Scheme(), cerr))
		}
	}
	return err
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 统一配置（可选）
	Config *config.Config `optional:"true"`

	// Extra 额外传输
	Extra []interfaces.Transport `group:"transports"`
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	TransportManager *TransportManager
}

// ProvideTransports 提供 TransportManager
func ProvideTransports(input ModuleInput) (ModuleOutput, error) {
	tm, err := NewTransportManager(ConfigFromUnified(input.Config), input.Extra...)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{TransportManager: tm}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransports),
		fx.Invoke(registerLifecycle),
	)
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, tm *TransportManager, router interfaces.Router) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return tm.Start(ctx, router)
		},
		OnStop: func(_ context.Context) error {
			return tm.Close()
		},
	})
}
