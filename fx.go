package ansible

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/internal/core/discovery"
	"github.com/dep2p/go-ansible/internal/core/metrics"
	"github.com/dep2p/go-ansible/internal/core/router"
	"github.com/dep2p/go-ansible/internal/core/transport"
	"github.com/dep2p/go-ansible/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置注入
//  2. 指标（条件加载）
//  3. 发现后端（配置后端或外部提供）
//  4. 路由器
//  5. 传输（启动时监听并注册到路由器）
func buildFxApp(cfg *nodeConfig, node *Node) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	unified := config.CloneConfig(cfg.config)
	if cfg.registerer != nil {
		unified.Metrics.Enable = true
	}
	modules := []fx.Option{
		fx.Supply(unified),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 指标（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if cfg.registerer != nil {
		reg := cfg.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}
	if unified.Metrics.Enable {
		modules = append(modules, metrics.Module)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 发现后端
	// ════════════════════════════════════════════════════════════════════════
	if cfg.discovery != nil {
		d := cfg.discovery
		modules = append(modules, fx.Provide(func() interfaces.Discovery { return d }))
	} else {
		if cfg.network != nil {
			modules = append(modules, fx.Supply(cfg.network))
		}
		modules = append(modules, discovery.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 路由器与传输
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, router.Module())

	for _, tr := range cfg.transports {
		modules = append(modules, fx.Provide(fx.Annotated{
			Group:  "transports",
			Target: func() interfaces.Transport { return tr },
		}))
	}
	modules = append(modules, transport.Module())

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展与组件注入
	// ════════════════════════════════════════════════════════════════════════
	if len(cfg.userFxOptions) > 0 {
		modules = append(modules, cfg.userFxOptions...)
	}
	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	Router     *router.Router
	Discovery  interfaces.Discovery
	Transports *transport.TransportManager
}

// injectNodeComponents 把 Fx 构造的组件注入 Node
func injectNodeComponents(node *Node) func(nodeInjectParams) {
	return func(p nodeInjectParams) {
		node.router = p.Router
		node.discovery = p.Discovery
		node.transports = p.Transports
	}
}
