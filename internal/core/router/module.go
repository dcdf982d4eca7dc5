package router

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 统一配置（可选）
	Config *config.Config `optional:"true"`

	// Discovery 发现协作者
	Discovery interfaces.Discovery

	// Metrics 指标观察者（可选）
	Metrics interfaces.RouterMetrics `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Router 路由器实现
	Router *Router

	// API 路由器公共接口
	API interfaces.Router
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideRouter 提供路由器
func ProvideRouter(input ModuleInput) (ModuleOutput, error) {
	r, err := New(input.Discovery,
		WithConfig(ConfigFromUnified(input.Config)),
		WithMetrics(input.Metrics),
	)
	if err != nil {
		return ModuleOutput{}, err
	}

	return ModuleOutput{
		Router: r,
		API:    r,
	}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("router",
		fx.Provide(ProvideRouter),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC     fx.Lifecycle
	Router *Router
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			log.Info("路由器停止", "domains", len(input.Router.Domains()))
			return input.Router.Close()
		},
	})
}
