package ansible

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-ansible/internal/core/router"
	"github.com/dep2p/go-ansible/internal/core/transport"
	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("ansible")

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建未启动
	StateIdle NodeState = iota

	// StateStarting 启动中
	StateStarting

	// StateRunning 运行中
	StateRunning

	// StateStopping 停止中
	StateStopping

	// StateStopped 已停止
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// startTimeout 启动超时
const startTimeout = 30 * time.Second

// Node 路由节点
//
// 一个 Node 持有一个路由器、一个发现后端与一组传输。
// Stop 之后不能再次 Start。
type Node struct {
	config *nodeConfig
	app    *fx.App

	router     *router.Router
	discovery  interfaces.Discovery
	transports *transport.TransportManager

	mu    sync.RWMutex
	state NodeState
}

// New 创建节点（不启动）
func New(opts ...Option) (*Node, error) {
	cfg := newNodeConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	node := &Node{config: cfg}

	app, err := buildFxApp(cfg, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app
	return node, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}
	return node, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动发现后端与传输，传输监听成功后注册到路由器
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateRunning, StateStarting:
		return ErrAlreadyStarted
	case StateStopping, StateStopped:
		return ErrNodeClosed
	}

	n.state = StateStarting
	log.Info("正在启动节点")

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		n.state = StateStopped
		log.Error("节点启动失败", "error", err)
		return fmt.Errorf("start failed: %w", err)
	}

	n.state = StateRunning
	log.Info("节点已启动", "transports", n.router.Transports())
	return nil
}

// Stop 注销全部本地域后停止节点
//
// 注销与关闭中的错误合并返回。
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateIdle, StateStarting:
		return ErrNotStarted
	case StateStopping, StateStopped:
		return ErrNodeClosed
	}

	n.state = StateStopping
	log.Info("正在停止节点")

	var err error
	for _, name := range n.router.Domains() {
		if uerr := n.router.UnregisterDomain(ctx, name); uerr != nil {
			err = multierr.Append(err, uerr)
		}
	}
	if serr := n.app.Stop(ctx); serr != nil {
		err = multierr.Append(err, fmt.Errorf("stop fx app: %w", serr))
	}

	n.state = StateStopped
	if err != nil {
		log.Error("停止节点时出错", "error", err)
		return err
	}
	log.Info("节点已停止")
	return nil
}

// State 返回节点状态
func (n *Node) State() NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// IsRunning 是否运行中
func (n *Node) IsRunning() bool {
	return n.State() == StateRunning
}

func (n *Node) running() error {
	switch n.State() {
	case StateRunning:
		return nil
	case StateStopping, StateStopped:
		return ErrNodeClosed
	default:
		return ErrNotStarted
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              路由
// ════════════════════════════════════════════════════════════════════════════

// Router 返回路由器（启动前为 nil）
func (n *Node) Router() *router.Router {
	return n.router
}

// Discovery 返回发现后端
func (n *Node) Discovery() interfaces.Discovery {
	return n.discovery
}

// RegisterDomain 注册本地域
func (n *Node) RegisterDomain(ctx context.Context, name string, receptionist types.Receptionist) (*types.Contact, error) {
	if err := n.running(); err != nil {
		return nil, err
	}
	return n.router.RegisterDomain(ctx, name, receptionist)
}

// UnregisterDomain 注销本地域
func (n *Node) UnregisterDomain(ctx context.Context, name string) error {
	if err := n.running(); err != nil {
		return err
	}
	return n.router.UnregisterDomain(ctx, name)
}

// Send 发送消息，结果通过 msg 的回调报告
func (n *Node) Send(msg *types.Message) {
	if err := n.running(); err != nil {
		msg.Failed(err)
		return
	}
	n.router.Send(msg)
}

// Deliver 发送并返回可等待的结果
func (n *Node) Deliver(ctx context.Context, address string, content []byte, hint string) *types.Result {
	if err := n.running(); err != nil {
		result := types.NewResult()
		_, fail := result.Callbacks()
		fail(err)
		return result
	}
	return n.router.Deliver(ctx, address, content, hint)
}

// Domains 返回本地域名
func (n *Node) Domains() []string {
	if n.router == nil {
		return nil
	}
	return n.router.Domains()
}

// Transports 返回已注册到路由器的协议名
func (n *Node) Transports() []string {
	if n.router == nil {
		return nil
	}
	return n.router.Transports()
}

// Advertisement 返回各传输的通告地址
func (n *Node) Advertisement() map[string]string {
	out := make(map[string]string)
	if n.transports == nil {
		return out
	}
	for _, tr := range n.transports.Transports() {
		out[tr.Scheme()] = tr.Advertise()
	}
	return out
}
