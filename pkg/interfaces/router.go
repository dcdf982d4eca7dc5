package interfaces

import (
	"context"

	"github.com/dep2p/go-ansible/pkg/types"
)

// Router 定义路由器公共接口
//
// 每个本地节点一个 Router，拥有一个域注册表和一个传输注册表。
type Router interface {
	// RegisterDomain 注册本地域并向发现后端发布
	//
	// 通告数据是调用时已注册传输的快照，之后注册的传输不会被补充。
	RegisterDomain(ctx context.Context, name string, receptionist types.Receptionist) (*types.Contact, error)

	// UnregisterDomain 注销本地域；未注册时为 no-op
	UnregisterDomain(ctx context.Context, name string) error

	// RegisterTransport 注册（或覆盖）传输
	RegisterTransport(scheme, data string, send SendFunc)

	// Receive 入站分发：解包信封并交给对应接待者
	Receive(msg *types.Message)

	// Send 出站路由：校验、解析、选择传输、封装、转发
	Send(msg *types.Message)
}
