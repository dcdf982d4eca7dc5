package interfaces

import (
	"context"

	"github.com/dep2p/go-ansible/pkg/types"
)

// SendFunc 传输的发送操作
//
// 必须最终调用 msg.OK / msg.Fail 中至多一个；也允许永不完成。
type SendFunc func(msg *types.Message)

// InboundHandler 入站处理器（通常是 Router.Receive）
type InboundHandler func(msg *types.Message)

// Transport 定义传输协作者接口
//
// 每个协议名一个实现（http、ws、tcp、udp、quic）。
type Transport interface {
	// Scheme 协议名，作为 Contact.Data 的键
	Scheme() string

	// Advertise 本节点通告给对端的传输地址
	//
	// 在 Listen 成功之后调用才有意义（端口可能是动态分配的）。
	Advertise() string

	// Send 投递消息到 msg.Address
	Send(msg *types.Message)

	// Listen 启动服务端，将入站 {Address, Content} 交给 handler
	//
	// 非阻塞：监听成功后立即返回，服务在后台运行直到 Close。
	Listen(ctx context.Context, handler InboundHandler) error

	// Close 关闭传输
	Close() error
}
