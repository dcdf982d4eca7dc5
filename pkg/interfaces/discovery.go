package interfaces

import (
	"context"

	"github.com/dep2p/go-ansible/pkg/types"
)

// FindCallback 域解析回调
//
// 回调可能在任意 goroutine 中触发，可能触发多次，也可能在一次错误之后再次触发。
// 调用方必须自行保证只处理第一次结果。
type FindCallback func(contact *types.Contact, err error)

// Discovery 定义发现协作者接口
//
// 发现后端保存并解析 域名 → Contact 映射。路由器只依赖以下契约，
// 不关心复制、gossip 或 DHT 细节。
type Discovery interface {
	// Register 发布域记录，返回附加了本节点网络位置的记录
	Register(ctx context.Context, contact *types.Contact) (*types.Contact, error)

	// Unregister 移除之前发布的域记录
	Unregister(ctx context.Context, id string) error

	// Find 异步解析域名
	//
	// 不阻塞；结果通过 cb 返回，cb 可能触发 0 次、1 次或多次。
	Find(ctx context.Context, id string, cb FindCallback)

	// Add 尽力将提示记录加入解析器的路由表
	Add(ctx context.Context, hint *types.Contact) error
}

// DiscoveryCloser 可关闭的发现后端
type DiscoveryCloser interface {
	Discovery

	// Close 释放后端资源
	Close() error
}
