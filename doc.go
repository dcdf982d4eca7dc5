// Package ansible 提供位置透明的消息路由节点
//
// 应用把消息发往逻辑地址 ansible://<domain>/#<capability>，而不需要知道
// 域所在的节点与可达方式。节点通过发现后端把域名解析为联系人记录，
// 选出双方都支持的传输，把负载封装成信封转发；对端解包后交给该域的
// 接待者。
//
// # 快速开始
//
//	node, err := ansible.New(ansible.WithConfig(cfg))
//	if err != nil {
//	    return err
//	}
//	if err := node.Start(ctx); err != nil {
//	    return err
//	}
//	defer node.Stop(context.Background())
//
//	// 注册本地域
//	_, err = node.RegisterDomain(ctx, "alice", func(msg *types.Message) {
//	    fmt.Println(msg.Address, string(msg.Content))
//	})
//
//	// 发送并等待结果
//	result := node.Deliver(ctx, "ansible://bob/#inbox", []byte("hello"), "alice")
//	if err := result.Wait(ctx); err != nil {
//	    return err
//	}
//
// # 组成
//
//	┌──────────────────────────────────────────────┐
//	│  Node        ansible.New() / Start / Stop     │
//	├──────────────────────────────────────────────┤
//	│  Router      域注册表 · 传输注册表 · 出入站     │
//	├──────────────────────┬───────────────────────┤
//	│  Discovery           │  Transports            │
//	│  memory · redis      │  http · ws · tcp       │
//	│  (+ LRU cache)       │  udp · quic            │
//	└──────────────────────┴───────────────────────┘
//
// 发送结果只通过 OK/Fail 回调（或 Result）报告，路由器不会在调用方
// 线程上返回错误；传输可能永远不回调，调用方通过 ctx 自行决定超时。
package ansible
