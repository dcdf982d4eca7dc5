// Package transport 管理节点的传输集合
//
// 内置五种传输，各自位于子包中：
//
//	http  http://host:port          POST 信封，X-Ansible-Address 携带片段
//	ws    ws://host:port/ansible    每条消息一个二进制帧
//	tcp   tcp://host:port           varint 长度前缀帧，连接复用
//	udp   udp://host:port           每条消息一个报文
//	quic  quic://host:port          每条消息一条流，自签名 TLS 1.3
//
// TransportManager 按配置创建启用的传输，启动时逐个 Listen（入站交给
// Router.Receive），再以通告地址调用 Router.RegisterTransport。
// 通过 fx group "transports" 提供的额外传输一并管理。
//
// # Fx 模块集成
//
//	app := fx.New(
//	    router.Module(),
//	    transport.Module(),
//	)
//
// 启动顺序要求 Router 先于传输模块构造；停止时传输先于发现后端关闭。
package transport
