// Package tcp 实现 TCP 传输
//
// 每条消息编码为一帧：varint 长度前缀加 JSON {address, content}。
// 出站连接按对端 host:port 复用，建连失败时按指数退避重试。
//
// # 地址格式
//
//	tcp://127.0.0.1:4001
//
// 传输层消息地址在其后拼接能力片段：tcp://127.0.0.1:4001/#cap
//
// # 使用示例
//
//	t := tcp.New(base.DefaultConfig())
//	if err := t.Listen(ctx, router.Receive); err != nil {
//	    return err
//	}
//	router.RegisterTransport(t.Scheme(), t.Advertise(), t.Send)
package tcp
