// Package quic 实现 QUIC 传输
//
// 每条消息使用一条新的双向流：发送方写入 varint 长度前缀加 JSON 帧后
// 关闭写方向，关闭成功即视为发送成功。连接按对端地址复用。
//
// 证书为进程启动时生成的自签名 Ed25519 证书，强制 TLS 1.3；
// 对端只校验证书有效期，不做身份绑定。
//
// # 地址格式
//
//	quic://127.0.0.1:4003
//
// 监听与拨号共用同一个 UDP 套接字（quic.Transport），对端看到的源地址
// 即通告地址。
package quic
