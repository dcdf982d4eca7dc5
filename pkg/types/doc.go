// Package types 定义 go-ansible 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在路由器、发现后端和传输之间传递数据。
//
// # 文件组织
//
//   - address.go  - Address（ansible://<domain>/#<capability>）解析与格式化
//   - contact.go  - Contact、Location（发现后端记录）
//   - envelope.go - Envelope（线上信封，JSON 编码）
//   - message.go  - Message、Receptionist
//   - result.go   - Result（一次发送的完成状态）
//   - errors.go   - 公共错误定义
//
// # 地址格式
//
//	ansible://<authority>/#<capability>
//
// authority 是逻辑域名，capability 是域内可寻址单元的不透明片段。
package types
