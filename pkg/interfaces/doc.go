// Package interfaces 定义 go-ansible 的公共接口
//
// 采用扁平命名（一个接口文件 = 一个实现目录）：
//   - router.go     - 路由器（域注册、传输注册、入站分发、出站发送）
//   - discovery.go  - 发现协作者（域名 → Contact）
//   - transport.go  - 传输协作者（按协议名发送与监听）
//   - metrics.go    - 路由指标观察者
//
// # 依赖方向
//
//	API → Router → Discovery / Transport
//
// 本包仅包含纯接口定义，数据结构定义在 pkg/types 包中。
package interfaces
