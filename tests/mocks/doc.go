// Package mocks 提供统一的测试 Mock 实现
//
// # 发现 Mock
//
//   - MockDiscovery: 由 mockgen 生成的 interfaces.Discovery，用于严格校验调用顺序与次数
//
// # 传输 Mock
//
//   - MockTransport: 手写的 interfaces.Transport，记录发送的消息，
//     可通过 SendFunc 注入完成行为
//
// # 使用示例
//
//	ctrl := gomock.NewController(t)
//	disc := mocks.NewMockDiscovery(ctrl)
//	disc.EXPECT().Find(gomock.Any(), "bob", gomock.Any()).
//	    Do(func(_ context.Context, _ string, cb interfaces.FindCallback) {
//	        cb(contact, nil)
//	    })
//
//	tr := mocks.NewMockTransport("tcp", "tcp://127.0.0.1:4001")
//	r.RegisterTransport(tr.Scheme(), tr.Advertise(), tr.Send)
package mocks

//go:generate mockgen -destination=discovery.go -package=mocks github.com/dep2p/go-ansible/pkg/interfaces Discovery
