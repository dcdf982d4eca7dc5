package types

// ============================================================================
//                              Message - 消息
// ============================================================================

// Message 在路由器、传输和接待者之间传递的消息
//
// 出站时 OK/Fail 是调用方提供的完成回调，最多调用其中一个且最多一次。
// 交给接待者的消息不带回调。
type Message struct {
	// Address 目标地址
	//
	// 出站: ansible://<domain>/#<capability>
	// 传输层: <peer transport address>/#<capability>
	Address string

	// Content 负载
	Content []byte

	// Hint 本地已注册域名（可选），用于向对端附带路由提示
	Hint string

	// OK 成功回调（可选）
	OK func()

	// Fail 失败回调（可选）
	Fail func(error)
}

// Receptionist 域接待者，消费投递到域的负载
type Receptionist func(msg *Message)

// Succeed 调用 OK（若存在）
func (m *Message) Succeed() {
	if m != nil && m.OK != nil {
		m.OK()
	}
}

// Failed 调用 Fail（若存在）
func (m *Message) Failed(err error) {
	if m != nil && m.Fail != nil {
		m.Fail(err)
	}
}
