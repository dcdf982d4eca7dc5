package interfaces

// RouterMetrics 路由指标观察者
//
// reason 取值见 router.Reason（address_malformed、unsupported_transport、
// resolution_failed、domain_unknown、transport）。
type RouterMetrics interface {
	// SendStarted 一次发送开始
	SendStarted()

	// SendFailed 发送在路由器内失败，或由传输回报失败
	SendFailed(reason string)

	// SendDispatched 已交给传输
	SendDispatched(scheme string)

	// SendCompleted 传输回报成功
	SendCompleted(scheme string)

	// InboundDelivered 入站消息已交给接待者
	InboundDelivered()

	// InboundDropped 入站消息被丢弃
	InboundDropped(reason string)

	// HintApplied 入站提示已交给发现后端
	HintApplied(ok bool)

	// ReceptionistPanicked 接待者处理入站消息时 panic
	ReceptionistPanicked()
}
