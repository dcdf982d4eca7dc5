// Package metrics 提供路由器的 Prometheus 指标
//
// Collector 实现 interfaces.RouterMetrics，计数器按失败原因与传输协议打标签：
//
//	<ns>_router_sends_started_total
//	<ns>_router_sends_failed_total{reason}
//	<ns>_router_sends_dispatched_total{scheme}
//	<ns>_router_sends_completed_total{scheme}
//	<ns>_router_inbound_delivered_total
//	<ns>_router_inbound_dropped_total{reason}
//	<ns>_router_hints_total{result}
//	<ns>_router_throughput_messages
//
// 最后一项是最近 60 秒（完成的出站 + 投递的入站）消息的平均每秒条数，
// 由 RateMeter 滑动窗口计算。
//
// # 快速开始
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollector(reg, "ansible", clock.New())
//	r, _ := router.New(discovery, router.WithMetrics(c))
package metrics
