package metrics

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dep2p/go-ansible/pkg/interfaces"
)

const subsystem = "router"

// Collector Prometheus 路由指标
type Collector struct {
	sendsStarted     prometheus.Counter
	sendsFailed      *prometheus.CounterVec
	sendsDispatched  *prometheus.CounterVec
	sendsCompleted   *prometheus.CounterVec
	inboundDelivered prometheus.Counter
	inboundDropped   *prometheus.CounterVec
	hints            *prometheus.CounterVec
	panics           prometheus.Counter

	throughput *RateMeter
}

var _ interfaces.RouterMetrics = (*Collector)(nil)

// NewCollector 创建并注册指标
//
// 同一 Registerer 上重复注册同名指标会 panic。
func NewCollector(reg prometheus.Registerer, namespace string, clk clock.Clock) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		sendsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sends_started_total",
			Help:      "Total number of outbound send attempts",
		}),
		sendsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sends_failed_total",
			Help:      "Total number of failed outbound sends by reason",
		}, []string{"reason"}),
		sendsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sends_dispatched_total",
			Help:      "Total number of envelopes handed to a transport",
		}, []string{"scheme"}),
		sendsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sends_completed_total",
			Help:      "Total number of sends acknowledged by a transport",
		}, []string{"scheme"}),
		inboundDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inbound_delivered_total",
			Help:      "Total number of inbound messages handed to a receptionist",
		}),
		inboundDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inbound_dropped_total",
			Help:      "Total number of inbound messages dropped by reason",
		}, []string{"reason"}),
		hints: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hints_total",
			Help:      "Total number of inbound hints passed to discovery by result",
		}, []string{"result"}),
		panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "receptionist_panics_total",
			Help:      "Total number of inbound messages whose receptionist panicked",
		}),
		throughput: NewRateMeter(clk),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "throughput_messages",
		Help:      "Average messages per second over the last minute",
	}, c.throughput.Rate)

	return c
}

// SendStarted 实现 interfaces.RouterMetrics
func (c *Collector) SendStarted() {
	c.sendsStarted.Inc()
}

// SendFailed 实现 interfaces.RouterMetrics
func (c *Collector) SendFailed(reason string) {
	c.sendsFailed.WithLabelValues(reason).Inc()
}

// SendDispatched 实现 interfaces.RouterMetrics
func (c *Collector) SendDispatched(scheme string) {
	c.sendsDispatched.WithLabelValues(scheme).Inc()
}

// SendCompleted 实现 interfaces.RouterMetrics
func (c *Collector) SendCompleted(scheme string) {
	c.sendsCompleted.WithLabelValues(scheme).Inc()
	c.throughput.Add(1)
}

// InboundDelivered 实现 interfaces.RouterMetrics
func (c *Collector) InboundDelivered() {
	c.inboundDelivered.Inc()
	c.throughput.Add(1)
}

// InboundDropped 实现 interfaces.RouterMetrics
func (c *Collector) InboundDropped(reason string) {
	c.inboundDropped.WithLabelValues(reason).Inc()
}

// HintApplied 实现 interfaces.RouterMetrics
func (c *Collector) HintApplied(ok bool) {
	result := "accepted"
	if !ok {
		result = "rejected"
	}
	c.hints.WithLabelValues(result).Inc()
}

// ReceptionistPanicked 实现 interfaces.RouterMetrics
func (c *Collector) ReceptionistPanicked() {
	c.panics.Inc()
}

// Throughput 返回吞吐速率计算器
func (c *Collector) Throughput() *RateMeter {
	return c.throughput
}
