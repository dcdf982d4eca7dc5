package router

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

// fakeDiscovery 进程内发现后端，Find 异步回调一次
type fakeDiscovery struct {
	mu           sync.Mutex
	records      map[string]*types.Contact
	hints        []*types.Contact
	unregistered []string
	location     *types.Location

	RegisterErr error
	AddErr      error
}

func newFakeDiscovery() *fakeDiscovery {
	return &fakeDiscovery{
		records:  make(map[string]*types.Contact),
		location: &types.Location{Host: "127.0.0.1", Port: 4001},
	}
}

func (d *fakeDiscovery) Register(_ context.Context, contact *types.Contact) (*types.Contact, error) {
	if d.RegisterErr != nil {
		return nil, d.RegisterErr
	}
	c := contact.Clone()
	c.Location = d.location

	d.mu.Lock()
	d.records[c.ID] = c
	d.mu.Unlock()
	return c.Clone(), nil
}

func (d *fakeDiscovery) Unregister(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.records, id)
	d.unregistered = append(d.unregistered, id)
	return nil
}

func (d *fakeDiscovery) Find(_ context.Context, id string, cb interfaces.FindCallback) {
	d.mu.Lock()
	c := d.records[id].Clone()
	d.mu.Unlock()

	go cb(c, nil)
}

func (d *fakeDiscovery) Add(_ context.Context, hint *types.Contact) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hints = append(d.hints, hint.Clone())
	return d.AddErr
}

func (d *fakeDiscovery) put(c *types.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[c.ID] = c.Clone()
}

func (d *fakeDiscovery) Hints() []*types.Contact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*types.Contact(nil), d.hints...)
}

// outcome 统计调用方回调
type outcome struct {
	oks   atomic.Int32
	fails atomic.Int32

	mu   sync.Mutex
	errs []error
	done chan struct{}
	once sync.Once
}

func newOutcome() *outcome {
	return &outcome{done: make(chan struct{})}
}

func (o *outcome) bind(msg *types.Message) *types.Message {
	msg.OK = func() {
		o.oks.Add(1)
		o.once.Do(func() { close(o.done) })
	}
	msg.Fail = func(err error) {
		o.mu.Lock()
		o.errs = append(o.errs, err)
		o.mu.Unlock()
		o.fails.Add(1)
		o.once.Do(func() { close(o.done) })
	}
	return msg
}

func (o *outcome) wait(t *testing.T) {
	t.Helper()
	select {
	case <-o.done:
	case <-time.After(2 * time.Second):
		t.Fatal("等待发送结果超时")
	}
}

func (o *outcome) err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.errs) == 0 {
		return nil
	}
	return o.errs[0]
}

// recordingMetrics 记录指标调用
type recordingMetrics struct {
	mu         sync.Mutex
	started    int
	failed     []string
	dispatched []string
	completed  []string
	delivered  int
	dropped    []string
	hints      []bool
	panics     int
}

func (m *recordingMetrics) SendStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *recordingMetrics) SendFailed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, reason)
}

func (m *recordingMetrics) SendDispatched(scheme string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched = append(m.dispatched, scheme)
}

func (m *recordingMetrics) SendCompleted(scheme string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, scheme)
}

func (m *recordingMetrics) InboundDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered++
}

func (m *recordingMetrics) InboundDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, reason)
}

func (m *recordingMetrics) HintApplied(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hints = append(m.hints, ok)
}

func (m *recordingMetrics) ReceptionistPanicked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics++
}

// inbox 收集接待者收到的消息
type inbox struct {
	ch chan *types.Message
}

func newInbox() *inbox {
	return &inbox{ch: make(chan *types.Message, 16)}
}

func (i *inbox) receptionist(msg *types.Message) {
	i.ch <- msg
}

func (i *inbox) next(t *testing.T) *types.Message {
	t.Helper()
	select {
	case msg := <-i.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("等待入站消息超时")
		return nil
	}
}

func (i *inbox) empty(t *testing.T) {
	t.Helper()
	select {
	case msg := <-i.ch:
		t.Fatalf("不应收到消息: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// loopback 把出站传输消息直接交给目标路由器的 Receive
func loopback(target *Router) interfaces.SendFunc {
	return func(msg *types.Message) {
		target.Receive(&types.Message{Address: msg.Address, Content: msg.Content})
		msg.Succeed()
	}
}

func newTestRouter(t *testing.T, d interfaces.Discovery, opts ...Option) *Router {
	t.Helper()
	r, err := New(d, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}
