package router

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-ansible/pkg/interfaces"
	"github.com/dep2p/go-ansible/pkg/types"
)

// ============================================================================
//                              解析状态
// ============================================================================

// resolveState 单次发送的解析状态
type resolveState int32

const (
	resolvePending resolveState = iota
	resolveResolved
	resolveFailed
)

func (s resolveState) String() string {
	switch s {
	case resolvePending:
		return "pending"
	case resolveResolved:
		return "resolved"
	case resolveFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// resolution 单次发送的一次性解析令牌
//
// 发现协作者的回调可能触发多次；只有第一次 settle 成功，其余全部忽略。
type resolution struct {
	state atomic.Int32
}

// settle 从 Pending 迁移到 to，返回是否为第一次
func (r *resolution) settle(to resolveState) bool {
	return r.state.CompareAndSwap(int32(resolvePending), int32(to))
}

func (r *resolution) current() resolveState {
	return resolveState(r.state.Load())
}

// ============================================================================
//                              发送尝试
// ============================================================================

// attempt 一次发送尝试
//
// 包装调用方的 OK/Fail，保证至多一个被调用且至多一次，
// 即使传输重复回调也是如此。
type attempt struct {
	id      string
	msg     *types.Message
	metrics interfaces.RouterMetrics

	once sync.Once
	res  resolution
}

func newAttempt(msg *types.Message, metrics interfaces.RouterMetrics) *attempt {
	return &attempt{
		id:      uuid.NewString(),
		msg:     msg,
		metrics: metrics,
	}
}

// fail 以失败结束
func (a *attempt) fail(err error) {
	a.once.Do(func() {
		a.metrics.SendFailed(Reason(err))
		a.msg.Failed(err)
	})
}

// succeed 以成功结束
func (a *attempt) succeed(scheme string) {
	a.once.Do(func() {
		a.metrics.SendCompleted(scheme)
		a.msg.Succeed()
	})
}

// callbacks 返回交给传输的回调
func (a *attempt) callbacks(scheme string) (ok func(), fail func(error)) {
	return func() { a.succeed(scheme) }, a.fail
}
