package types

import (
	"context"
	"sync"
)

// ============================================================================
//                              Result - 发送结果
// ============================================================================

// ResultState 发送结果状态
type ResultState int

const (
	// ResultPending 尚未完成（可能永远不会完成）
	ResultPending ResultState = iota

	// ResultOK 成功
	ResultOK

	// ResultFailed 失败
	ResultFailed
)

// String 返回状态的字符串表示
func (s ResultState) String() string {
	switch s {
	case ResultPending:
		return "pending"
	case ResultOK:
		return "ok"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result 一次发送的完成状态
//
// 传输不保证一定完成，调用方通过 Wait(ctx) 自行决定超时。
// 第一次 OK/Fail 生效，之后的调用被忽略。
type Result struct {
	once  sync.Once
	done  chan struct{}
	mu    sync.RWMutex
	state ResultState
	err   error
}

// NewResult 创建 Result
func NewResult() *Result {
	return &Result{done: make(chan struct{})}
}

// Callbacks 返回绑定到该 Result 的 OK/Fail 回调
func (r *Result) Callbacks() (ok func(), fail func(error)) {
	return func() { r.settle(ResultOK, nil) },
		func(err error) { r.settle(ResultFailed, err) }
}

// Bind 将回调写入消息并返回消息本身
func (r *Result) Bind(msg *Message) *Message {
	msg.OK, msg.Fail = r.Callbacks()
	return msg
}

func (r *Result) settle(state ResultState, err error) {
	r.once.Do(func() {
		r.mu.Lock()
		r.state = state
		r.err = err
		r.mu.Unlock()
		close(r.done)
	})
}

// Done 完成时关闭
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// State 当前状态
func (r *Result) State() ResultState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Err 失败原因（未完成或成功时为 nil）
func (r *Result) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Wait 等待完成或 ctx 结束
//
// 成功返回 nil；失败返回失败原因；ctx 结束返回 ctx.Err()。
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
