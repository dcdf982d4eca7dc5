package router

import (
	"github.com/dep2p/go-ansible/pkg/types"
)

// ============================================================================
//                              入站分发
// ============================================================================

// Receive 入站分发
//
// 信封无法解码属于契约违背：记录错误日志后以 types.ErrMalformedEnvelope panic。
// 传输层按请求恢复该 panic，单个对端无法使节点崩溃。
// 目标域未注册时丢弃消息。提示记录交给发现后端，其错误被吞掉。
// 接待者自身的 panic 在此恢复并记录，不会传回传输层：负载已经送达。
func (r *Router) Receive(msg *types.Message) {
	if msg == nil {
		return
	}

	env, err := types.UnmarshalEnvelope(msg.Content)
	if err != nil {
		log.Error("入站信封无法解码", "address", msg.Address, "size", len(msg.Content), "error", err)
		r.metrics.InboundDropped(ReasonMalformedEnvelope)
		panic(err)
	}

	entry, ok := r.domains.Lookup(env.Domain)
	if !ok {
		log.Warn("目标域未注册，丢弃入站消息", "domain", env.Domain, "address", msg.Address)
		r.metrics.InboundDropped(ReasonDomainUnknown)
		return
	}

	if env.Hint != nil {
		if err := r.discovery.Add(r.ctx, env.Hint); err != nil {
			log.Debug("提示记录未被接受", "hint", env.Hint.ID, "error", err)
			r.metrics.HintApplied(false)
		} else {
			r.metrics.HintApplied(true)
		}
	}

	r.metrics.InboundDelivered()
	r.deliver(entry, &types.Message{
		Address: types.RecipientAddress(env.Domain, msg.Address),
		Content: env.Content,
	})
}

// deliver 调用接待者并恢复其 panic
func (r *Router) deliver(entry DomainEntry, msg *types.Message) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("接待者 panic", "domain", entry.Name, "address", msg.Address, "panic", p)
			r.metrics.ReceptionistPanicked()
		}
	}()
	entry.Receptionist(msg)
}
