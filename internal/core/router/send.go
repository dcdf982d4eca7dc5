package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/dep2p/go-ansible/pkg/types"
)

// ============================================================================
//                              出站路由
// ============================================================================

// Send 出站路由
//
// 不阻塞等待解析。msg.OK / msg.Fail 至多调用一个且至多一次；
// 传输永不完成时两者都不会被调用。失败不会重试。
func (r *Router) Send(msg *types.Message) {
	r.send(r.ctx, msg)
}

// Deliver 发送并返回可等待的结果
//
// 域解析同时受 ctx 与路由器生命周期约束（任一结束即取消）；
// 传输阶段的等待由调用方通过 Result.Wait 控制。
func (r *Router) Deliver(ctx context.Context, address string, content []byte, hint string) *types.Result {
	result := types.NewResult()
	r.send(ctx, result.Bind(&types.Message{
		Address: address,
		Content: content,
		Hint:    hint,
	}))
	return result
}

func (r *Router) send(parent context.Context, msg *types.Message) {
	if msg == nil {
		return
	}

	a := newAttempt(msg, r.metrics)
	r.metrics.SendStarted()

	addr, err := types.ParseAddress(msg.Address)
	if err != nil {
		log.Debug("地址无效", "send", a.id, "address", msg.Address, "error", err)
		a.fail(err)
		return
	}

	ctx, cancel := r.resolveContext(parent)
	r.discovery.Find(ctx, addr.Authority, func(contact *types.Contact, err error) {
		if err == nil && contact == nil {
			err = fmt.Errorf("domain %s not found", addr.Authority)
		}

		to := resolveResolved
		if err != nil {
			to = resolveFailed
		}
		if !a.res.settle(to) {
			log.Debug("忽略重复的解析回调",
				"send", a.id,
				"domain", addr.Authority,
				"state", a.res.current())
			return
		}
		cancel()

		if err != nil {
			log.Warn("域解析失败", "send", a.id, "domain", addr.Authority, "error", err)
			a.fail(ErrSendFailed)
			return
		}
		r.dispatch(a, addr, contact)
	})
}

// resolveContext 返回本次解析使用的上下文
//
// Send 直接使用路由器上下文，未配置解析超时时不为单次发送保留任何状态。
// Deliver 的上下文在调用方 ctx 结束、路由器关闭或解析完成时取消，
// 对路由器上下文的挂载随之解除。
func (r *Router) resolveContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil || parent == r.ctx {
		if r.config.ResolveTimeout > 0 {
			return context.WithTimeout(r.ctx, r.config.ResolveTimeout)
		}
		return r.ctx, func() {}
	}

	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(r.ctx, cancel)
	context.AfterFunc(ctx, func() { stop() })
	if r.config.ResolveTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, r.config.ResolveTimeout)
		return ctx, func() {
			cancelTimeout()
			cancel()
		}
	}
	return ctx, cancel
}

// dispatch 选择传输、封装信封并交给传输
func (r *Router) dispatch(a *attempt, addr types.Address, contact *types.Contact) {
	scheme, send, err := r.selectTransport(contact)
	if err != nil {
		log.Debug("无可用传输", "send", a.id, "domain", addr.Authority, "error", err)
		a.fail(err)
		return
	}

	env := &types.Envelope{
		Domain:  addr.Authority,
		Content: a.msg.Content,
	}
	if a.msg.Hint != "" {
		if entry, ok := r.domains.Lookup(a.msg.Hint); ok {
			env.Hint = entry.Contact.Clone()
		} else {
			log.Debug("提示域未在本地注册，忽略", "send", a.id, "hint", a.msg.Hint)
		}
	}

	payload, err := types.MarshalEnvelope(env)
	if err != nil {
		log.Error("信封编码失败", "send", a.id, "error", err)
		a.fail(err)
		return
	}

	ok, fail := a.callbacks(scheme)
	out := &types.Message{
		Address: types.TransportAddress(contact.Data[scheme], addr.Capability),
		Content: payload,
		OK:      ok,
		Fail:    fail,
	}

	log.Debug("交给传输",
		"send", a.id,
		"domain", addr.Authority,
		"scheme", scheme,
		"address", out.Address)
	r.metrics.SendDispatched(scheme)
	send(out)
}

// selectTransport 计算候选协议并按策略选择
func (r *Router) selectTransport(contact *types.Contact) (string, func(*types.Message), error) {
	peer := contact.Schemes()

	var candidates []string
	sends := make(map[string]func(*types.Message), len(peer))
	for _, scheme := range peer {
		if entry, ok := r.transports.Lookup(scheme); ok && entry.Send != nil {
			candidates = append(candidates, scheme)
			sends[scheme] = entry.Send
		}
	}
	if len(candidates) == 0 {
		advertised := strings.Join(peer, ",")
		if advertised == "" {
			advertised = "<none>"
		}
		return "", nil, fmt.Errorf("%w %s", ErrUnsupportedTransport, advertised)
	}

	scheme := r.selector.Select(candidates)
	return scheme, sends[scheme], nil
}
