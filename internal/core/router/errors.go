package router

import (
	"errors"

	"github.com/dep2p/go-ansible/pkg/types"
)

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrResolutionFailed 域解析失败（错误归类）
	ErrResolutionFailed = errors.New("resolution failed")

	// ErrSendFailed 交给调用方的解析失败错误
	//
	// 原始错误只记录日志，不向调用方透传，保持对外错误分类稳定。
	ErrSendFailed error = &kindError{msg: "message send failed", kind: ErrResolutionFailed}

	// ErrUnsupportedTransport 本地没有与对端匹配的传输
	ErrUnsupportedTransport = errors.New("unsupported transport")

	// ErrDomainUnknown 入站消息指向未注册的域
	ErrDomainUnknown = errors.New("domain unknown")

	// ErrInvalidDomain 域名为空或接待者为 nil
	ErrInvalidDomain = errors.New("invalid domain registration")

	// ErrNilDiscovery 未提供发现协作者
	ErrNilDiscovery = errors.New("discovery is nil")
)

// kindError 带归类的错误
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// ============================================================================
//                              失败原因
// ============================================================================

// 机器可读的失败原因，用作指标标签
const (
	ReasonAddressMalformed     = "address_malformed"
	ReasonUnsupportedTransport = "unsupported_transport"
	ReasonResolutionFailed     = "resolution_failed"
	ReasonDomainUnknown        = "domain_unknown"
	ReasonMalformedEnvelope    = "malformed_envelope"
	ReasonTransport            = "transport"
)

// Reason 返回错误对应的稳定原因字符串
func Reason(err error) string {
	switch {
	case errors.Is(err, types.ErrAddressMalformed):
		return ReasonAddressMalformed
	case errors.Is(err, ErrUnsupportedTransport):
		return ReasonUnsupportedTransport
	case errors.Is(err, ErrResolutionFailed):
		return ReasonResolutionFailed
	case errors.Is(err, ErrDomainUnknown):
		return ReasonDomainUnknown
	case errors.Is(err, types.ErrMalformedEnvelope):
		return ReasonMalformedEnvelope
	default:
		return ReasonTransport
	}
}
