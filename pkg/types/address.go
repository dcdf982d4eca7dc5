package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              Address - 逻辑地址
// ============================================================================

const (
	// Scheme ansible 协议名
	Scheme = "ansible"

	// schemeSep 协议分隔符
	schemeSep = "://"

	// CapabilitySep authority 与 capability 的分隔符
	CapabilitySep = "/#"
)

// Address 已解析的 ansible 地址
type Address struct {
	// Authority 逻辑域名
	Authority string

	// Capability 域内能力片段（不透明）
	Capability string
}

// ParseAddress 解析 ansible://<authority>/#<capability>
//
// 协议名大小写不敏感；raw 必须恰好按 "://" 拆成两段，
// 剩余部分必须恰好按 "/#" 拆成两段。
func ParseAddress(raw string) (Address, error) {
	if raw == "" {
		return Address{}, ErrMissingAddress
	}

	schemeAndRest := strings.Split(raw, schemeSep)
	if len(schemeAndRest) != 2 {
		if len(schemeAndRest) == 1 && !strings.EqualFold(raw, Scheme) {
			// 没有 "://"，整个字符串都视为协议名
			return Address{}, fmt.Errorf("%w %s", ErrInvalidProtocol, raw)
		}
		return Address{}, fmt.Errorf("%w %s", ErrInvalidURI, raw)
	}
	if !strings.EqualFold(schemeAndRest[0], Scheme) {
		return Address{}, fmt.Errorf("%w %s", ErrInvalidProtocol, schemeAndRest[0])
	}

	parts := strings.Split(schemeAndRest[1], CapabilitySep)
	if len(parts) != 2 {
		return Address{}, fmt.Errorf("%w %s", ErrInvalidURI, raw)
	}

	return Address{Authority: parts[0], Capability: parts[1]}, nil
}

// String 返回规范形式
func (a Address) String() string {
	return Scheme + schemeSep + a.Authority + CapabilitySep + a.Capability
}

// Fragment 返回地址中第一个 '#' 起（含）的部分，不存在时返回空串
func Fragment(addr string) string {
	if i := strings.IndexByte(addr, '#'); i >= 0 {
		return addr[i:]
	}
	return ""
}

// RecipientAddress 构造交给接待者的地址
//
// 片段原样取自入站传输消息的地址，不重新计算。
func RecipientAddress(domain, inboundAddr string) string {
	return Scheme + schemeSep + domain + "/" + Fragment(inboundAddr)
}

// TransportAddress 拼接传输地址与 capability
func TransportAddress(peerAddr, capability string) string {
	return peerAddr + CapabilitySep + capability
}
