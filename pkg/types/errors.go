package types

import "errors"

// ============================================================================
//                              地址相关错误
// ============================================================================

var (
	// ErrAddressMalformed 地址格式错误（所有地址错误的归类）
	ErrAddressMalformed = errors.New("address malformed")

	// ErrMissingAddress 缺少地址
	ErrMissingAddress = &addressError{reason: "missing address"}

	// ErrInvalidProtocol 协议不是 ansible
	ErrInvalidProtocol = &addressError{reason: "invalid protocol"}

	// ErrInvalidURI 无法拆分为 authority 与 capability
	ErrInvalidURI = &addressError{reason: "invalid URI"}
)

// ============================================================================
//                              信封相关错误
// ============================================================================

var (
	// ErrMalformedEnvelope 信封无法解码
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// addressError 地址错误
//
// 同时匹配自身（errors.Is(err, ErrInvalidProtocol)）与 ErrAddressMalformed。
type addressError struct {
	reason string
}

func (e *addressError) Error() string { return e.reason }

func (e *addressError) Is(target error) bool {
	return target == ErrAddressMalformed
}
