package transport

import "errors"

var (
	// ErrUnknownScheme 不支持的传输协议名
	ErrUnknownScheme = errors.New("transport: unknown scheme")

	// ErrDuplicateScheme 同一协议名出现多个传输
	ErrDuplicateScheme = errors.New("transport: duplicate scheme")
)
