package types

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
//                              Envelope - 线上信封
// ============================================================================

// Envelope 传输层实际承载的值，与具体传输无关
type Envelope struct {
	// Domain 目标域
	Domain string `json:"domain"`

	// Content 原始消息负载
	Content []byte `json:"content"`

	// Hint 发送方附带的本地域记录（可选）
	Hint *Contact `json:"hint,omitempty"`
}

// MarshalEnvelope 编码信封
func MarshalEnvelope(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: envelope is nil", ErrMalformedEnvelope)
	}
	return json.Marshal(env)
}

// UnmarshalEnvelope 解码信封
//
// 空数据、非法 JSON 或缺少 domain 均返回 ErrMalformedEnvelope。
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrMalformedEnvelope)
	}
	env := &Envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Domain == "" {
		return nil, fmt.Errorf("%w: missing domain", ErrMalformedEnvelope)
	}
	return env, nil
}
