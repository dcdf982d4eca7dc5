package router

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// ============================================================================
//                              传输选择策略
// ============================================================================

// 选择策略名
const (
	// SelectFirst 选择字典序第一个候选协议
	SelectFirst = "first"

	// SelectRandom 在候选协议中均匀随机选择
	SelectRandom = "random"
)

// Selector 传输选择策略
//
// candidates 是对端通告的协议与本地已注册协议的交集，已排序且非空。
type Selector interface {
	// Name 策略名
	Name() string

	// Select 选择一个协议
	Select(candidates []string) string
}

// NewSelector 按名称创建策略
func NewSelector(policy string) (Selector, error) {
	switch policy {
	case SelectFirst:
		return firstSelector{}, nil
	case SelectRandom, "":
		return NewRandomSelector(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))), nil
	default:
		return nil, fmt.Errorf("unknown selection policy %q", policy)
	}
}

type firstSelector struct{}

func (firstSelector) Name() string { return SelectFirst }

func (firstSelector) Select(candidates []string) string { return candidates[0] }

// randomSelector 均匀随机选择
type randomSelector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSelector 使用给定随机源创建均匀随机策略
func NewRandomSelector(rnd *rand.Rand) Selector {
	return &randomSelector{rnd: rnd}
}

func (s *randomSelector) Name() string { return SelectRandom }

func (s *randomSelector) Select(candidates []string) string {
	s.mu.Lock()
	i := s.rnd.IntN(len(candidates))
	s.mu.Unlock()
	return candidates[i]
}
