package composer

import (
	"strings"
	"sync"
)

// State DisplayBuffer 的生命周期状态
type State int

const (
	StateIdle State = iota
	StateLoading
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// DisplayBuffer 当前展示的生成文本。每次提交分配一个递增的 generation，
// 只有最新 generation 的写入会生效。
type DisplayBuffer struct {
	mu    sync.RWMutex
	gen   uint64
	text  strings.Builder
	state State
	err   error
}

func NewDisplayBuffer() *DisplayBuffer {
	return &DisplayBuffer{}
}

// Begin 开始新的提交：清空内容，返回新的 generation
func (b *DisplayBuffer) Begin() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	b.text.Reset()
	b.state = StateLoading
	b.err = nil
	return b.gen
}

// Append 追加文本；generation 已过期时忽略并返回 false
func (b *DisplayBuffer) Append(gen uint64, s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen || b.state != StateLoading {
		return false
	}
	b.text.WriteString(s)
	return true
}

// Complete 标记完成并返回最终文本
func (b *DisplayBuffer) Complete(gen uint64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen || b.state != StateLoading {
		return "", false
	}
	b.state = StateDone
	return b.text.String(), true
}

// Fail 标记失败，已收到的部分内容一并丢弃
func (b *DisplayBuffer) Fail(gen uint64, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen || b.state != StateLoading {
		return false
	}
	b.text.Reset()
	b.state = StateFailed
	b.err = err
	return true
}

// Reset 页面重置：作废进行中的提交并清空
func (b *DisplayBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	b.text.Reset()
	b.state = StateIdle
	b.err = nil
}

func (b *DisplayBuffer) IsCurrent(gen uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return gen == b.gen
}

func (b *DisplayBuffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text.String()
}

func (b *DisplayBuffer) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *DisplayBuffer) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

func (b *DisplayBuffer) Generation() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.gen
}
