// =============================================================================
// 🌊 MockStreamStore - 流检查点存储模拟实现
// =============================================================================
// 内存实现，满足 handlers.StreamStore，语义与 cache.StreamStore 一致：
// Finish 之后的 Append 返回 cache.ErrStreamFinished。
// =============================================================================
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/generable/internal/cache"
)

type streamState struct {
	text    []byte
	chunks  int64
	done    bool
	updated time.Time
}

// MockStreamStore 是流检查点存储的模拟实现
type MockStreamStore struct {
	mu      sync.Mutex
	streams map[string]*streamState

	// 错误注入
	appendErr error
	finishErr error

	// 调用记录
	appendCalls int
	finishCalls int
}

// NewMockStreamStore 创建空的 MockStreamStore
func NewMockStreamStore() *MockStreamStore {
	return &MockStreamStore{streams: make(map[string]*streamState)}
}

// WithAppendError makes every Append fail with err.
func (m *MockStreamStore) WithAppendError(err error) *MockStreamStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
	return m
}

// WithFinishError makes every Finish fail with err.
func (m *MockStreamStore) WithFinishError(err error) *MockStreamStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishErr = err
	return m
}

// Append adds chunk to the stream and returns the stored length.
func (m *MockStreamStore) Append(_ context.Context, id, chunk string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCalls++
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	s, ok := m.streams[id]
	if !ok {
		s = &streamState{}
		m.streams[id] = s
	}
	if s.done {
		return 0, cache.ErrStreamFinished
	}
	s.text = append(s.text, chunk...)
	s.chunks++
	s.updated = time.Now()
	return int64(len(s.text)), nil
}

// Finish marks the stream as done.
func (m *MockStreamStore) Finish(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishCalls++
	if m.finishErr != nil {
		return m.finishErr
	}
	s, ok := m.streams[id]
	if !ok {
		return cache.ErrStreamNotFound
	}
	s.done = true
	s.updated = time.Now()
	return nil
}

// Load returns the current checkpoint of the stream.
func (m *MockStreamStore) Load(_ context.Context, id string) (cache.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	if !ok {
		return cache.Checkpoint{}, cache.ErrStreamNotFound
	}
	return cache.Checkpoint{
		ID:        id,
		Text:      string(s.text),
		Chunks:    s.chunks,
		Done:      s.done,
		UpdatedAt: s.updated,
	}, nil
}

// AppendCalls 返回 Append 调用次数
func (m *MockStreamStore) AppendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendCalls
}

// FinishCalls 返回 Finish 调用次数
func (m *MockStreamStore) FinishCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishCalls
}
