// =============================================================================
// 🗃️ MockRecordStore - 校验记录存储模拟实现
// =============================================================================
// 内存实现，满足 handlers.RecordStore，支持错误注入与调用计数
//
// 使用方法:
//
//	records := mocks.NewMockRecordStore().WithSaveError(errors.New("locked"))
//	h := handlers.NewValidateHandler(registry, records, handlers.Options{})
// =============================================================================
package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/generable/internal/database"
)

// MockRecordStore 是校验记录存储的模拟实现
type MockRecordStore struct {
	mu      sync.Mutex
	records []database.ValidationRecord

	// 错误注入
	saveErr error
	getErr  error
	listErr error

	// 调用记录
	saveCalls int
	listCalls int
}

// NewMockRecordStore 创建空的 MockRecordStore
func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{}
}

// WithSaveError makes every Save fail with err.
func (m *MockRecordStore) WithSaveError(err error) *MockRecordStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
	return m
}

// WithGetError makes every Get fail with err.
func (m *MockRecordStore) WithGetError(err error) *MockRecordStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
	return m
}

// WithListError makes every List fail with err.
func (m *MockRecordStore) WithListError(err error) *MockRecordStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
	return m
}

// Save stores a copy of rec, assigning ID and CreatedAt.
func (m *MockRecordStore) Save(_ context.Context, rec *database.ValidationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	m.records = append(m.records, *rec)
	return nil
}

// Get returns the record with id or database.ErrRecordNotFound.
func (m *MockRecordStore) Get(_ context.Context, id string) (*database.ValidationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, database.ErrRecordNotFound
}

// List applies f the way the database store does, newest first.
func (m *MockRecordStore) List(_ context.Context, f database.RecordFilter) ([]database.ValidationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []database.ValidationRecord
	for _, rec := range m.records {
		if f.SchemaName != "" && rec.SchemaName != f.SchemaName {
			continue
		}
		if f.StreamID != "" && rec.StreamID != f.StreamID {
			continue
		}
		if f.Valid != nil && rec.Valid != *f.Valid {
			continue
		}
		if !f.Since.IsZero() && rec.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Records returns a copy of everything saved so far.
func (m *MockRecordStore) Records() []database.ValidationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.ValidationRecord(nil), m.records...)
}

// SaveCalls 返回 Save 调用次数
func (m *MockRecordStore) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

// ListCalls 返回 List 调用次数
func (m *MockRecordStore) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}
