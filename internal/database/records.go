package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/types"
)

// ErrRecordNotFound 记录不存在
var ErrRecordNotFound = types.NewError(types.ErrNotFound, "validation record not found")

// ValidationRecord is one validated model output.
type ValidationRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	StreamID   string    `gorm:"size:128;index;not null;default:''" json:"stream_id,omitempty"`
	SchemaName string    `gorm:"column:schema_name;size:255;index;not null" json:"schema"`
	Input      string    `gorm:"type:text;not null" json:"input"`
	Complete   bool      `gorm:"not null;default:false" json:"complete"`
	Valid      bool      `gorm:"not null;default:false" json:"valid"`
	Violations []string  `gorm:"type:text;serializer:json" json:"violations,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName 固定表名，与迁移文件一致
func (ValidationRecord) TableName() string { return "validation_records" }

// NewRecord builds a record from the outcome of validating v against the
// named schema. verr is the error returned by validation, nil when valid.
func NewRecord(schemaName, streamID string, input []byte, v content.Value, verr error) *ValidationRecord {
	rec := &ValidationRecord{
		StreamID:   streamID,
		SchemaName: schemaName,
		Input:      string(input),
		Complete:   v.IsComplete(),
		Valid:      verr == nil,
	}
	var vs schema.Violations
	switch {
	case verr == nil:
	case errors.As(verr, &vs):
		for _, vi := range vs {
			rec.Violations = append(rec.Violations, vi.Error())
		}
	default:
		rec.Violations = []string{verr.Error()}
	}
	return rec
}

// RecordFilter 查询条件，零值字段不参与过滤
type RecordFilter struct {
	SchemaName string
	StreamID   string
	Valid      *bool
	Since      time.Time
	Limit      int
}

// RecordStore persists validation records.
type RecordStore struct {
	pool   *PoolManager
	logger *zap.Logger
}

// NewRecordStore 创建记录存储
func NewRecordStore(pool *PoolManager, logger *zap.Logger) *RecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{pool: pool, logger: logger.With(zap.String("component", "records"))}
}

// AutoMigrate 创建或更新 validation_records 表
func (s *RecordStore) AutoMigrate(ctx context.Context) error {
	return s.pool.DB().WithContext(ctx).AutoMigrate(&ValidationRecord{})
}

// Save inserts rec, assigning an ID and creation time when unset.
func (s *RecordStore) Save(ctx context.Context, rec *ValidationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := s.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	if err != nil {
		return fmt.Errorf("save validation record: %w", err)
	}
	s.logger.Debug("validation record saved",
		zap.String("id", rec.ID),
		zap.String("schema", rec.SchemaName),
		zap.Bool("valid", rec.Valid),
	)
	return nil
}

// Get 按 ID 读取记录
func (s *RecordStore) Get(ctx context.Context, id string) (*ValidationRecord, error) {
	var rec ValidationRecord
	err := s.pool.DB().WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get validation record: %w", err)
	}
	return &rec, nil
}

// List returns matching records, newest first.
func (s *RecordStore) List(ctx context.Context, f RecordFilter) ([]ValidationRecord, error) {
	q := s.pool.DB().WithContext(ctx).Model(&ValidationRecord{})
	if f.SchemaName != "" {
		q = q.Where("schema_name = ?", f.SchemaName)
	}
	if f.StreamID != "" {
		q = q.Where("stream_id = ?", f.StreamID)
	}
	if f.Valid != nil {
		q = q.Where("valid = ?", *f.Valid)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []ValidationRecord
	if err := q.Order("created_at DESC").Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list validation records: %w", err)
	}
	return out, nil
}

// Purge deletes records created before cutoff and returns how many went.
func (s *RecordStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.pool.DB().WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&ValidationRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge validation records: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Info("validation records purged", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
