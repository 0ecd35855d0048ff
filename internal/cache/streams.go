package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/types"
)

const keyPrefix = "generable:stream:"

var (
	// ErrStreamNotFound 流不存在或已过期
	ErrStreamNotFound = types.NewError(types.ErrNotFound, "stream not found")
	// ErrStreamFinished 流已结束，不再接受文本
	ErrStreamFinished = types.NewError(types.ErrConflict, "stream already finished")
)

// Checkpoint is the state of one stream at the time it was loaded.
type Checkpoint struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Chunks    int64     `json:"chunks"`
	Done      bool      `json:"done"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Value parses the accumulated text as a possibly partial value.
func (c Checkpoint) Value() (content.Value, error) {
	return content.ParseString(c.Text)
}

// StreamStore appends streamed text to Redis under a stream ID. Every write
// refreshes the TTL of both keys of the stream.
type StreamStore struct {
	m   *Manager
	ttl time.Duration
}

// NewStreamStore 创建流检查点存储，ttl 为 0 时键不过期
func NewStreamStore(m *Manager, ttl time.Duration) *StreamStore {
	return &StreamStore{m: m, ttl: ttl}
}

func textKey(id string) string  { return keyPrefix + id + ":text" }
func stateKey(id string) string { return keyPrefix + id + ":state" }

// Append adds chunk to the stream and returns the total text length.
func (s *StreamStore) Append(ctx context.Context, id, chunk string) (int64, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	c, err := s.m.client()
	if err != nil {
		return 0, err
	}
	done, err := c.HGet(ctx, stateKey(id), "done").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read stream state: %w", err)
	}
	if done == "1" {
		return 0, ErrStreamFinished
	}

	var size *redis.IntCmd
	_, err = c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		size = p.Append(ctx, textKey(id), chunk)
		p.HIncrBy(ctx, stateKey(id), "chunks", 1)
		p.HSet(ctx, stateKey(id), "updated", time.Now().UnixMilli())
		s.expire(ctx, p, id)
		return nil
	})
	if err != nil {
		s.m.logger.Error("stream append failed", zap.String("stream_id", id), zap.Error(err))
		return 0, fmt.Errorf("append stream chunk: %w", err)
	}
	return size.Val(), nil
}

// Finish marks the stream as done. Appends after Finish fail with
// ErrStreamFinished.
func (s *StreamStore) Finish(ctx context.Context, id string) error {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	c, err := s.m.client()
	if err != nil {
		return err
	}
	n, err := c.Exists(ctx, stateKey(id)).Result()
	if err != nil {
		return fmt.Errorf("check stream: %w", err)
	}
	if n == 0 {
		return ErrStreamNotFound
	}
	_, err = c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, stateKey(id), "done", 1, "updated", time.Now().UnixMilli())
		s.expire(ctx, p, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("finish stream: %w", err)
	}
	s.m.logger.Debug("stream finished", zap.String("stream_id", id))
	return nil
}

// Load returns the current checkpoint of the stream.
func (s *StreamStore) Load(ctx context.Context, id string) (Checkpoint, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	c, err := s.m.client()
	if err != nil {
		return Checkpoint{}, err
	}
	var (
		text  *redis.StringCmd
		state *redis.MapStringStringCmd
	)
	_, err = c.Pipelined(ctx, func(p redis.Pipeliner) error {
		text = p.Get(ctx, textKey(id))
		state = p.HGetAll(ctx, stateKey(id))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Checkpoint{}, fmt.Errorf("load stream: %w", err)
	}
	fields := state.Val()
	if len(fields) == 0 {
		return Checkpoint{}, ErrStreamNotFound
	}

	cp := Checkpoint{ID: id, Text: text.Val(), Done: fields["done"] == "1"}
	cp.Chunks, _ = strconv.ParseInt(fields["chunks"], 10, 64)
	if ms, err := strconv.ParseInt(fields["updated"], 10, 64); err == nil {
		cp.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	return cp, nil
}

// Delete removes the stream. Deleting a missing stream is not an error.
func (s *StreamStore) Delete(ctx context.Context, id string) error {
	return s.m.Delete(ctx, textKey(id), stateKey(id))
}

func (s *StreamStore) expire(ctx context.Context, p redis.Pipeliner, id string) {
	if s.ttl <= 0 {
		return
	}
	p.Expire(ctx, textKey(id), s.ttl)
	p.Expire(ctx, stateKey(id), s.ttl)
}
