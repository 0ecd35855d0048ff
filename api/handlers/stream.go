package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/BaSui01/generable/api"
	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/internal/cache"
	"github.com/BaSui01/generable/internal/ctxkeys"
	"github.com/BaSui01/generable/internal/database"
	"github.com/BaSui01/generable/internal/pool"
	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/structured"
	"github.com/BaSui01/generable/types"
)

const (
	streamWriteTimeout = 10 * time.Second
	maxCloseReason     = 120
)

// StreamConfig WebSocket 流处理器配置
type StreamConfig struct {
	// Streams 非空且客户端给出 stream_id 时，每个文本块写入检查点
	Streams StreamStore
	// Records 非空且客户端给出 stream_id 时，流结束后保存校验记录
	Records RecordStore
	// OriginPatterns 允许的跨域来源，为空时只接受同源请求
	OriginPatterns []string
	// Extract 是否剥离 Markdown 代码块
	Extract bool
}

// StreamHandler 通过 WebSocket 接收文本块并逐块返回部分值快照
type StreamHandler struct {
	schemas SchemaSource
	cfg     StreamConfig
	opts    Options
	logger  *zap.Logger
}

// NewStreamHandler 创建流处理器
func NewStreamHandler(schemas SchemaSource, cfg StreamConfig, opts Options) *StreamHandler {
	return &StreamHandler{
		schemas: schemas,
		cfg:     cfg,
		opts:    opts,
		logger:  opts.logger("stream"),
	}
}

// streamInput 读协程结束时的状态
type streamInput struct {
	text string
	err  error
}

// HandleStream 处理 GET /v1/stream/{schema}?stream_id=。
//
// 客户端发送 api.StreamMessage，服务端对每个带 chunk 的消息返回一个
// api.StreamSnapshot；收到 done 后返回 Done 快照并以 1000 关闭连接。
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("schema")
	d, ok := h.schemas.Lookup(name)
	if !ok {
		WriteErrorMessage(w, r, types.ErrNotFound, "schema not found: "+name, h.logger)
		return
	}
	streamID := r.URL.Query().Get("stream_id")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.cfg.OriginPatterns})
	if err != nil {
		// Accept 已写出错误响应
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	limit := h.opts.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	conn.SetReadLimit(limit)
	defer h.opts.Metrics.StreamOpened()()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	logger := h.logger.With(zap.String("schema", d.Name()))
	if streamID != "" {
		ctx = ctxkeys.WithStreamID(ctx, streamID)
		logger = logger.With(zap.String("stream_id", streamID))
	}

	out, err := structured.NewOutputWithSchema[content.Value](d, h.opts.outputOptions(logger, h.cfg.Extract)...)
	if err != nil {
		conn.Close(websocket.StatusInternalError, closeReason(err))
		return
	}

	chunks := make(chan string)
	readDone := make(chan streamInput, 1)
	go h.readChunks(ctx, conn, chunks, readDone, logger)

	var (
		in   streamInput
		read bool
		seq  int
	)
	for p := range out.Stream(ctx, chunks) {
		seq++
		snap := newSnapshot(d, p, seq)
		if p.Done {
			// 读协程在关闭 chunks 之前已写入 readDone
			in, read = <-readDone, true
			if in.err != nil {
				break
			}
			snap.RecordID = h.record(ctx, d, in.text, p, logger)
		}
		if err := writeSnapshot(ctx, conn, snap); err != nil {
			logger.Debug("failed to write snapshot", zap.Error(err))
			cancel()
			break
		}
	}
	if !read {
		cancel()
		in = <-readDone
	}

	switch {
	case in.err == nil:
		conn.Close(websocket.StatusNormalClosure, "")
	case websocket.CloseStatus(in.err) != -1, errors.Is(in.err, context.Canceled):
		logger.Debug("stream closed by client", zap.Int("snapshots", seq))
	case types.HasCode(in.err, types.ErrConflict):
		conn.Close(websocket.StatusPolicyViolation, closeReason(in.err))
	case types.HasCode(in.err, types.ErrInvalidRequest):
		conn.Close(websocket.StatusUnsupportedData, closeReason(in.err))
	default:
		logger.Warn("stream failed", zap.Error(in.err))
		conn.Close(websocket.StatusInternalError, closeReason(in.err))
	}
}

// readChunks 读取客户端消息并转发文本块。结束时先写 done 再关闭 chunks。
func (h *StreamHandler) readChunks(ctx context.Context, conn *websocket.Conn, chunks chan<- string, done chan<- streamInput, logger *zap.Logger) {
	text := pool.Buffers.Get()
	var in streamInput
	defer func() {
		in.text = text.String()
		pool.Buffers.Put(text)
		done <- in
		close(chunks)
	}()

	streamID, _ := ctxkeys.StreamID(ctx)
	checkpoint := h.cfg.Streams != nil && streamID != ""

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			in.err = err
			return
		}
		var msg api.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			in.err = types.NewError(types.ErrInvalidRequest, "invalid stream message").WithCause(err)
			return
		}

		if msg.Chunk != "" {
			text.WriteString(msg.Chunk)
			if checkpoint {
				if _, err := h.cfg.Streams.Append(ctx, streamID, msg.Chunk); err != nil {
					if errors.Is(err, cache.ErrStreamFinished) {
						in.err = err
						return
					}
					logger.Warn("failed to checkpoint chunk", zap.Error(err))
				}
			}
			select {
			case chunks <- msg.Chunk:
			case <-ctx.Done():
				in.err = ctx.Err()
				return
			}
		}

		if msg.Done {
			if checkpoint {
				if err := h.cfg.Streams.Finish(ctx, streamID); err != nil {
					logger.Warn("failed to finish checkpoint", zap.Error(err))
				}
			}
			return
		}
	}
}

// record 保存流的最终校验结果，返回记录 ID
func (h *StreamHandler) record(ctx context.Context, d *schema.Descriptor, text string, p structured.Partial[content.Value], logger *zap.Logger) string {
	streamID, _ := ctxkeys.StreamID(ctx)
	if h.cfg.Records == nil || streamID == "" {
		return ""
	}
	rec := database.NewRecord(d.Name(), streamID, []byte(text), p.Raw, p.Err)
	if err := h.cfg.Records.Save(ctx, rec); err != nil {
		logger.Warn("failed to save validation record", zap.Error(err))
		return ""
	}
	return rec.ID
}

// HandleCheckpoint 处理 GET /v1/streams/{id}，返回检查点与解析出的部分值
func (h *StreamHandler) HandleCheckpoint(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Streams == nil {
		WriteErrorMessage(w, r, types.ErrServiceUnavailable, "stream checkpoints are disabled", h.logger)
		return
	}
	cp, err := h.cfg.Streams.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	v, err := cp.Value()
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.Checkpoint{
		ID:        cp.ID,
		Chunks:    cp.Chunks,
		Done:      cp.Done,
		Bytes:     len(cp.Text),
		Complete:  v.IsComplete(),
		Value:     v,
		UpdatedAt: cp.UpdatedAt,
	})
}

func newSnapshot(d *schema.Descriptor, p structured.Partial[content.Value], seq int) api.StreamSnapshot {
	s := api.StreamSnapshot{
		Seq:      seq,
		Complete: p.Complete,
		Done:     p.Done,
		Value:    p.Raw,
		Missing:  missingRequired(d, p.Raw),
	}
	if p.Err != nil {
		s.Error = p.Err.Error()
		s.Code = string(types.GetErrorCode(p.Err))
	}
	return s
}

// missingRequired 返回对象值中尚未出现的必填属性
func missingRequired(d *schema.Descriptor, v content.Value) []string {
	if d.Kind() != schema.KindObject {
		return nil
	}
	var missing []string
	for _, name := range d.Required() {
		pv, ok := v.Property(name)
		if !ok || pv.IsNull() {
			missing = append(missing, name)
		}
	}
	return missing
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, s api.StreamSnapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func closeReason(err error) string {
	msg := err.Error()
	if len(msg) > maxCloseReason {
		msg = msg[:maxCloseReason]
	}
	return msg
}
