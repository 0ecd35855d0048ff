package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/generable/internal/database"
	"github.com/BaSui01/generable/types"
)

const (
	defaultRecordLimit = 50
	maxRecordLimit     = 500
)

// RecordHandler 查询校验记录
type RecordHandler struct {
	records RecordStore
	logger  *zap.Logger
}

// NewRecordHandler 创建记录处理器
func NewRecordHandler(records RecordStore, opts Options) *RecordHandler {
	return &RecordHandler{records: records, logger: opts.logger("records")}
}

// HandleList 处理 GET /v1/records?schema=&stream_id=&valid=&since=&limit=
func (h *RecordHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRecordFilter(r)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	recs, err := h.records.List(r.Context(), filter)
	if err != nil {
		WriteError(w, r, types.NewError(types.ErrServiceUnavailable, "failed to list validation records").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, r, recs)
}

// HandleGet 处理 GET /v1/records/{id}
func (h *RecordHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, rec)
}

func parseRecordFilter(r *http.Request) (database.RecordFilter, error) {
	q := r.URL.Query()
	f := database.RecordFilter{
		SchemaName: q.Get("schema"),
		StreamID:   q.Get("stream_id"),
		Limit:      defaultRecordLimit,
	}
	if s := q.Get("valid"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, types.NewError(types.ErrInvalidRequest, "valid must be a boolean").WithCause(err)
		}
		f.Valid = &b
	}
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, types.NewError(types.ErrInvalidRequest, "since must be an RFC 3339 timestamp").WithCause(err)
		}
		f.Since = t
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return f, types.NewError(types.ErrInvalidRequest, "limit must be a positive integer")
		}
		f.Limit = min(n, maxRecordLimit)
	}
	return f, nil
}
