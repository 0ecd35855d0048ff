package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/generable/api"
	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/internal/metrics"
	"github.com/BaSui01/generable/structured"
)

// ParseHandler 解析不带 schema 的（可能不完整的）JSON 文本
type ParseHandler struct {
	opts   Options
	logger *zap.Logger
}

// NewParseHandler 创建解析处理器
func NewParseHandler(opts Options) *ParseHandler {
	return &ParseHandler{opts: opts, logger: opts.logger("parse")}
}

// HandleParse 处理 POST /v1/parse
func (h *ParseHandler) HandleParse(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.ParseRequest
	if err := DecodeJSONBody(w, r, &req, h.opts.MaxBodyBytes, h.logger); err != nil {
		return
	}

	text := req.Text
	if req.Extract {
		text = structured.ExtractJSON(text)
	}

	start := time.Now()
	v, err := content.ParseWithOptions([]byte(text), content.Options{MaxDepth: h.opts.maxDepth()})
	outcome := metrics.OutcomeComplete
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case !v.IsComplete():
		outcome = metrics.OutcomePartial
	}
	h.opts.Metrics.RecordParse(outcome, len(text), time.Since(start))

	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.ParseResponse{
		Complete: v.IsComplete(),
		Kind:     v.Kind().String(),
		Value:    v,
	})
}
