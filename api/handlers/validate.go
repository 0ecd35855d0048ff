package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/generable/api"
	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/internal/database"
	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/structured"
	"github.com/BaSui01/generable/types"
)

// ValidateHandler 按命名 schema 解析并校验模型输出
type ValidateHandler struct {
	schemas SchemaSource
	records RecordStore
	opts    Options
	logger  *zap.Logger
}

// NewValidateHandler 创建校验处理器，records 为 nil 时忽略 record 请求
func NewValidateHandler(schemas SchemaSource, records RecordStore, opts Options) *ValidateHandler {
	return &ValidateHandler{
		schemas: schemas,
		records: records,
		opts:    opts,
		logger:  opts.logger("validate"),
	}
}

// HandleValidate 处理 POST /v1/validate。校验失败不是请求错误：
// 响应为 200，Valid 为 false；只有无法解析的文本返回 4xx。
func (h *ValidateHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.ValidateRequest
	if err := DecodeJSONBody(w, r, &req, h.opts.MaxBodyBytes, h.logger); err != nil {
		return
	}
	if req.Schema == "" {
		WriteErrorMessage(w, r, types.ErrInvalidRequest, "schema is required", h.logger)
		return
	}
	d, ok := h.schemas.Lookup(req.Schema)
	if !ok {
		WriteErrorMessage(w, r, types.ErrNotFound, "schema not found: "+req.Schema, h.logger)
		return
	}

	out, err := structured.NewOutputWithSchema[content.Value](d, h.opts.outputOptions(h.logger, req.Extract)...)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	result := out.ParseWithResult(r.Context(), req.Text)

	var perr *content.ParseError
	if errors.As(result.Err(), &perr) {
		WriteError(w, r, perr, h.logger)
		return
	}

	resp := validationResponse(d.Name(), result.Content, result.Err())
	if req.Record && h.records != nil {
		rec := database.NewRecord(d.Name(), req.StreamID, []byte(req.Text), result.Content, result.Err())
		if err := h.records.Save(r.Context(), rec); err != nil {
			WriteError(w, r, types.NewError(types.ErrServiceUnavailable, "failed to save validation record").WithCause(err), h.logger)
			return
		}
		resp.RecordID = rec.ID
	}
	WriteSuccess(w, r, resp)
}

// validationResponse 将校验错误展开为响应
func validationResponse(name string, v content.Value, err error) api.ValidateResponse {
	resp := api.ValidateResponse{
		Schema:   name,
		Valid:    err == nil,
		Complete: v.IsComplete(),
		Value:    v,
	}
	if err == nil {
		return resp
	}
	var vs schema.Violations
	if errors.As(err, &vs) {
		resp.Violations = violationInfos(vs)
		return resp
	}
	resp.Error = err.Error()
	return resp
}

func violationInfos(vs schema.Violations) []api.ViolationInfo {
	out := make([]api.ViolationInfo, 0, len(vs))
	for _, vi := range vs {
		out = append(out, api.ViolationInfo{
			Property:   vi.Property,
			Constraint: vi.Constraint,
			Value:      vi.Value,
			Message:    vi.Error(),
		})
	}
	return out
}
