package handlers

import (
	"net/http"
	"sort"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/BaSui01/generable/api"
	"github.com/BaSui01/generable/internal/tokenizer"
	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/types"
)

// SchemaHandler 查询已注册的 schema
type SchemaHandler struct {
	schemas      SchemaSource
	defaultModel string
	opts         Options
	logger       *zap.Logger
}

// NewSchemaHandler 创建 schema 处理器。defaultModel 用于未指定 model 的 token 统计。
func NewSchemaHandler(schemas SchemaSource, defaultModel string, opts Options) *SchemaHandler {
	return &SchemaHandler{
		schemas:      schemas,
		defaultModel: defaultModel,
		opts:         opts,
		logger:       opts.logger("schema"),
	}
}

// HandleList 处理 GET /v1/schemas
func (h *SchemaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	names := h.schemas.Names()
	sort.Strings(names)

	out := make([]api.SchemaSummary, 0, len(names))
	for _, name := range names {
		d, ok := h.schemas.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, api.SchemaSummary{
			Name:        d.Name(),
			Kind:        d.Kind().String(),
			Description: d.Description(),
			Required:    d.Required(),
		})
	}
	WriteSuccess(w, r, out)
}

// HandleGet 处理 GET /v1/schemas/{name}，返回线格式
func (h *SchemaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}
	raw, err := d.Serialize()
	if err != nil {
		WriteError(w, r, types.NewError(types.ErrInternalError, "failed to serialize schema").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, r, json.RawMessage(raw))
}

// HandleJSONSchema 处理 GET /v1/schemas/{name}/jsonschema
func (h *SchemaHandler) HandleJSONSchema(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, r, d.ToJSONSchema())
}

// HandleTokens 处理 GET /v1/schemas/{name}/tokens?model=
func (h *SchemaHandler) HandleTokens(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}
	model := r.URL.Query().Get("model")
	if model == "" {
		model = h.defaultModel
	}
	if model == "" {
		WriteErrorMessage(w, r, types.ErrInvalidRequest, "model is required", h.logger)
		return
	}

	tk := tokenizer.ForModel(model, h.logger)
	n, err := tokenizer.CountSchema(tk, d)
	if err != nil {
		WriteError(w, r, types.NewError(types.ErrInternalError, "failed to count tokens").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, r, api.SchemaTokens{
		Name:      d.Name(),
		Model:     model,
		Tokenizer: tk.Name(),
		Tokens:    n,
		MaxTokens: tk.MaxTokens(),
	})
}

func (h *SchemaHandler) lookup(w http.ResponseWriter, r *http.Request) (*schema.Descriptor, bool) {
	name := r.PathValue("name")
	d, ok := h.schemas.Lookup(name)
	if !ok {
		WriteErrorMessage(w, r, types.ErrNotFound, "schema not found: "+name, h.logger)
		return nil, false
	}
	return d, true
}
