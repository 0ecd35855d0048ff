package api

import (
	"time"

	"github.com/BaSui01/generable/content"
)

// =============================================================================
// 解析与校验
// =============================================================================

// ParseRequest 解析请求
type ParseRequest struct {
	// 模型输出文本，可以不完整
	Text string `json:"text"`
	// 为 true 时先剥离 Markdown 代码块与前导说明文字
	Extract bool `json:"extract,omitempty"`
}

// ParseResponse 解析结果
type ParseResponse struct {
	Complete bool          `json:"complete"`
	Kind     string        `json:"kind"`
	Value    content.Value `json:"value"`
}

// ValidateRequest 校验请求
type ValidateRequest struct {
	Schema  string `json:"schema"`
	Text    string `json:"text"`
	Extract bool   `json:"extract,omitempty"`
	// 非空时与流检查点关联
	StreamID string `json:"stream_id,omitempty"`
	// 为 true 且服务配置了数据库时保存校验记录
	Record bool `json:"record,omitempty"`
}

// ValidateResponse 校验结果。Valid 为 false 时 Violations 或 Error 说明原因。
type ValidateResponse struct {
	Schema     string          `json:"schema"`
	Valid      bool            `json:"valid"`
	Complete   bool            `json:"complete"`
	Value      content.Value   `json:"value"`
	Violations []ViolationInfo `json:"violations,omitempty"`
	Error      string          `json:"error,omitempty"`
	RecordID   string          `json:"record_id,omitempty"`
}

// ViolationInfo 单个约束违反
type ViolationInfo struct {
	Property   string        `json:"property,omitempty"`
	Constraint string        `json:"constraint"`
	Value      content.Value `json:"value"`
	Message    string        `json:"message"`
}

// =============================================================================
// Schema
// =============================================================================

// SchemaSummary 已注册 schema 概要
type SchemaSummary struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
}

// SchemaTokens schema 提示词的 token 统计
type SchemaTokens struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Tokenizer string `json:"tokenizer"`
	Tokens    int    `json:"tokens"`
	MaxTokens int    `json:"max_tokens"`
}

// =============================================================================
// 流
// =============================================================================

// StreamMessage 客户端发送的 WebSocket 消息。Chunk 追加到已收文本，
// Done 表示流结束，两者可以同时出现。
type StreamMessage struct {
	Chunk string `json:"chunk,omitempty"`
	Done  bool   `json:"done,omitempty"`
}

// StreamSnapshot 服务端为每条消息返回的快照。Done 为 true 的快照是最后一条，
// Error 说明最终值为何不完整或未通过校验。
type StreamSnapshot struct {
	Seq      int           `json:"seq"`
	Complete bool          `json:"complete"`
	Done     bool          `json:"done"`
	Value    content.Value `json:"value"`
	Missing  []string      `json:"missing,omitempty"`
	Error    string        `json:"error,omitempty"`
	Code     string        `json:"code,omitempty"`
	RecordID string        `json:"record_id,omitempty"`
}

// Checkpoint Redis 中保存的流状态
type Checkpoint struct {
	ID        string        `json:"id"`
	Chunks    int64         `json:"chunks"`
	Done      bool          `json:"done"`
	Bytes     int           `json:"bytes"`
	Complete  bool          `json:"complete"`
	Value     content.Value `json:"value"`
	UpdatedAt time.Time     `json:"updated_at"`
}
