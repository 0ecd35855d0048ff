package tokenizer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/generable/schema"
)

// Tokenizer 是统一的 Token 计数接口
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// 全局分词器注册表.
var (
	registry   = make(map[string]Tokenizer)
	registryMu sync.RWMutex
)

// Register 为给定的模型名称注册分词器.
func Register(model string, t Tokenizer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[model] = t
}

// Lookup 返回为模型注册的分词器。精确匹配优先，其次是最长的前缀匹配
// （例如 "gpt-4o-2024-08-06" 匹配 "gpt-4o"）。
func Lookup(model string) (Tokenizer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if t, ok := registry[model]; ok {
		return t, nil
	}
	if prefix, ok := longestPrefix(model, keys(registry)); ok {
		return registry[prefix], nil
	}
	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// ForModel 返回模型的分词器：已注册的优先，否则是回退到估算器的
// tiktoken 计数器。
func ForModel(model string, logger *zap.Logger) Tokenizer {
	if t, err := Lookup(model); err == nil {
		return t
	}
	tk := NewTiktoken(model)
	return WithFallback(tk, NewEstimator(tk.MaxTokens()), logger)
}

// CountSchema 统计描述符线格式的 token 数.
func CountSchema(t Tokenizer, d *schema.Descriptor) (int, error) {
	data, err := d.Serialize()
	if err != nil {
		return 0, fmt.Errorf("serialize schema %s: %w", d.Name(), err)
	}
	return t.CountTokens(string(data))
}

// =============================================================================
// 🔁 回退计数
// =============================================================================

type fallback struct {
	primary   Tokenizer
	secondary Tokenizer
	logger    *zap.Logger
	once      sync.Once
}

// WithFallback 返回先使用 primary 的分词器，primary 出错时改用 secondary.
func WithFallback(primary, secondary Tokenizer, logger *zap.Logger) Tokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With(zap.String("component", "tokenizer")),
	}
}

func (f *fallback) CountTokens(text string) (int, error) {
	n, err := f.primary.CountTokens(text)
	if err == nil {
		return n, nil
	}
	f.once.Do(func() {
		f.logger.Warn("tokenizer unavailable, using fallback",
			zap.String("primary", f.primary.Name()),
			zap.String("fallback", f.secondary.Name()),
			zap.Error(err),
		)
	})
	return f.secondary.CountTokens(text)
}

func (f *fallback) MaxTokens() int { return f.primary.MaxTokens() }

func (f *fallback) Name() string {
	return f.primary.Name() + "|" + f.secondary.Name()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// longestPrefix returns the longest candidate that prefixes name.
func longestPrefix(name string, candidates []string) (string, bool) {
	best := ""
	for _, c := range candidates {
		if strings.HasPrefix(name, c) && len(c) > len(best) {
			best = c
		}
	}
	return best, best != ""
}
