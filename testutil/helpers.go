// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供分块输入、前缀解析与异步等待等通用辅助
//
// 使用方法:
//
//	in := testutil.Feed(ctx, testutil.Chunks(text, 4))
//	testutil.AssertValueJSON(t, `{"a":1}`, testutil.MustParse(t, `{"a":1`))
// =============================================================================
package testutil

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/generable/content"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🌊 流式辅助
// =============================================================================

// Chunks cuts text into pieces of at most size bytes. Pieces may split a
// multi-byte rune, the way a network stream would.
func Chunks(text string, size int) []string {
	if size <= 0 {
		size = 1
	}
	chunks := make([]string, 0, len(text)/size+1)
	for start := 0; start < len(text); start += size {
		end := min(start+size, len(text))
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

// Prefixes returns every byte prefix of text, shortest first, excluding
// the empty prefix.
func Prefixes(text string) []string {
	out := make([]string, 0, len(text))
	for i := 1; i <= len(text); i++ {
		out = append(out, text[:i])
	}
	return out
}

// Feed sends chunks on a new channel and closes it. Sending stops early
// when ctx is done.
func Feed(ctx context.Context, chunks []string) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, c := range chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Collect drains ch into a slice.
func Collect[T any](ch <-chan T) []T {
	var out []T
	for v := range ch {
		out = append(out, v)
	}
	return out
}

// =============================================================================
// 🔍 值辅助
// =============================================================================

// MustParse parses text as a possibly truncated document and fails the
// test on a parse error.
func MustParse(t testing.TB, text string) content.Value {
	t.Helper()
	v, err := content.ParseString(text)
	require.NoError(t, err, "parse %q", text)
	return v
}

// AssertValueJSON asserts that v renders as the expected JSON document.
func AssertValueJSON(t testing.TB, expected string, v content.Value) {
	t.Helper()
	assert.JSONEq(t, expected, v.JSON())
}

// MustJSON 将值转换为 JSON 字符串，失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// =============================================================================
// ⏱️ 时间辅助
// =============================================================================

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t testing.TB, condition func() bool, timeout time.Duration) {
	t.Helper()
	assert.Eventually(t, condition, timeout, 10*time.Millisecond)
}

// WaitForChannel 等待通道接收或超时
func WaitForChannel[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}
