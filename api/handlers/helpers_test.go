package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/generable/structured"
	"github.com/BaSui01/generable/testutil/fixtures"
)

// testRegistry 注册 Person 与 Mood 两个 schema
func testRegistry(t *testing.T) *structured.Registry {
	t.Helper()
	r := structured.NewRegistry()
	r.Register(fixtures.Person())
	r.Register(fixtures.Mood())
	return r
}

// apiResponse 用于测试的响应结构，Data 保留原始 JSON
type apiResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *ErrorInfo      `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id"`
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	resp := decodeResponse(t, w)
	require.True(t, resp.Success, "body: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(method, target, bytes.NewReader(data))
	r.Header.Set("Content-Type", "application/json")
	return r
}
