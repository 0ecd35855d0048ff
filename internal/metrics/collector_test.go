package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("test", zap.NewNop(), WithRegisterer(reg)), reg
}

func TestNewCollector(t *testing.T) {
	c, reg := newTestCollector(t)

	assert.NotNil(t, c.parsesTotal)
	assert.NotNil(t, c.parseBytes)
	assert.NotNil(t, c.coercionFailures)
	assert.NotNil(t, c.violations)
	assert.NotNil(t, c.snapshotsTotal)

	// 同一个 registry 上重复注册会 panic
	assert.Panics(t, func() {
		NewCollector("test", zap.NewNop(), WithRegisterer(reg))
	})
}

func TestNewCollector_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("test", nil, WithRegisterer(prometheus.NewRegistry()))
	})
}

func TestCollector_RecordParse(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordParse(OutcomeComplete, 120, time.Millisecond)
	c.RecordParse(OutcomeComplete, 80, time.Millisecond)
	c.RecordParse(OutcomePartial, 10, time.Microsecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.parsesTotal.WithLabelValues(OutcomeComplete)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parsesTotal.WithLabelValues(OutcomePartial)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.parsesTotal.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.parseBytes))
}

func TestCollector_RecordSnapshot(t *testing.T) {
	c, _ := newTestCollector(t)

	for i := 0; i < 3; i++ {
		c.RecordSnapshot()
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(c.snapshotsTotal))
}

func TestCollector_RecordCoercionFailure(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordCoercionFailure("int64")
	c.RecordCoercionFailure("uuid")
	c.RecordCoercionFailure("int64")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.coercionFailures.WithLabelValues("int64")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.coercionFailures))
}

func TestCollector_RecordViolation(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordViolation("range(0, 120)")
	c.RecordViolation("range(1, 2)")
	c.RecordViolation("required")
	c.RecordViolation("")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.violations.WithLabelValues("range")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.violations.WithLabelValues("required")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.violations.WithLabelValues("unknown")))
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordParse(OutcomeError, 1, time.Second)
		c.RecordSnapshot()
		c.RecordCoercionFailure("bool")
		c.RecordViolation("required")
		c.RecordHTTPRequest("GET", "/healthz", 200, time.Millisecond)
		c.StreamOpened()()
	})
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordHTTPRequest("POST", "/v1/parse", 200, 3*time.Millisecond)
	c.RecordHTTPRequest("POST", "/v1/parse", 400, time.Millisecond)
	c.RecordHTTPRequest("POST", "/v1/parse", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/v1/parse", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/v1/parse", "400")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpRequestDuration))
}

func TestCollector_StreamOpened(t *testing.T) {
	c, _ := newTestCollector(t)

	doneA := c.StreamOpened()
	doneB := c.StreamOpened()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.activeStreams))

	doneA()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeStreams))
	doneB()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.activeStreams))
}

func TestCollector_Gather(t *testing.T) {
	c, reg := newTestCollector(t)
	c.RecordParse(OutcomeComplete, 42, time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_parses_total")
	assert.Contains(t, names, "test_parse_bytes")
	assert.Contains(t, names, "test_parse_duration_seconds")
}

func TestConstraintKind(t *testing.T) {
	tests := map[string]string{
		`pattern("^a$")`: "pattern",
		"type(integer)":  "type",
		"required":       "required",
		"":               "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, constraintKind(in), in)
	}
}
