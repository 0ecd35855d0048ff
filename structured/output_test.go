package structured

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/generable/internal/metrics"
	"github.com/BaSui01/generable/schema"
	gentest "github.com/BaSui01/generable/testutil"
	"github.com/BaSui01/generable/types"
)

func newPersonOutput(t *testing.T, opts ...Option) *Output[Person] {
	t.Helper()
	opts = append([]Option{WithRegistry(NewRegistry())}, opts...)
	out, err := NewOutput[Person](opts...)
	require.NoError(t, err)
	return out
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"surrounding space", "  \n{\"a\":1}\n ", `{"a":1}`},
		{"closed fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without language", "```\n[1,2]\n```", `[1,2]`},
		{"open fence", "Here you go:\n```json\n{\"a\":", `{"a":`},
		{"leading prose", `Sure! The answer is {"a":1}`, `{"a":1}`},
		{"bare string", `"hello"`, `"hello"`},
		{"bare number", `-12.5`, `-12.5`},
		{"no value", `no json here`, `no json here`},
		{"empty", ``, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestOutput_Parse(t *testing.T) {
	out := newPersonOutput(t)
	assert.Equal(t, "Person", out.Schema().Name())

	p, err := out.Parse(context.Background(), "```json\n{\"name\":\"Ada\",\"age\":36}\n```")
	require.NoError(t, err)
	assert.Equal(t, &Person{Name: "Ada", Age: 36}, p)
}

func TestOutput_ParseViolations(t *testing.T) {
	out := newPersonOutput(t)

	r := out.ParseWithResult(context.Background(), `{"name":"Ada","age":150,"email":"nope"}`)
	assert.False(t, r.IsValid())
	assert.Nil(t, r.Value)
	require.Len(t, r.Errors, 1)

	var vs schema.Violations
	require.ErrorAs(t, r.Err(), &vs)
	require.Len(t, vs, 2)
	assert.Equal(t, "age", vs[0].Property)
	assert.Equal(t, "range(0, 120)", vs[0].Constraint)
	assert.Equal(t, "email", vs[1].Property)
	assert.Equal(t, "format(email)", vs[1].Constraint)
	assert.Equal(t, `{"name":"Ada","age":150,"email":"nope"}`, r.Content.JSON())
}

func TestOutput_ParseIncompleteAndEmpty(t *testing.T) {
	out := newPersonOutput(t)

	_, err := out.Parse(context.Background(), `{"name":"Ada"`)
	assert.ErrorIs(t, err, schema.ErrIncompleteValue)

	_, err = out.Parse(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, types.ErrParse, types.GetErrorCode(err))
}

func TestOutput_WithSchema(t *testing.T) {
	_, err := NewOutputWithSchema[Person](nil)
	assert.Error(t, err)

	strict := schema.Must(schema.NewObject("Person",
		schema.Prop("name", schema.TypeString, schema.Pattern("[A-Z][a-z]+")),
		schema.Prop("age", schema.TypeInteger),
	))
	out, err := NewOutputWithSchema[Person](strict)
	require.NoError(t, err)
	assert.Same(t, strict, out.Schema())

	_, err = out.Parse(context.Background(), `{"name":"ada","age":1}`)
	var vs schema.Violations
	require.ErrorAs(t, err, &vs)
	assert.Equal(t, "name", vs[0].Property)
}

func TestOutput_UnsupportedType(t *testing.T) {
	_, err := NewOutput[[]string](WithRegistry(NewRegistry()))
	var be *schema.SchemaBuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, schema.ReasonInvalidRoot, be.Reason)
}

func TestOutput_Snapshot(t *testing.T) {
	out := newPersonOutput(t)

	p, err := out.Snapshot(`Here: {"name":"Ada","age":3`)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Value.Name)
	assert.Equal(t, 3, p.Value.Age)
	assert.False(t, p.Complete)

	_, err = out.Snapshot("")
	assert.Error(t, err)
}

func TestOutput_Stream(t *testing.T) {
	ctx := gentest.TestContext(t)
	out := newPersonOutput(t)

	snaps := gentest.Collect(out.Stream(ctx,
		gentest.Feed(ctx, []string{`{"name":`, `"Ada",`, `"age":3`, `6}`})))
	require.Len(t, snaps, 5)

	assert.False(t, snaps[0].Has("name"))
	assert.Equal(t, "Ada", snaps[1].Value.Name)
	assert.Equal(t, 3, snaps[2].Value.Age)
	assert.Equal(t, 36, snaps[3].Value.Age)
	assert.True(t, snaps[3].Complete)
	for _, s := range snaps[:4] {
		assert.False(t, s.Done)
	}

	final := snaps[4]
	assert.True(t, final.Done)
	assert.NoError(t, final.Err)
	got, err := final.Final()
	require.NoError(t, err)
	assert.Equal(t, Person{Name: "Ada", Age: 36}, got)
}

func TestOutput_StreamEndsEarly(t *testing.T) {
	ctx := gentest.TestContext(t)
	out := newPersonOutput(t)

	snaps := gentest.Collect(out.Stream(ctx, gentest.Feed(ctx, []string{`{"name":"Ada"`})))
	require.Len(t, snaps, 2)
	final := snaps[1]
	assert.True(t, final.Done)
	assert.ErrorIs(t, final.Err, schema.ErrIncompleteValue)
	assert.Equal(t, "Ada", final.Value.Name)
}

func TestOutput_StreamFinalViolation(t *testing.T) {
	ctx := gentest.TestContext(t)
	out := newPersonOutput(t)

	snaps := gentest.Collect(out.Stream(ctx, gentest.Feed(ctx, []string{`{"name":"Ada","age":-1}`})))
	final := snaps[len(snaps)-1]
	var vs schema.Violations
	require.ErrorAs(t, final.Err, &vs)
	assert.Equal(t, "age", vs[0].Property)
}

func TestOutput_StreamNoInput(t *testing.T) {
	ctx := gentest.TestContext(t)
	out := newPersonOutput(t)

	snaps := gentest.Collect(out.Stream(ctx, gentest.Feed(ctx, []string{"  ", ""})))
	require.Len(t, snaps, 3)
	assert.Error(t, snaps[0].Err)
	assert.False(t, snaps[0].Done)
	assert.ErrorIs(t, snaps[2].Err, schema.ErrIncompleteValue)
	assert.True(t, snaps[2].Done)
}

func TestOutput_StreamCancel(t *testing.T) {
	out := newPersonOutput(t)
	ctx, cancel := context.WithCancel(context.Background())

	chunks := make(chan string)
	snaps := out.Stream(ctx, chunks)

	chunks <- `{"name":"Ada"`
	first := <-snaps
	assert.Equal(t, "Ada", first.Value.Name)

	cancel()
	select {
	case _, ok := <-snaps:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream did not close after cancellation")
	}
}

func TestOutput_Tracing(t *testing.T) {
	ctx := gentest.TestContext(t)
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	out := newPersonOutput(t, WithTracer(tp.Tracer("test")))

	_, err := out.Parse(context.Background(), `{"name":"Ada","age":36}`)
	require.NoError(t, err)
	_, err = out.Parse(context.Background(), `{"name":"Ada"}`)
	require.Error(t, err)
	gentest.Collect(out.Stream(ctx, gentest.Feed(ctx, []string{`{"name":"Ada","age":1}`})))

	spans := rec.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "structured.Output.Parse", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "Person", attrs["schema"])
	assert.Equal(t, int64(len(`{"name":"Ada","age":36}`)), attrs["text.bytes"])

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "structured.Output.Stream", spans[2].Name())
}

func TestOutput_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector("gen", zap.NewNop(), metrics.WithRegisterer(reg))
	out := newPersonOutput(t, WithMetrics(c))
	ctx := context.Background()

	_, _ = out.Parse(ctx, `{"name":"Ada","age":36}`)
	_, _ = out.Parse(ctx, `{"name":"Ada","age":999}`)
	_, _ = out.Parse(ctx, `{"name":"Ada"`)
	_, _ = out.Snapshot(`{"na`)

	count, err := testutil.GatherAndCount(reg, "gen_parses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, 2.0, gatherCounter(t, reg, "gen_parses_total", "complete"))
	assert.Equal(t, 2.0, gatherCounter(t, reg, "gen_parses_total", "partial"))
	assert.Equal(t, 1.0, gatherCounter(t, reg, "gen_constraint_violations_total", "range"))
	assert.Equal(t, 1.0, gatherCounter(t, reg, "gen_snapshots_total", ""))
}

// gatherCounter returns the counter value of family name whose only label
// equals label, or the unlabelled counter when label is empty.
func gatherCounter(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if label == "" && len(m.GetLabel()) == 0 {
				return m.GetCounter().GetValue()
			}
			for _, l := range m.GetLabel() {
				if l.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestOutput_LogsViolations(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	out := newPersonOutput(t, WithLogger(zap.New(core)))

	_, err := out.Parse(context.Background(), `{"name":"Ada","age":-5}`)
	require.Error(t, err)

	entries := logs.FilterMessage("constraint violated").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "structured_output", fields["component"])
	assert.Equal(t, "Person", fields["schema"])
	assert.Equal(t, "age", fields["property"])
	assert.True(t, strings.HasPrefix(fields["constraint"].(string), "range("))
}
