package structured

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/internal/metrics"
	"github.com/BaSui01/generable/internal/pool"
	"github.com/BaSui01/generable/schema"
)

// ParseResult is the detailed outcome of parsing a complete response.
type ParseResult[T any] struct {
	Value   *T
	Raw     string
	Content content.Value
	Errors  []error
}

// IsValid reports whether parsing, validation and decoding all succeeded.
func (r *ParseResult[T]) IsValid() bool {
	return r.Value != nil && len(r.Errors) == 0
}

// Err joins every error of the result, or returns nil.
func (r *ParseResult[T]) Err() error {
	return errors.Join(r.Errors...)
}

// Output turns model text into typed values of T: complete responses through
// Parse and streamed ones through Snapshot and Stream. It is safe for
// concurrent use.
type Output[T any] struct {
	schema *schema.Descriptor
	opts   options
	logger *zap.Logger
}

// NewOutput creates an Output whose descriptor is derived from T.
func NewOutput[T any](opts ...Option) (*Output[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	d, err := NewGenerator(
		WithGeneratorRegistry(o.registry),
		WithGeneratorLogger(o.logger),
	).Describe(reflect.TypeOf(&zero).Elem())
	if err != nil {
		return nil, fmt.Errorf("failed to describe type %T: %w", zero, err)
	}
	return newOutput[T](d, o), nil
}

// NewOutputWithSchema creates an Output that validates against d instead of
// a derived descriptor.
func NewOutputWithSchema[T any](d *schema.Descriptor, opts ...Option) (*Output[T], error) {
	if d == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newOutput[T](d, o), nil
}

func newOutput[T any](d *schema.Descriptor, o options) *Output[T] {
	return &Output[T]{
		schema: d,
		opts:   o,
		logger: o.logger.With(zap.String("component", "structured_output"), zap.String("schema", d.Name())),
	}
}

// Schema returns the descriptor used for validation.
func (s *Output[T]) Schema() *schema.Descriptor {
	return s.schema
}

// Parse parses, validates and decodes a complete response.
func (s *Output[T]) Parse(ctx context.Context, text string) (*T, error) {
	r := s.ParseWithResult(ctx, text)
	if !r.IsValid() {
		return nil, r.Err()
	}
	return r.Value, nil
}

// ParseWithResult is Parse returning every error found.
func (s *Output[T]) ParseWithResult(ctx context.Context, text string) *ParseResult[T] {
	_, span := s.opts.tracer.Start(ctx, "structured.Output.Parse",
		trace.WithAttributes(
			attribute.String("schema", s.schema.Name()),
			attribute.Int("text.bytes", len(text)),
		),
	)
	defer span.End()

	r := &ParseResult[T]{Raw: text}
	v, err := s.parse(text)
	if err != nil {
		r.Errors = append(r.Errors, err)
		endSpan(span, err)
		return r
	}
	r.Content = v

	if err := s.validate(v); err != nil {
		r.Errors = append(r.Errors, err)
		endSpan(span, err)
		return r
	}

	value, err := Decode[T](v)
	if err != nil {
		s.recordDecodeFailure(err)
		r.Errors = append(r.Errors, err)
		endSpan(span, err)
		return r
	}
	r.Value = &value
	span.SetStatus(codes.Ok, "")
	return r
}

// Snapshot decodes whatever the text received so far describes.
func (s *Output[T]) Snapshot(text string) (Partial[T], error) {
	v, err := s.parse(text)
	if err != nil {
		return Partial[T]{}, err
	}
	s.opts.metrics.RecordSnapshot()
	p := DecodePartial[T](v)
	if missing := p.Missing(); len(missing) > 0 && v.IsComplete() {
		s.logger.Debug("complete value is missing properties", zap.Strings("missing", missing))
	}
	return p, nil
}

// Stream consumes chunks in arrival order and emits one snapshot per chunk
// taken over everything received so far. When chunks closes, a final
// snapshot with Done set is emitted; its Err reports a value that never
// completed or fails validation. The output channel closes after the final
// snapshot or when ctx is done.
func (s *Output[T]) Stream(ctx context.Context, chunks <-chan string) <-chan Partial[T] {
	out := make(chan Partial[T])

	go func() {
		defer close(out)
		ctx, span := s.opts.tracer.Start(ctx, "structured.Output.Stream",
			trace.WithAttributes(attribute.String("schema", s.schema.Name())),
		)
		defer span.End()

		send := func(p Partial[T]) bool {
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		buf := pool.Buffers.Get()
		defer pool.Buffers.Put(buf)
		var last Partial[T]
		count := 0
		for {
			select {
			case <-ctx.Done():
				span.SetAttributes(attribute.Int("chunks", count))
				endSpan(span, ctx.Err())
				return
			case chunk, ok := <-chunks:
				if !ok {
					final := s.finish(buf.String(), last)
					span.SetAttributes(
						attribute.Int("chunks", count),
						attribute.Bool("complete", final.Err == nil),
					)
					if final.Err != nil {
						endSpan(span, final.Err)
					}
					send(final)
					return
				}
				count++
				buf.WriteString(chunk)
				p, err := s.Snapshot(buf.String())
				if err != nil {
					p = Partial[T]{Err: err}
				} else {
					last = p
				}
				if !send(p) {
					return
				}
			}
		}
	}()
	return out
}

// finish builds the closing snapshot of a stream.
func (s *Output[T]) finish(text string, last Partial[T]) Partial[T] {
	final := last
	final.Done = true
	if strings.TrimSpace(text) == "" {
		final.Err = schema.ErrIncompleteValue
		return final
	}
	if !last.Raw.IsComplete() {
		final.Err = schema.ErrIncompleteValue
		s.logger.Debug("stream ended before the value completed", zap.Strings("missing", last.Missing()))
		return final
	}
	if err := s.validate(last.Raw); err != nil {
		final.Err = err
		return final
	}
	if _, err := last.Final(); err != nil {
		s.recordDecodeFailure(err)
		final.Err = err
	}
	return final
}

// parse extracts and parses text, recording the outcome.
func (s *Output[T]) parse(text string) (content.Value, error) {
	if s.opts.extract {
		text = ExtractJSON(text)
	}
	start := time.Now()
	v, err := content.ParseWithOptions([]byte(text), content.Options{MaxDepth: s.opts.maxDepth})

	outcome := metrics.OutcomeComplete
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case !v.IsComplete():
		outcome = metrics.OutcomePartial
	}
	s.opts.metrics.RecordParse(outcome, len(text), time.Since(start))
	return v, err
}

// validate checks a value against the descriptor, recording violations.
func (s *Output[T]) validate(v content.Value) error {
	err := s.schema.Validate(v)
	var vs schema.Violations
	if errors.As(err, &vs) {
		for _, vi := range vs {
			s.opts.metrics.RecordViolation(vi.Constraint)
			s.logger.Debug("constraint violated",
				zap.String("property", vi.Property),
				zap.String("constraint", vi.Constraint),
			)
		}
	}
	return err
}

func (s *Output[T]) recordDecodeFailure(err error) {
	var ce *content.CoercionError
	typeName := "unknown"
	if errors.As(err, &ce) {
		typeName = ce.Type
	}
	s.opts.metrics.RecordCoercionFailure(typeName)
	s.logger.Debug("value does not decode", zap.Error(err))
}

func endSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\n?(.*?)(?:\\n?```|$)")

// ExtractJSON strips what models commonly put around a JSON value: a
// markdown code fence, open or closed, and leading prose. Trailing text after
// a closed value is left for the parser, which ignores it.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.Contains(text, "```") {
		if m := fencePattern.FindStringSubmatch(text); len(m) > 1 {
			text = strings.TrimSpace(m[1])
		}
	}
	if text == "" || startsValue(text[0]) {
		return text
	}
	if i := strings.IndexAny(text, "{["); i > 0 {
		return text[i:]
	}
	return text
}

func startsValue(c byte) bool {
	return c == '{' || c == '[' || c == '"' || c == '-' || (c >= '0' && c <= '9')
}
