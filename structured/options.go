package structured

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/internal/metrics"
)

const instrumentationName = "github.com/BaSui01/generable/structured"

type options struct {
	logger   *zap.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
	registry *Registry
	maxDepth int
	extract  bool
}

func defaultOptions() options {
	return options{
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(instrumentationName),
		maxDepth: content.DefaultMaxDepth,
		extract:  true,
	}
}

// Option configures an Output.
type Option func(*options)

// WithLogger sets the logger. Violations and dropped properties are logged
// at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records parse, coercion and validation outcomes on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithTracer sets the tracer used for Parse and Stream spans. The default
// comes from the global tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithRegistry resolves named types through r and records the derived
// descriptor in it. Without a registry every Output derives its own.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithMaxDepth bounds the nesting depth accepted by the parser.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithExtraction toggles ExtractJSON on incoming text. It is on by default.
func WithExtraction(enabled bool) Option {
	return func(o *options) { o.extract = enabled }
}
