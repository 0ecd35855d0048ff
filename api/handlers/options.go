package handlers

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/internal/cache"
	"github.com/BaSui01/generable/internal/database"
	"github.com/BaSui01/generable/internal/metrics"
	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/structured"
)

// Options 处理器公共配置，零值可用
type Options struct {
	Logger       *zap.Logger
	Metrics      *metrics.Collector
	Tracer       trace.Tracer
	MaxBodyBytes int64
	MaxDepth     int
}

func (o Options) logger(component string) *zap.Logger {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("handler", component))
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return content.DefaultMaxDepth
	}
	return o.MaxDepth
}

// outputOptions 构造结构化输出选项
func (o Options) outputOptions(logger *zap.Logger, extract bool) []structured.Option {
	opts := []structured.Option{
		structured.WithLogger(logger),
		structured.WithMetrics(o.Metrics),
		structured.WithMaxDepth(o.maxDepth()),
		structured.WithExtraction(extract),
	}
	if o.Tracer != nil {
		opts = append(opts, structured.WithTracer(o.Tracer))
	}
	return opts
}

// SchemaSource 按名称提供 schema，*structured.Registry 满足该接口
type SchemaSource interface {
	Lookup(name string) (*schema.Descriptor, bool)
	Names() []string
}

// RecordStore 校验记录存储，*database.RecordStore 满足该接口
type RecordStore interface {
	Save(ctx context.Context, rec *database.ValidationRecord) error
	Get(ctx context.Context, id string) (*database.ValidationRecord, error)
	List(ctx context.Context, f database.RecordFilter) ([]database.ValidationRecord, error)
}

// StreamStore 流检查点存储，*cache.StreamStore 满足该接口
type StreamStore interface {
	Append(ctx context.Context, id, chunk string) (int64, error)
	Finish(ctx context.Context, id string) error
	Load(ctx context.Context, id string) (cache.Checkpoint, error)
}
