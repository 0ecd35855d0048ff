package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/generable/api/handlers"
	"github.com/BaSui01/generable/config"
	"github.com/BaSui01/generable/internal/cache"
	"github.com/BaSui01/generable/internal/database"
	"github.com/BaSui01/generable/internal/metrics"
	"github.com/BaSui01/generable/internal/server"
	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/structured"
)

// skipAuthPaths are served without authentication.
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 generable 调试服务
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	schemas *structured.Registry

	gatherer  *prometheus.Registry
	collector *metrics.Collector
	tracer    trace.Tracer

	// 可选存储，未启用时为 nil
	cache   *cache.Manager
	streams *cache.StreamStore
	pool    *database.PoolManager
	records *database.RecordStore

	healthHandler *handlers.HealthHandler

	httpManager    *server.Manager
	metricsManager *server.Manager

	rateLimiterCancel context.CancelFunc
}

// NewServer 创建服务实例。gatherer 与 collector 在指标关闭时为 nil。
func NewServer(cfg *config.Config, schemas *structured.Registry, gatherer *prometheus.Registry, collector *metrics.Collector, tracer trace.Tracer, logger *zap.Logger) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		schemas:   schemas,
		gatherer:  gatherer,
		collector: collector,
		tracer:    tracer,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 打开存储并启动 HTTP 与 Metrics 服务器
func (s *Server) Start(ctx context.Context) error {
	if err := s.initStores(ctx); err != nil {
		return fmt.Errorf("failed to init stores: %w", err)
	}

	s.httpManager = server.NewManager(s.Handler(), server.FromServerConfig(s.cfg.Server), s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if s.cfg.Server.MetricsAddr != "" && s.gatherer != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		metricsCfg := server.FromServerConfig(s.cfg.Server)
		metricsCfg.Addr = s.cfg.Server.MetricsAddr
		metricsCfg.TLSCertFile, metricsCfg.TLSKeyFile = "", ""
		s.metricsManager = server.NewManager(mux, metricsCfg, s.logger)
		if err := s.metricsManager.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	s.logger.Info("all servers started",
		zap.String("addr", s.httpManager.Addr()),
		zap.Strings("schemas", s.schemas.Names()),
		zap.Bool("streams", s.streams != nil),
		zap.Bool("records", s.records != nil),
	)
	return nil
}

// initStores 按配置连接 Redis 与数据库，并注册就绪检查
func (s *Server) initStores(ctx context.Context) error {
	s.healthHandler = handlers.NewHealthHandler(s.logger).WithSchemas(s.schemas)

	if s.cfg.Redis.Enabled {
		m, err := cache.NewManager(s.cfg.Redis, s.logger)
		if err != nil {
			return err
		}
		s.cache = m
		s.streams = cache.NewStreamStore(m, s.cfg.Redis.StreamTTL)
		// Streams keep parsing when checkpoints fail, so Redis only degrades.
		s.healthHandler.RegisterOptionalCheck(handlers.NewPingCheck("redis", m.Ping))
	}

	if s.cfg.Database.Enabled {
		pool, err := database.Open(s.cfg.Database, s.logger)
		if err != nil {
			return err
		}
		s.pool = pool
		s.records = database.NewRecordStore(pool, s.logger)
		if err := s.records.AutoMigrate(ctx); err != nil {
			return err
		}
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("database", pool.Ping))
	}
	return nil
}

// =============================================================================
// 🌐 路由与中间件
// =============================================================================

// Handler 构建带中间件链的路由
func (s *Server) Handler() http.Handler {
	if s.healthHandler == nil {
		s.healthHandler = handlers.NewHealthHandler(s.logger).WithSchemas(s.schemas)
	}

	opts := handlers.Options{
		Logger:       s.logger,
		Metrics:      s.collector,
		Tracer:       s.tracer,
		MaxBodyBytes: s.cfg.Server.MaxBodyBytes,
		MaxDepth:     s.cfg.Parser.MaxDepth,
	}

	// Unset stores stay nil interfaces so handlers can detect them.
	var records handlers.RecordStore
	if s.records != nil {
		records = s.records
	}
	var streams handlers.StreamStore
	if s.streams != nil {
		streams = s.streams
	}

	parseHandler := handlers.NewParseHandler(opts)
	schemaHandler := handlers.NewSchemaHandler(s.schemas, s.cfg.Tokenizer.Model, opts)
	validateHandler := handlers.NewValidateHandler(s.schemas, records, opts)
	streamHandler := handlers.NewStreamHandler(s.schemas, handlers.StreamConfig{
		Streams:        streams,
		Records:        records,
		OriginPatterns: originPatterns(s.cfg.Server.CORSAllowedOrigins),
		Extract:        s.cfg.Parser.ExtractJSON,
	}, opts)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))
	if s.gatherer != nil && s.cfg.Server.MetricsAddr == "" {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("POST /v1/parse", parseHandler.HandleParse)
	mux.HandleFunc("POST /v1/validate", validateHandler.HandleValidate)
	mux.HandleFunc("GET /v1/schemas", schemaHandler.HandleList)
	mux.HandleFunc("GET /v1/schemas/{name}", schemaHandler.HandleGet)
	mux.HandleFunc("GET /v1/schemas/{name}/jsonschema", schemaHandler.HandleJSONSchema)
	mux.HandleFunc("GET /v1/schemas/{name}/tokens", schemaHandler.HandleTokens)
	mux.HandleFunc("GET /v1/stream/{schema}", streamHandler.HandleStream)
	mux.HandleFunc("GET /v1/streams/{id}", streamHandler.HandleCheckpoint)
	if records != nil {
		recordHandler := handlers.NewRecordHandler(records, opts)
		mux.HandleFunc("GET /v1/records", recordHandler.HandleList)
		mux.HandleFunc("GET /v1/records/{id}", recordHandler.HandleGet)
	}

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
	}
	if s.collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.collector))
	}
	middlewares = append(middlewares,
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	)
	if auth := s.authMiddleware(); auth != nil {
		middlewares = append(middlewares, auth)
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		if s.rateLimiterCancel != nil {
			s.rateLimiterCancel()
		}
		s.rateLimiterCancel = cancel
		middlewares = append(middlewares, RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger))
	}

	return Chain(mux, middlewares...)
}

// authMiddleware selects API key or JWT authentication. With both
// configured a Bearer token goes through JWT and anything else through the
// API key check. It returns nil when neither is configured.
func (s *Server) authMiddleware() Middleware {
	jwtOn := s.cfg.Server.JWT.Enabled()
	keysOn := len(s.cfg.Server.APIKeys) > 0

	switch {
	case jwtOn && keysOn:
		byJWT := JWTAuth(s.cfg.Server.JWT, skipAuthPaths, s.logger)
		byKey := APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, false, s.logger)
		return func(next http.Handler) http.Handler {
			jwtNext, keyNext := byJWT(next), byKey(next)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
					jwtNext.ServeHTTP(w, r)
					return
				}
				keyNext.ServeHTTP(w, r)
			})
		}
	case jwtOn:
		return JWTAuth(s.cfg.Server.JWT, skipAuthPaths, s.logger)
	case keysOn:
		return APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, false, s.logger)
	default:
		return nil
	}
}

// originPatterns turns CORS origins into WebSocket origin host patterns.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号或服务器故障，然后优雅关闭
func (s *Server) WaitForShutdown(ctx context.Context) error {
	var err error
	if s.httpManager != nil {
		err = s.httpManager.WaitForShutdown(ctx)
	}
	s.Shutdown(context.Background())
	return err
}

// Shutdown 优雅关闭所有服务与存储，可重复调用
func (s *Server) Shutdown(ctx context.Context) {
	s.logger.Info("starting graceful shutdown")

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("redis close error", zap.Error(err))
		}
		s.cache = nil
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Error("database close error", zap.Error(err))
		}
		s.pool = nil
	}

	s.logger.Info("graceful shutdown completed")
}

// =============================================================================
// 📚 schema 注册表
// =============================================================================

// loadRegistry builds every definition in the file as its own root and
// registers the results.
func loadRegistry(path string, opts ...schema.BuilderOption) (*structured.Registry, error) {
	defs, err := schema.LoadDefinitionsFile(path)
	if err != nil {
		return nil, err
	}
	if len(defs.Definitions) == 0 {
		return nil, errors.New("no schema definitions in " + path)
	}

	built := make([]*schema.Descriptor, len(defs.Definitions))
	var g errgroup.Group
	g.SetLimit(8)
	for i, def := range defs.Definitions {
		g.Go(func() error {
			d, err := defs.Build(def.Name, opts...)
			if err != nil {
				return fmt.Errorf("build %s: %w", def.Name, err)
			}
			built[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	registry := structured.NewRegistry()
	for _, d := range built {
		registry.Register(d)
	}
	return registry, nil
}
