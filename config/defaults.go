// =============================================================================
// 📦 Generable 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/schema"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Parser:    DefaultParserConfig(),
		Schema:    DefaultSchemaConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Server:    DefaultServerConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Tokenizer: DefaultTokenizerConfig(),
	}
}

// DefaultParserConfig 返回默认解析器配置
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		MaxDepth:    content.DefaultMaxDepth,
		ExtractJSON: true,
	}
}

// DefaultSchemaConfig 返回默认模式构建配置
func DefaultSchemaConfig() SchemaConfig {
	return SchemaConfig{
		MaxResolutionDepth: schema.DefaultMaxResolutionDepth,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "generable",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:         false,
		OTLPEndpoint:    "localhost:4317",
		ServiceName:     "generable",
		SampleRate:      0.1,
		ShutdownTimeout: 5 * time.Second,
	}
}

// DefaultServerConfig 返回默认调试服务配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxBodyBytes:    1 << 20,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		StreamTTL:    time.Hour,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         false,
		Driver:          "sqlite",
		Name:            "generable.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultTokenizerConfig 返回默认 token 计数配置
func DefaultTokenizerConfig() TokenizerConfig {
	return TokenizerConfig{
		Model: "gpt-4o",
	}
}
