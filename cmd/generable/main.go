// =============================================================================
// generable 调试工具入口
// =============================================================================
// 使用方法:
//
//	generable parse < response.txt                       # 前缀解析
//	generable parse --prefixes < response.txt            # 逐字节前缀解析
//	generable schema --def order.yaml --root Order       # 输出线格式
//	generable schema --def order.yaml --format jsonschema
//	generable validate --def order.yaml --root Order < response.json
//	generable stream --def order.yaml --chunk 16 < response.json
//	generable stream --ws ws://localhost:8080/v1/stream/Order < response.json
//	generable serve --def order.yaml                     # 启动调试服务
//	generable migrate up                                 # 数据库迁移
//	generable history --schema Order --valid false       # 查看校验记录
//	generable inspect --id chat-42                       # 查看流检查点
//	generable health --addr http://localhost:8080
//	generable version
// =============================================================================

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/BaSui01/generable/config"
	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/internal/cache"
	"github.com/BaSui01/generable/internal/database"
	"github.com/BaSui01/generable/internal/metrics"
	"github.com/BaSui01/generable/internal/telemetry"
	"github.com/BaSui01/generable/internal/tokenizer"
	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/structured"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	exitOK        = 0
	exitViolation = 1
	exitUsage     = 2
	exitFailure   = 3
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one subcommand and returns the process exit code.
func run(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) < 1 {
		printUsage(errOut)
		return exitUsage
	}

	cmd := &command{in: in, out: out, errOut: errOut}
	switch args[0] {
	case "parse":
		return cmd.runParse(args[1:])
	case "schema":
		return cmd.runSchema(args[1:])
	case "validate":
		return cmd.runValidate(args[1:])
	case "stream":
		return cmd.runStream(args[1:])
	case "serve":
		return cmd.runServe(args[1:])
	case "migrate":
		return cmd.runMigrate(args[1:])
	case "history":
		return cmd.runHistory(args[1:])
	case "inspect":
		return cmd.runInspect(args[1:])
	case "health":
		return cmd.runHealth(args[1:])
	case "version":
		printVersion(out)
		return exitOK
	case "help", "-h", "--help":
		printUsage(out)
		return exitOK
	default:
		fmt.Fprintf(errOut, "Unknown command: %s\n", args[0])
		printUsage(errOut)
		return exitUsage
	}
}

// command carries the I/O streams and the environment built from the
// configuration of one invocation.
type command struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg       *config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
	providers *telemetry.Providers
}

// flagSet returns a flag set carrying the shared --config flag.
func (c *command) flagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	return fs, configPath
}

// setup loads the configuration and builds the logger, metrics and tracing.
func (c *command) setup(configPath string) error {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.WithValidator((*config.Config).Validate).Load()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = initLogger(cfg.Log)

	if cfg.Metrics.Enabled {
		c.registry = prometheus.NewRegistry()
		c.collector = metrics.NewCollector(cfg.Metrics.Namespace, c.logger, metrics.WithRegisterer(c.registry))
	}

	c.providers, err = telemetry.Init(cfg.Telemetry, c.logger, telemetry.WithVersion(Version))
	if err != nil {
		c.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	return nil
}

// teardown flushes telemetry and writes gathered metrics to errOut.
func (c *command) teardown() {
	if c.providers != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Telemetry.ShutdownTimeout)
		defer cancel()
		if err := c.providers.Shutdown(ctx); err != nil {
			c.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	if c.registry != nil {
		if err := writeMetrics(c.errOut, c.registry); err != nil {
			c.logger.Warn("failed to write metrics", zap.Error(err))
		}
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func (c *command) fail(err error) int {
	fmt.Fprintf(c.errOut, "Error: %v\n", err)
	return exitFailure
}

func (c *command) readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(c.in)
	}
	return os.ReadFile(path)
}

// =============================================================================
// 🔍 parse 命令
// =============================================================================

func (c *command) runParse(args []string) int {
	fs, configPath := c.flagSet("parse")
	file := fs.String("file", "", "Read input from file instead of stdin")
	prefixes := fs.Bool("prefixes", false, "Parse every byte prefix of the input")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if err := c.setup(*configPath); err != nil {
		return c.fail(err)
	}
	defer c.teardown()

	text, err := c.readInput(*file)
	if err != nil {
		return c.fail(err)
	}
	if c.cfg.Parser.ExtractJSON {
		text = []byte(structured.ExtractJSON(string(text)))
	}
	opts := content.Options{MaxDepth: c.cfg.Parser.MaxDepth}

	if !*prefixes {
		v, err := content.ParseWithOptions(text, opts)
		if err != nil {
			return c.fail(err)
		}
		return c.writeJSON(parseReport{Complete: v.IsComplete(), Value: v})
	}

	// Each prefix is an independent text, so they parse concurrently.
	text = bytes.TrimSpace(text)
	texts := make([][]byte, len(text))
	for i := range texts {
		texts[i] = text[:i+1]
	}
	values, err := content.ParseAll(context.Background(), texts, 0)
	if err != nil {
		return c.fail(err)
	}
	for i, v := range values {
		fmt.Fprintf(c.out, "%d\t%t\t%s\n", i+1, v.IsComplete(), v.JSON())
	}
	return exitOK
}

type parseReport struct {
	Complete bool          `json:"complete"`
	Value    content.Value `json:"value"`
}

func (c *command) writeJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintln(c.out, string(data))
	return exitOK
}

// =============================================================================
// 🧩 schema 命令
// =============================================================================

func (c *command) runSchema(args []string) int {
	fs, configPath := c.flagSet("schema")
	def := fs.String("def", "", "Schema definition file (.yaml, .yml or .json)")
	root := fs.String("root", "", "Root schema name (defaults to the file's root)")
	format := fs.String("format", "wire", "Output format: wire or jsonschema")
	indent := fs.Bool("indent", false, "Indent the output")
	tokens := fs.Bool("tokens", false, "Print the token count of the wire form instead")
	model := fs.String("model", "", "Model whose tokenizer counts tokens (defaults to tokenizer.model)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if err := c.setup(*configPath); err != nil {
		return c.fail(err)
	}
	defer c.teardown()

	d, err := c.loadSchema(*def, *root)
	if err != nil {
		return c.fail(err)
	}

	if *tokens {
		name := *model
		if name == "" {
			name = c.cfg.Tokenizer.Model
		}
		tk := tokenizer.ForModel(name, c.logger)
		n, err := tokenizer.CountSchema(tk, d)
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintf(c.out, "%s\t%s\t%d\n", d.Name(), tk.Name(), n)
		return exitOK
	}

	var data []byte
	switch *format {
	case "wire":
		if *indent {
			data, err = d.SerializeIndent()
		} else {
			data, err = d.Serialize()
		}
	case "jsonschema":
		if *indent {
			data, err = json.MarshalIndent(d.ToJSONSchema(), "", "  ")
		} else {
			data, err = json.Marshal(d.ToJSONSchema())
		}
	default:
		fmt.Fprintf(c.errOut, "Unknown format: %s\n", *format)
		return exitUsage
	}
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintln(c.out, string(data))
	return exitOK
}

// loadSchema builds the descriptor named root from a definition file. An
// empty path falls back to schema.definitions_path.
func (c *command) loadSchema(path, root string) (*schema.Descriptor, error) {
	if path == "" {
		path = c.cfg.Schema.DefinitionsPath
	}
	if path == "" {
		return nil, errors.New("no schema definition file: pass --def or set schema.definitions_path")
	}
	defs, err := schema.LoadDefinitionsFile(path)
	if err != nil {
		return nil, err
	}
	d, err := defs.Build(root,
		schema.WithMaxDepth(c.cfg.Schema.MaxResolutionDepth),
		schema.WithLogger(c.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build schema from %s: %w", path, err)
	}
	return d, nil
}

// output builds a structured output over raw values validated against d.
func (c *command) output(d *schema.Descriptor) (*structured.Output[content.Value], error) {
	return structured.NewOutputWithSchema[content.Value](d,
		structured.WithLogger(c.logger),
		structured.WithMetrics(c.collector),
		structured.WithTracer(c.providers.Tracer("github.com/BaSui01/generable/cmd/generable")),
		structured.WithMaxDepth(c.cfg.Parser.MaxDepth),
		structured.WithExtraction(c.cfg.Parser.ExtractJSON),
	)
}

// =============================================================================
// ✅ validate 命令
// =============================================================================

func (c *command) runValidate(args []string) int {
	fs, configPath := c.flagSet("validate")
	def := fs.String("def", "", "Schema definition file (.yaml, .yml or .json)")
	root := fs.String("root", "", "Root schema name (defaults to the file's root)")
	file := fs.String("file", "", "Read input from file instead of stdin")
	record := fs.Bool("record", false, "Save the outcome as a validation record")
	streamID := fs.String("stream-id", "", "Stream ID stored with the record")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if err := c.setup(*configPath); err != nil {
		return c.fail(err)
	}
	defer c.teardown()

	d, err := c.loadSchema(*def, *root)
	if err != nil {
		return c.fail(err)
	}
	text, err := c.readInput(*file)
	if err != nil {
		return c.fail(err)
	}
	o, err := c.output(d)
	if err != nil {
		return c.fail(err)
	}

	ctx := context.Background()
	r := o.ParseWithResult(ctx, string(text))

	code := exitOK
	if r.IsValid() {
		fmt.Fprintln(c.out, "OK")
	} else {
		code = exitViolation
		var vs schema.Violations
		for _, err := range r.Errors {
			if errors.As(err, &vs) {
				for _, v := range vs {
					fmt.Fprintln(c.out, v.Error())
				}
				continue
			}
			if errors.Is(err, schema.ErrIncompleteValue) {
				fmt.Fprintln(c.out, "incomplete value")
				continue
			}
			return c.fail(err)
		}
	}

	if *record {
		id, err := c.saveRecord(ctx, database.NewRecord(d.Name(), *streamID, text, r.Content, r.Err()))
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintf(c.out, "Record: %s\n", id)
	}
	return code
}

// =============================================================================
// 🌊 stream 命令
// =============================================================================

func (c *command) runStream(args []string) int {
	fs, configPath := c.flagSet("stream")
	def := fs.String("def", "", "Schema definition file (.yaml, .yml or .json)")
	root := fs.String("root", "", "Root schema name (defaults to the file's root)")
	file := fs.String("file", "", "Read input from file instead of stdin")
	chunk := fs.Int("chunk", 8, "Chunk size in bytes")
	rps := fs.Float64("rate", 0, "Maximum chunks per second, 0 for no limit")
	checkpoint := fs.String("checkpoint", "", "Stream ID to checkpoint chunks under")
	wsURL := fs.String("ws", "", "Stream to a server's /v1/stream/{schema} endpoint instead of parsing locally")
	apiKey := fs.String("api-key", "", "API key sent with --ws")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *chunk <= 0 {
		fmt.Fprintln(c.errOut, "--chunk must be positive")
		return exitUsage
	}
	if *rps < 0 {
		fmt.Fprintln(c.errOut, "--rate must not be negative")
		return exitUsage
	}
	if err := c.setup(*configPath); err != nil {
		return c.fail(err)
	}
	defer c.teardown()

	text, err := c.readInput(*file)
	if err != nil {
		return c.fail(err)
	}
	ctx := context.Background()
	chunks := splitChunks(text, *chunk)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if *rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rps), 1)
	}

	if *wsURL != "" {
		return c.streamRemote(ctx, *wsURL, *apiKey, *checkpoint, chunks, limiter)
	}

	d, err := c.loadSchema(*def, *root)
	if err != nil {
		return c.fail(err)
	}
	o, err := c.output(d)
	if err != nil {
		return c.fail(err)
	}

	var store *cache.StreamStore
	if *checkpoint != "" {
		m, err := c.openCache()
		if err != nil {
			return c.fail(err)
		}
		defer m.Close()
		store = cache.NewStreamStore(m, c.cfg.Redis.StreamTTL)
	}

	// feedErr is written before in is closed, so reading it after the
	// stream ends is safe.
	var feedErr error
	in := make(chan string)
	go func() {
		defer close(in)
		for _, part := range chunks {
			if feedErr = limiter.Wait(ctx); feedErr != nil {
				return
			}
			if store != nil {
				if _, feedErr = store.Append(ctx, *checkpoint, part); feedErr != nil {
					return
				}
			}
			in <- part
		}
		if store != nil {
			feedErr = store.Finish(ctx, *checkpoint)
		}
	}()

	code := exitOK
	for snap := range o.Stream(ctx, in) {
		switch {
		case snap.Done && snap.Err != nil:
			fmt.Fprintf(c.out, "done\terror\t%v\n", snap.Err)
			code = exitViolation
		case snap.Done:
			fmt.Fprintf(c.out, "done\tok\t%s\n", snap.Raw.JSON())
		case snap.Err != nil:
			fmt.Fprintf(c.out, "snapshot\terror\t%v\n", snap.Err)
		default:
			fmt.Fprintf(c.out, "snapshot\t%t\t%s\n", snap.Complete, snap.Raw.JSON())
		}
	}
	if feedErr != nil {
		return c.fail(fmt.Errorf("checkpoint %s: %w", *checkpoint, feedErr))
	}
	return code
}

// splitChunks cuts text into pieces of at most size bytes.
func splitChunks(text []byte, size int) []string {
	chunks := make([]string, 0, len(text)/size+1)
	for start := 0; start < len(text); start += size {
		end := min(start+size, len(text))
		chunks = append(chunks, string(text[start:end]))
	}
	return chunks
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "generable %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `generable - partial structured output debugging tool

Usage:
  generable <command> [options]

Commands:
  parse     Parse possibly truncated text and print the value
  schema    Build a schema from a definition file and print it
  validate  Validate a complete response against a schema
  stream    Feed input in chunks and print every snapshot
  serve     Start the HTTP and WebSocket debugging service
  migrate   Run database migrations for validation records
  history   List or purge saved validation records
  inspect   Show the checkpoint of a stream stored in Redis
  health    Check the health of a running server
  version   Show version information
  help      Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)
  --file <path>     Read input from a file instead of stdin

Examples:
  generable parse --prefixes < response.txt
  generable schema --def order.yaml --root Order --indent
  generable schema --def order.yaml --tokens --model gpt-4o
  generable validate --def order.yaml --record < response.json
  generable stream --def order.yaml --chunk 16 --checkpoint chat-42 < response.json
  generable stream --ws ws://localhost:8080/v1/stream/Order < response.json
  generable serve --def order.yaml --addr :8080
  generable migrate up
  generable history --schema Order --valid false
  generable inspect --id chat-42
  generable health --addr http://localhost:8080`)
}

// =============================================================================
// 🔧 日志与指标
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}

// writeMetrics renders every gathered family in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return err
		}
	}
	_, err = w.Write(buf.Bytes())
	return err
}
