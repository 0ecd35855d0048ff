package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/BaSui01/generable/api"
	"github.com/BaSui01/generable/api/handlers"
	"github.com/BaSui01/generable/internal/cache"
	"github.com/BaSui01/generable/internal/database"
	"github.com/BaSui01/generable/internal/tlsutil"
	"github.com/BaSui01/generable/schema"
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func (c *command) runServe(args []string) int {
	fs, configPath := c.flagSet("serve")
	def := fs.String("def", "", "Schema definition file served by the registry")
	addr := fs.String("addr", "", "Listen address (overrides server.addr)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if err := c.setup(*configPath); err != nil {
		return c.fail(err)
	}
	defer c.teardown()
	if *addr != "" {
		c.cfg.Server.Addr = *addr
	}

	path := *def
	if path == "" {
		path = c.cfg.Schema.DefinitionsPath
	}
	if path == "" {
		return c.fail(errors.New("no schema definition file: pass --def or set schema.definitions_path"))
	}
	registry, err := loadRegistry(path,
		schema.WithMaxDepth(c.cfg.Schema.MaxResolutionDepth),
		schema.WithLogger(c.logger),
	)
	if err != nil {
		return c.fail(err)
	}

	c.logger.Info("starting generable",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	srv := NewServer(c.cfg, registry, c.registry, c.collector,
		c.providers.Tracer("github.com/BaSui01/generable/api"), c.logger)
	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		srv.Shutdown(ctx)
		return c.fail(err)
	}
	if err := srv.WaitForShutdown(ctx); err != nil {
		return c.fail(err)
	}
	c.logger.Info("generable stopped")
	// The process stays up for the server's lifetime, so nothing is dumped.
	c.registry = nil
	return exitOK
}

// =============================================================================
// 🗃️ 存储辅助
// =============================================================================

// openCache connects to the configured Redis.
func (c *command) openCache() (*cache.Manager, error) {
	if !c.cfg.Redis.Enabled {
		return nil, errors.New("redis is not enabled: set redis.enabled")
	}
	return cache.NewManager(c.cfg.Redis, c.logger)
}

// openRecords opens the configured database and ensures the record table.
func (c *command) openRecords(ctx context.Context) (*database.RecordStore, func(), error) {
	if !c.cfg.Database.Enabled {
		return nil, nil, errors.New("database is not enabled: set database.enabled")
	}
	pool, err := database.Open(c.cfg.Database, c.logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := pool.Close(); err != nil {
			c.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	records := database.NewRecordStore(pool, c.logger)
	if err := records.AutoMigrate(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return records, closeFn, nil
}

func (c *command) saveRecord(ctx context.Context, rec *database.ValidationRecord) (string, error) {
	records, closeFn, err := c.openRecords(ctx)
	if err != nil {
		return "", err
	}
	defer closeFn()
	if err := records.Save(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// =============================================================================
// 📜 history 命令
// =============================================================================

func (c *command) runHistory(args []string) int {
	fs, configPath := c.flagSet("history")
	id := fs.String("id", "", "Print one record as JSON")
	schemaName := fs.String("schema", "", "Only records of this schema")
	streamID := fs.String("stream", "", "Only records of this stream")
	valid := fs.String("valid", "", "Only valid (true) or invalid (false) records")
	since := fs.Duration("since", 0, "Only records newer than this")
	limit := fs.Int("limit", 20, "Maximum number of records")
	purge := fs.Duration("purge", 0, "Delete records older than this instead of listing")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	filter := database.RecordFilter{SchemaName: *schemaName, StreamID: *streamID, Limit: *limit}
	if *valid != "" {
		b, err := strconv.ParseBool(*valid)
		if err != nil {
			fmt.Fprintf(c.errOut, "Invalid --valid value: %s\n", *valid)
			return exitUsage
		}
		filter.Valid = &b
	}
	if *limit <= 0 {
		fmt.Fprintln(c.errOut, "--limit must be positive")
		return exitUsage
	}
	if *since > 0 {
		filter.Since = time.Now().Add(-*since)
	}

	if err := c.setup(*configPath); err != nil {
		return c.fail(err)
	}
	defer c.teardown()

	ctx := context.Background()
	records, closeFn, err := c.openRecords(ctx)
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	switch {
	case *purge > 0:
		n, err := records.Purge(ctx, time.Now().Add(-*purge))
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintf(c.out, "Purged %d record(s)\n", n)
		return exitOK
	case *id != "":
		rec, err := records.Get(ctx, *id)
		if err != nil {
			return c.fail(err)
		}
		return c.writeJSON(rec)
	}

	list, err := records.List(ctx, filter)
	if err != nil {
		return c.fail(err)
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, "No records found.")
		return exitOK
	}
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCHEMA\tSTREAM\tCOMPLETE\tVALID\tCREATED")
	for _, rec := range list {
		stream := rec.StreamID
		if stream == "" {
			stream = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%s\n",
			rec.ID, rec.SchemaName, stream, rec.Complete, rec.Valid, rec.CreatedAt.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		return c.fail(err)
	}
	return exitOK
}

// =============================================================================
// 🔎 inspect 命令
// =============================================================================

func (c *command) runInspect(args []string) int {
	fs, configPath := c.flagSet("inspect")
	id := fs.String("id", "", "Stream ID to inspect")
	del := fs.Bool("delete", false, "Delete the checkpoint after printing it")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *id == "" {
		fmt.Fprintln(c.errOut, "--id is required")
		return exitUsage
	}
	if err := c.setup(*configPath); err != nil {
		return c.fail(err)
	}
	defer c.teardown()

	m, err := c.openCache()
	if err != nil {
		return c.fail(err)
	}
	defer m.Close()
	store := cache.NewStreamStore(m, c.cfg.Redis.StreamTTL)

	ctx := context.Background()
	cp, err := store.Load(ctx, *id)
	if err != nil {
		return c.fail(err)
	}
	v, err := cp.Value()
	if err != nil {
		return c.fail(err)
	}
	if code := c.writeJSON(api.Checkpoint{
		ID:        cp.ID,
		Chunks:    cp.Chunks,
		Done:      cp.Done,
		Bytes:     len(cp.Text),
		Complete:  v.IsComplete(),
		Value:     v,
		UpdatedAt: cp.UpdatedAt,
	}); code != exitOK {
		return code
	}

	if *del {
		if err := store.Delete(ctx, *id); err != nil {
			return c.fail(err)
		}
	}
	return exitOK
}

// =============================================================================
// 🏥 health 命令
// =============================================================================

func (c *command) runHealth(args []string) int {
	fs, _ := c.flagSet("health")
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	ready := fs.Bool("ready", false, "Check /ready, which includes store checks")
	timeout := fs.Duration("timeout", 5*time.Second, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	path := "/health"
	if *ready {
		path = "/ready"
	}
	client := tlsutil.Client(*timeout)
	resp, err := client.Get(strings.TrimSuffix(*addr, "/") + path)
	if err != nil {
		fmt.Fprintf(c.errOut, "Health check failed: %v\n", err)
		return exitFailure
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		fmt.Fprintf(c.errOut, "Health check failed: status %d\n", resp.StatusCode)
		var status handlers.HealthStatus
		if json.Unmarshal(body, &status) == nil {
			for name, check := range status.Checks {
				fmt.Fprintf(c.errOut, "  %s: %s %s\n", name, check.Status, check.Message)
			}
		}
		return exitFailure
	}

	fmt.Fprintln(c.out, "OK")
	return exitOK
}
