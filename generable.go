// Package generable provides a top-level convenience entry point for parsing
// streamed model output into Go values.
//
// Usage:
//
//	import "github.com/BaSui01/generable"
//
//	out, err := generable.New[Person](generable.WithExtraction(true))
//	for p := range out.Stream(ctx, chunks) { ... }
//
//	out, err := generable.FromFile("catalog.yaml", "Person")
//
// This is a thin wrapper around [structured]; both produce identical results.
// Use this package when you prefer the shorter import path.
package generable

import (
	"fmt"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/schema"
	"github.com/BaSui01/generable/structured"
)

// Option configures the output created by [New] or [FromFile].
type Option = structured.Option

// New creates an output for T, describing T by reflection.
func New[T any](opts ...Option) (*structured.Output[T], error) {
	return structured.NewOutput[T](opts...)
}

// FromFile builds the named root from a definitions file and returns an
// output that yields raw content values. An empty root uses the file's root.
func FromFile(path, root string, opts ...Option) (*structured.Output[content.Value], error) {
	defs, err := schema.LoadDefinitionsFile(path)
	if err != nil {
		return nil, err
	}
	d, err := defs.Build(root)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", path, err)
	}
	return structured.NewOutputWithSchema[content.Value](d, opts...)
}

// Parse parses a possibly truncated document.
func Parse(text string) (content.Value, error) {
	return content.ParseString(text)
}

// Re-export output options so callers never need to import structured/.

// WithLogger sets a custom zap logger.
var WithLogger = structured.WithLogger

// WithMetrics records parse outcomes on a Prometheus collector.
var WithMetrics = structured.WithMetrics

// WithTracer traces Parse and Stream calls.
var WithTracer = structured.WithTracer

// WithRegistry resolves named types through a caller-owned registry.
var WithRegistry = structured.WithRegistry

// WithMaxDepth bounds nesting during parsing and schema resolution.
var WithMaxDepth = structured.WithMaxDepth

// WithExtraction strips prose and code fences around the document.
var WithExtraction = structured.WithExtraction
