package schema

import (
	"fmt"
	"strings"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/types"
)

// BuildFailure names the reason a schema could not be built.
type BuildFailure string

const (
	ReasonUnresolvedReference BuildFailure = "unresolved_reference"
	ReasonReferenceCycle      BuildFailure = "reference_cycle"
	ReasonDuplicateDefinition BuildFailure = "duplicate_definition"
	ReasonInvalidGuide        BuildFailure = "invalid_guide"
	ReasonInvalidRoot         BuildFailure = "invalid_root"
	ReasonEmpty               BuildFailure = "empty"
)

// SchemaBuildError reports a descriptor graph that cannot be built.
type SchemaBuildError struct {
	Reason  BuildFailure
	Names   []string
	Message string
	Cause   error
}

func buildError(reason BuildFailure, names []string, msg string) *SchemaBuildError {
	return &SchemaBuildError{Reason: reason, Names: names, Message: msg}
}

// Error implements the error interface.
func (e *SchemaBuildError) Error() string {
	var b strings.Builder
	b.WriteString("schema build failed (")
	b.WriteString(string(e.Reason))
	b.WriteString(")")
	if len(e.Names) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Names, ", "))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *SchemaBuildError) Unwrap() error { return e.Cause }

// Code returns types.ErrSchemaBuild.
func (e *SchemaBuildError) Code() types.ErrorCode { return types.ErrSchemaBuild }

// ErrIncompleteValue is returned by Validate for values that are still
// streaming.
var ErrIncompleteValue = types.NewError(types.ErrIncompleteValue, "value is incomplete")

// Violation reports a value that fails a constraint. It is surfaced verbatim
// and never retried.
type Violation struct {
	// Property is the path of the offending value, e.g. "items[2].name".
	Property   string
	Constraint string
	Value      content.Value
}

// Error implements the error interface.
func (v *Violation) Error() string {
	if v.Property == "" {
		return fmt.Sprintf("value %s violates %s", v.Value.JSON(), v.Constraint)
	}
	return fmt.Sprintf("property %q violates %s: %s", v.Property, v.Constraint, v.Value.JSON())
}

// Code returns types.ErrConstraintViolation.
func (v *Violation) Code() types.ErrorCode { return types.ErrConstraintViolation }

// Violations collects every constraint a value failed.
type Violations []*Violation

// Error implements the error interface.
func (vs Violations) Error() string {
	switch len(vs) {
	case 0:
		return "validation failed"
	case 1:
		return vs[0].Error()
	}
	msgs := make([]string, len(vs))
	for i, v := range vs {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("validation failed with %d violations: %s", len(vs), strings.Join(msgs, "; "))
}

// Code returns types.ErrConstraintViolation.
func (vs Violations) Code() types.ErrorCode { return types.ErrConstraintViolation }

// Unwrap exposes the individual violations to errors.As.
func (vs Violations) Unwrap() []error {
	out := make([]error, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
