// Package oracle defines the reasoning-oracle capability: a natural-language
// instruction plus a required output schema in, a schema-conforming value or
// an explicit no-result signal out.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoParseableResult is returned when the oracle produced nothing that
	// conforms to the requested schema. Free text is never accepted as data.
	ErrNoParseableResult = errors.New("oracle returned no parseable result")
	// ErrRefused is returned when the oracle declined to answer. It wraps
	// ErrNoParseableResult.
	ErrRefused = fmt.Errorf("oracle refused the request: %w", ErrNoParseableResult)
)

// Request is one schema-constrained oracle call.
type Request struct {
	// Name identifies the output schema, e.g. "argument_analysis".
	Name   string
	System string
	Prompt string
	// Payload is the structured input the prompt was rendered from.
	// Providers that speak natural language ignore it.
	Payload any
}

// Oracle answers a Request by decoding a schema-conforming value into out,
// which must be a non-nil pointer to a struct. The schema is derived from
// out's type.
type Oracle interface {
	Complete(ctx context.Context, req Request, out any) error
}

// Factory builds an Oracle bound to a per-run credential.
type Factory func(credential string) (Oracle, error)

// IsSchemaFailure reports whether err means the oracle answered but not in
// the required shape.
func IsSchemaFailure(err error) bool {
	return errors.Is(err, ErrNoParseableResult) || errors.Is(err, ErrRefused)
}

// Outcome labels err for metrics: "ok", "no_result" or "error".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsSchemaFailure(err):
		return "no_result"
	default:
		return "error"
	}
}
