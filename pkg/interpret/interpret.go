// Package interpret defines the boundary to the external interpretation
// service that turns an extracted content fragment into structured records.
// The core treats it as an opaque function; this package carries the one
// production adapter the binary ships with.
package interpret

import (
	"context"

	"github.com/entrhq/porter/pkg/extract"
)

// Record is one structured record produced by the interpreter. The schema is
// owned by the downstream consumer, not by porter.
type Record map[string]interface{}

// Interpreter turns an extraction result into records, or fails closed.
type Interpreter interface {
	Interpret(ctx context.Context, result *extract.Result) ([]Record, error)
}
