// Package datasource abstracts where raw input files come from.
package datasource

import (
	"context"
	"io"
)

// Source opens named inputs.
type Source interface {
	// Open opens the input called name for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Path resolves name to a local filesystem path, for readers that need
	// random access.
	Path(name string) string
}
