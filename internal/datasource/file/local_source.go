// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pudl/internal/datasource"
)

// Local opens inputs from a directory on local disk. It is safe for
// concurrent use.
type Local struct{ root string }

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a source rooted at root. Relative input names are joined
// to root; absolute names are used as given. An empty root means the
// working directory.
func NewLocal(root string) *Local { return &Local{root: root} }

// Path resolves name against the root.
func (l *Local) Path(name string) string {
	if filepath.IsAbs(name) || l.root == "" {
		return name
	}
	return filepath.Join(l.root, name)
}

// Open opens name for reading.
//
// A canceled context is returned before touching the filesystem.
// Filesystem errors are wrapped with the resolved path and still match
// errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	p := l.Path(name)
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return f, nil
}
