package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by Get for a name that was never put. Callers
// treat it as "the producing job has not finished or failed".
var ErrNotFound = errors.New("artifact not found")

// Store is durable keyed storage of artifact blobs. Put replaces any previous
// blob under the same name atomically: readers observe either the old or the
// new content, never a partial write.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) error
	// Get returns ErrNotFound (possibly wrapped) for a missing name.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	// List returns the sorted names matching a shell glob such as
	// "Papercraft-v1.2.0-*".
	List(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// validName rejects names that could escape a flat namespace.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
