package publish

import (
	"context"
	"fmt"

	"github.com/papercraft-labs/pcrelease/internal/release"
)

// Asset is one file attached to a release.
type Asset struct {
	Name string
	Path string
	Size int64
}

// Release is the full set published under a tag in one call.
type Release struct {
	Tag        release.Tag
	Title      string
	Notes      string
	Prerelease bool
	Assets     []Asset
}

// Result describes the published record.
type Result struct {
	// URL locates the release: a web page or a local directory.
	URL    string
	Assets []string
}

// Publisher publishes a release. Publish is not idempotent: calling it twice
// for the same tag attaches the assets twice or fails on duplicates.
type Publisher interface {
	Publish(ctx context.Context, rel Release) (*Result, error)
}

// APIError is a non-success answer from the release system.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

func title(rel Release) string {
	if rel.Title != "" {
		return rel.Title
	}
	return rel.Tag.String()
}
