package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercraft-labs/pcrelease/internal/fsutil"
	"go.uber.org/zap"
)

// Dir publishes into <root>/<tag>/ on the local filesystem.
type Dir struct {
	root   string
	now    func() time.Time
	logger *zap.Logger
}

// NewDir creates a directory publisher.
func NewDir(root string, logger *zap.Logger) *Dir {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dir{root: root, now: time.Now, logger: logger}
}

// Record is the release.json written next to the assets.
type Record struct {
	Tag         string        `json:"tag"`
	Title       string        `json:"title"`
	Notes       string        `json:"notes,omitempty"`
	Prerelease  bool          `json:"prerelease"`
	PublishedAt time.Time     `json:"published_at"`
	Assets      []RecordAsset `json:"assets"`
}

// RecordAsset lists one published file.
type RecordAsset struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Publish copies every asset into the tag directory. Assets are staged in a
// sibling directory that replaces the tag directory only once complete.
func (d *Dir) Publish(ctx context.Context, rel Release) (*Result, error) {
	dest := filepath.Join(d.root, rel.Tag.String())
	staging := dest + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return nil, err
	}
	defer os.RemoveAll(staging)

	rec := Record{
		Tag:         rel.Tag.String(),
		Title:       title(rel),
		Notes:       rel.Notes,
		Prerelease:  rel.Prerelease,
		PublishedAt: d.now().UTC(),
		Assets:      []RecordAsset{},
	}
	var names []string
	for _, a := range rel.Assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := fsutil.CopyFile(a.Path, filepath.Join(staging, a.Name), 0644); err != nil {
			return nil, fmt.Errorf("copying %s: %w", a.Name, err)
		}
		rec.Assets = append(rec.Assets, RecordAsset{Name: a.Name, Size: a.Size})
		names = append(names, a.Name)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := fsutil.WriteFile(filepath.Join(staging, "release.json"), append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("writing release record: %w", err)
	}

	if err := os.RemoveAll(dest); err != nil {
		return nil, err
	}
	if err := os.Rename(staging, dest); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", dest, err)
	}
	d.logger.Info("release written", zap.String("dir", dest), zap.Int("assets", len(names)))
	return &Result{URL: dest, Assets: names}, nil
}

// ReadRecord loads the release.json of a published tag directory.
func ReadRecord(dir string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(dir, "release.json"))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing release record: %w", err)
	}
	return &rec, nil
}
