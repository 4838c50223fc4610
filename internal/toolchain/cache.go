package toolchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const entryFileName = "entry.json"

// DefaultCacheMaxAge bounds how long an unpinned download (no sha256) is
// reused before it is fetched again.
const DefaultCacheMaxAge = 24 * time.Hour

// cacheEntry records one cached download. Each URL has its own directory so
// jobs downloading different tools never write the same file.
type cacheEntry struct {
	URL       string    `json:"url"`
	File      string    `json:"file"`
	SHA256    string    `json:"sha256"`
	FetchedAt time.Time `json:"fetched_at"`
}

type downloadCache struct {
	dir    string
	maxAge time.Duration
}

func (c *downloadCache) entryDir(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8]))
}

// lookup returns the cached file for url if it is still usable. A pinned
// checksum must match; an unpinned entry must be younger than maxAge.
func (c *downloadCache) lookup(url, pinned string) (string, bool) {
	entry, err := loadEntry(c.entryDir(url))
	if err != nil || entry == nil || entry.URL != url {
		return "", false
	}
	path := filepath.Join(c.entryDir(url), entry.File)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	if pinned != "" {
		return path, entry.SHA256 == pinned
	}
	return path, !isStale(entry, c.maxAge)
}

func (c *downloadCache) save(dir string, entry *cacheEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	tmp := filepath.Join(dir, entryFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, entryFileName))
}

// loadEntry reads the cache entry of dir. Returns nil, nil if none exists.
func loadEntry(dir string) (*cacheEntry, error) {
	data, err := os.ReadFile(filepath.Join(dir, entryFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parsing cache entry: %w", err)
	}
	return &entry, nil
}

func isStale(entry *cacheEntry, maxAge time.Duration) bool {
	if entry == nil {
		return true
	}
	return time.Since(entry.FetchedAt) > maxAge
}
