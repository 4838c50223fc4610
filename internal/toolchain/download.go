package toolchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// fetch returns a local path holding the content of rawURL, downloading it
// into the cache when needed. When pinned is set the content must hash to it.
func (p *Provisioner) fetch(ctx context.Context, rawURL, pinned string) (string, error) {
	if cached, ok := p.cache.lookup(rawURL, pinned); ok {
		return cached, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		name = "download"
	}

	dir := p.cache.entryDir(rawURL)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", "pcrelease-provisioner")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download of %s returned status %d", name, resp.StatusCode)
	}

	f, err := os.CreateTemp(dir, name+".*.partial")
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, h), resp.Body); err != nil {
		f.Close()
		return "", fmt.Errorf("reading download stream: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing download: %w", err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if pinned != "" && actual != pinned {
		return "", fmt.Errorf("checksum mismatch for %s: expected %s, got %s", name, pinned, actual)
	}

	dst := filepath.Join(dir, name)
	if err := os.Rename(tmp, dst); err != nil {
		return "", fmt.Errorf("storing download: %w", err)
	}

	entry := &cacheEntry{URL: rawURL, File: name, SHA256: actual, FetchedAt: time.Now()}
	if err := p.cache.save(dir, entry); err != nil {
		return "", err
	}
	return dst, nil
}
