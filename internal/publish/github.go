package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/papercraft-labs/pcrelease/internal/branding"
	"go.uber.org/zap"
)

// GitHubConfig configures the GitHub releases publisher.
type GitHubConfig struct {
	// Repo is "owner/name".
	Repo      string
	Token     string
	APIURL    string
	UploadURL string
}

// GitHub publishes to GitHub releases.
type GitHub struct {
	cfg        GitHubConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGitHub creates a GitHub publisher. client may be nil.
func NewGitHub(cfg GitHubConfig, client *http.Client, logger *zap.Logger) (*GitHub, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("a GitHub token is required to publish; set github.token, %s or GITHUB_TOKEN", branding.EnvVar("github_token"))
	}
	if !strings.Contains(cfg.Repo, "/") {
		return nil, fmt.Errorf("github repo %q must be owner/name", cfg.Repo)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com"
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = "https://uploads.github.com"
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.UploadURL = strings.TrimRight(cfg.UploadURL, "/")
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHub{cfg: cfg, httpClient: client, logger: logger}, nil
}

type ghRelease struct {
	ID         int64  `json:"id"`
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body,omitempty"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	HTMLURL    string `json:"html_url,omitempty"`
}

type ghAsset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

var errReleaseNotFound = errors.New("release not found")

// Publish creates the release for rel.Tag, or reuses an existing one, and
// uploads every asset. A release created here stays a draft until all
// uploads succeed and is deleted if any fails. On an existing release the
// assets uploaded by a failed call are deleted again, so a failed publish
// leaves no partial asset set behind.
func (g *GitHub) Publish(ctx context.Context, rel Release) (*Result, error) {
	existing, err := g.releaseByTag(ctx, rel.Tag.String())
	if err != nil && !errors.Is(err, errReleaseNotFound) {
		return nil, err
	}

	created := existing == nil
	target := existing
	if created {
		target, err = g.createRelease(ctx, ghRelease{
			TagName:    rel.Tag.String(),
			Name:       title(rel),
			Body:       rel.Notes,
			Draft:      true,
			Prerelease: rel.Prerelease,
		})
		if err != nil {
			return nil, err
		}
		g.logger.Info("created draft release", zap.String("tag", rel.Tag.String()), zap.Int64("id", target.ID))
	}

	var (
		uploaded []string
		assetIDs []int64
	)
	rollback := func() {
		if created {
			g.discard(target.ID)
			return
		}
		for _, id := range assetIDs {
			g.discardAsset(id)
		}
	}

	for _, a := range rel.Assets {
		id, err := g.uploadAsset(ctx, target.ID, a)
		if err != nil {
			rollback()
			return nil, err
		}
		g.logger.Info("uploaded asset", zap.String("name", a.Name), zap.Int64("size", a.Size))
		uploaded = append(uploaded, a.Name)
		assetIDs = append(assetIDs, id)
	}

	patch := map[string]any{"prerelease": rel.Prerelease}
	if created {
		patch["draft"] = false
	}
	if created || existing.Prerelease != rel.Prerelease {
		updated, err := g.updateRelease(ctx, target.ID, patch)
		if err != nil {
			rollback()
			return nil, err
		}
		target = updated
	}

	return &Result{URL: target.HTMLURL, Assets: uploaded}, nil
}

func (g *GitHub) releaseByTag(ctx context.Context, tag string) (*ghRelease, error) {
	u := fmt.Sprintf("%s/repos/%s/releases/tags/%s", g.cfg.APIURL, g.cfg.Repo, url.PathEscape(tag))
	var out ghRelease
	err := g.do(ctx, "fetching release", http.MethodGet, u, nil, "", &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, errReleaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *GitHub) createRelease(ctx context.Context, rel ghRelease) (*ghRelease, error) {
	body, err := json.Marshal(rel)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/repos/%s/releases", g.cfg.APIURL, g.cfg.Repo)
	var out ghRelease
	if err := g.do(ctx, "creating release", http.MethodPost, u, bytes.NewReader(body), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *GitHub) updateRelease(ctx context.Context, id int64, patch map[string]any) (*ghRelease, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/repos/%s/releases/%d", g.cfg.APIURL, g.cfg.Repo, id)
	var out ghRelease
	if err := g.do(ctx, "updating release", http.MethodPatch, u, bytes.NewReader(body), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *GitHub) uploadAsset(ctx context.Context, id int64, a Asset) (int64, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return 0, fmt.Errorf("opening asset: %w", err)
	}
	defer f.Close()

	u := fmt.Sprintf("%s/repos/%s/releases/%d/assets?name=%s", g.cfg.UploadURL, g.cfg.Repo, id, url.QueryEscape(a.Name))
	var out ghAsset
	if err := g.do(ctx, "uploading "+a.Name, http.MethodPost, u, f, "application/octet-stream", &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// discard deletes a draft created by a failed publish. It runs even when
// ctx is already cancelled.
func (g *GitHub) discard(id int64) {
	u := fmt.Sprintf("%s/repos/%s/releases/%d", g.cfg.APIURL, g.cfg.Repo, id)
	if err := g.do(context.Background(), "deleting draft release", http.MethodDelete, u, nil, "", nil); err != nil {
		g.logger.Warn("could not delete draft release", zap.Int64("id", id), zap.Error(err))
	}
}

// discardAsset deletes an asset a failed publish added to an existing release.
func (g *GitHub) discardAsset(id int64) {
	u := fmt.Sprintf("%s/repos/%s/releases/assets/%d", g.cfg.APIURL, g.cfg.Repo, id)
	if err := g.do(context.Background(), "deleting release asset", http.MethodDelete, u, nil, "", nil); err != nil {
		g.logger.Warn("could not delete release asset", zap.Int64("id", id), zap.Error(err))
	}
}

func (g *GitHub) do(ctx context.Context, op, method, u string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", branding.CLIName())
	req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if f, ok := body.(*os.File); ok {
		if info, err := f.Stat(); err == nil {
			req.ContentLength = info.Size()
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: reading response body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: apiMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: parsing response JSON: %w", op, err)
	}
	return nil
}

// apiMessage extracts GitHub's error message, including validation details.
func apiMessage(data []byte) string {
	var e struct {
		Message string `json:"message"`
		Errors  []struct {
			Code  string `json:"code"`
			Field string `json:"field"`
		} `json:"errors"`
	}
	if json.Unmarshal(data, &e) != nil {
		return strings.TrimSpace(string(data))
	}
	msg := e.Message
	for _, d := range e.Errors {
		msg += fmt.Sprintf(" (%s %s)", d.Field, d.Code)
	}
	return msg
}
