package toolchain

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/papercraft-labs/pcrelease/internal/fsutil"
	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/runner"
	"go.uber.org/zap"
)

// Toolchain is the provisioned build environment of one job.
type Toolchain struct {
	Platform release.Platform
	// BinDir holds downloaded tools and shims.
	BinDir string
	// Env is the complete job environment with BinDir first on PATH.
	Env []string
}

// Tool returns the path of a provisioned tool by name.
func (t *Toolchain) Tool(name string) string {
	return filepath.Join(t.BinDir, name)
}

// Provisioner materializes toolchains under a root directory.
type Provisioner struct {
	root       string
	cache      *downloadCache
	httpClient *http.Client
	baseEnv    []string
	logger     *zap.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provisioner) {
		p.httpClient = c
	}
}

// WithBaseEnv sets the environment every toolchain starts from. Defaults to
// a snapshot of the process environment taken by New.
func WithBaseEnv(env []string) Option {
	return func(p *Provisioner) {
		p.baseEnv = append([]string(nil), env...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provisioner) {
		p.logger = l
	}
}

// New creates a Provisioner storing toolchains under root/<platform> and
// downloads under root/.downloads.
func New(root string, opts ...Option) *Provisioner {
	p := &Provisioner{
		root:       root,
		cache:      &downloadCache{dir: filepath.Join(root, ".downloads"), maxAge: DefaultCacheMaxAge},
		httpClient: http.DefaultClient,
		baseEnv:    os.Environ(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision prepares the toolchain for platform. Any failure removes the
// platform's tool directory so no later step can pick up a partial toolchain.
func (p *Provisioner) Provision(ctx context.Context, platform release.Platform, tools []manifest.Tool) (tc *Toolchain, err error) {
	if !platform.Valid() {
		return nil, fmt.Errorf("%w %q", release.ErrUnknownPlatform, platform)
	}

	platformDir := filepath.Join(p.root, string(platform))
	binDir := filepath.Join(platformDir, "bin")

	if err := os.RemoveAll(platformDir); err != nil {
		return nil, fmt.Errorf("clearing toolchain %s: %w", platformDir, err)
	}
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return nil, fmt.Errorf("creating toolchain %s: %w", binDir, err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(platformDir)
		}
	}()

	log := p.logger.With(zap.String("platform", string(platform)))
	env := runner.PrependPath(append([]string(nil), p.baseEnv...), binDir)

	var required []string
	for _, tool := range tools {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch tool.Kind {
		case manifest.ToolDownload:
			log.Debug("downloading tool", zap.String("tool", tool.Name), zap.String("url", tool.URL))
			if err := p.installDownload(ctx, tool, binDir); err != nil {
				return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
			}
		case manifest.ToolShim:
			target, err := runner.LookPath(tool.Target, p.baseEnv)
			if err != nil {
				return nil, fmt.Errorf("tool %s: shim target: %w", tool.Name, err)
			}
			log.Debug("writing shim", zap.String("tool", tool.Name), zap.String("target", target))
			if err := writeShim(filepath.Join(binDir, tool.Name), target, tool.Replace); err != nil {
				return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
			}
		case manifest.ToolRequire:
			required = append(required, tool.Name)
		default:
			return nil, fmt.Errorf("tool %s: unknown kind %q", tool.Name, tool.Kind)
		}
	}

	// Required tools may be satisfied by a download or shim above.
	for _, name := range required {
		path, err := runner.LookPath(name, env)
		if err != nil {
			return nil, fmt.Errorf("required tool: %w", err)
		}
		log.Debug("found required tool", zap.String("tool", name), zap.String("path", path))
	}

	log.Info("toolchain ready", zap.String("bin_dir", binDir), zap.Int("tools", len(tools)))
	return &Toolchain{Platform: platform, BinDir: binDir, Env: env}, nil
}

func (p *Provisioner) installDownload(ctx context.Context, tool manifest.Tool, binDir string) error {
	src, err := p.fetch(ctx, tool.URL, tool.SHA256)
	if err != nil {
		return err
	}

	dst := filepath.Join(binDir, tool.Name)
	if tool.Member != "" {
		return ExtractMember(src, tool.Member, dst)
	}
	return fsutil.CopyFile(src, dst, 0755)
}
