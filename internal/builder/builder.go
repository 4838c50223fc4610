// Package builder runs the native release build for one platform. Every job
// builds into its own target directory with its own environment, so builds
// for different platforms never share mutable state.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/runner"
	"github.com/papercraft-labs/pcrelease/internal/toolchain"
	"go.uber.org/zap"
)

// Request describes one build.
type Request struct {
	Platform release.Platform
	// Target is the target triple, e.g. "x86_64-pc-windows-msvc".
	Target string
	// Binary is the executable name without platform suffix.
	Binary string
	// SourceDir is the application checkout the build command runs in.
	SourceDir string
	// WorkDir is private to the job; the build writes under WorkDir/target.
	WorkDir string
	Spec    manifest.BuildSpec
	// Env holds job-specific overrides applied on top of the toolchain env.
	Env       map[string]string
	Toolchain *toolchain.Toolchain
}

// Builder invokes the opaque build command.
type Builder struct {
	runner runner.Runner
	logger *zap.Logger
}

// New creates a Builder.
func New(r runner.Runner, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{runner: r, logger: logger}
}

// Build runs the build and returns the path of the produced executable.
func (b *Builder) Build(ctx context.Context, req Request) (string, error) {
	if req.Toolchain == nil {
		return "", fmt.Errorf("no toolchain provisioned for %s", req.Platform)
	}
	if len(req.Spec.Command) == 0 {
		return "", fmt.Errorf("empty build command for %s", req.Platform)
	}

	targetDir := filepath.Join(req.WorkDir, "target")
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("creating target directory: %w", err)
	}

	expand := strings.NewReplacer("{target}", req.Target, "{target_dir}", targetDir).Replace
	args := make([]string, len(req.Spec.Command)-1)
	for i, a := range req.Spec.Command[1:] {
		args[i] = expand(a)
	}

	env := runner.Merge(req.Toolchain.Env, req.Env)
	env = runner.SetEnv(env, "CARGO_TARGET_DIR", targetDir)

	cmd := runner.Command{
		Name: expand(req.Spec.Command[0]),
		Args: args,
		Dir:  req.SourceDir,
		Env:  env,
	}

	log := b.logger.With(zap.String("platform", string(req.Platform)), zap.String("target", req.Target))
	log.Info("building", zap.Stringer("command", cmd))

	if _, err := b.runner.Run(ctx, cmd); err != nil {
		return "", err
	}

	outDir := expand(req.Spec.OutputDir)
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(req.SourceDir, outDir)
	}
	exe := filepath.Join(outDir, req.Platform.ExecutableName(req.Binary))

	info, err := os.Stat(exe)
	if err != nil {
		return "", fmt.Errorf("build succeeded but produced no executable: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("build output %s is a directory", exe)
	}

	log.Info("build finished", zap.String("executable", exe), zap.Int64("size", info.Size()))
	return exe, nil
}
