package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papercraft-labs/pcrelease/internal/builder"
	"github.com/papercraft-labs/pcrelease/internal/config"
	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/papercraft-labs/pcrelease/internal/pipeline"
	"github.com/papercraft-labs/pcrelease/internal/publish"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/runner"
	"github.com/papercraft-labs/pcrelease/internal/store"
	"github.com/papercraft-labs/pcrelease/internal/toolchain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func loadPipeline(s config.Settings) (*manifest.Pipeline, error) {
	if s.Pipeline == "" {
		return manifest.Default()
	}
	return manifest.ParseFile(s.Pipeline)
}

func parsePlatforms(raw []string) ([]release.Platform, error) {
	var out []release.Platform
	for _, r := range raw {
		p, err := release.ParsePlatform(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func openStore(ctx context.Context, s config.Settings, log *zap.Logger) (store.Store, error) {
	switch s.Store.Backend {
	case config.BackendFS, "":
		return store.NewFS(s.Store.Path)
	case config.BackendRedis:
		return store.NewRedis(ctx, store.RedisConfig{
			Addr:     s.Store.RedisAddr,
			Password: s.Store.RedisPassword,
			DB:       s.Store.RedisDB,
			TTL:      s.Store.RedisTTL,
		}, log)
	}
	return nil, fmt.Errorf("unknown store backend %q (want %s or %s)", s.Store.Backend, config.BackendFS, config.BackendRedis)
}

func newPublisher(s config.Settings, dryRun bool, log *zap.Logger) (publish.Publisher, error) {
	if dryRun {
		return publish.NewDir(filepath.Join(s.Workspace, "releases"), log), nil
	}
	return publish.NewGitHub(publish.GitHubConfig{
		Repo:      s.GitHub.Repo,
		Token:     s.GitHub.Token,
		APIURL:    s.GitHub.APIURL,
		UploadURL: s.GitHub.UploadURL,
	}, nil, log)
}

func newExecutor(s config.Settings, st store.Store, log *zap.Logger) (*pipeline.Executor, error) {
	src, err := filepath.Abs(s.Source)
	if err != nil {
		return nil, fmt.Errorf("resolving source directory: %w", err)
	}
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source directory %s does not exist", src)
	}

	// Tool output goes to stderr so stdout stays reserved for the summary.
	run := &runner.Exec{Stdout: os.Stderr, Stderr: os.Stderr}
	return &pipeline.Executor{
		Provisioner: toolchain.New(filepath.Join(s.Workspace, "toolchains"), toolchain.WithLogger(log)),
		Builder:     builder.New(run, log),
		Runner:      run,
		Store:       st,
		Workspace:   s.Workspace,
		SourceDir:   src,
		Logger:      log,
	}, nil
}

// newAggregator builds the release barrier and reports its progress on the
// command's stderr.
func newAggregator(cmd *cobra.Command, m *release.Manifest, st store.Store, pub publish.Publisher) *pipeline.Aggregator {
	agg := pipeline.NewAggregator(m, st, pub, filepath.Join(settings.Workspace, "collect", m.Tag.String()), logger)
	w := cmd.ErrOrStderr()
	agg.OnTransition = func(s pipeline.State) {
		switch s {
		case pipeline.Collecting:
			fmt.Fprintf(w, "==> All %d platforms reported, collecting artifacts\n", m.Len())
		case pipeline.Publishing:
			fmt.Fprintf(w, "==> Publishing %s\n", m.Tag)
		}
	}
	return agg
}

// finish prints the summary and converts a non-zero exit code into an error.
func finish(cmd *cobra.Command, sum *pipeline.Summary) error {
	sum.Write(cmd.OutOrStdout())
	if code := sum.ExitCode(); code != pipeline.ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}
