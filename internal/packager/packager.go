package packager

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

// Input is everything a packager needs for one job.
type Input struct {
	Executable string
	Tag        release.Tag
	App        manifest.App
	// SourceDir resolves relative asset paths such as App.Icon.
	SourceDir string
	// WorkDir is private to the job and holds staging directories.
	WorkDir string
	// OutputDir receives the finished artifact.
	OutputDir string
	Toolchain *toolchain.Toolchain
}

func (in Input) asset(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(in.SourceDir, rel)
}

// Packager wraps an executable into a platform distributable and returns the
// artifact path.
type Packager interface {
	Package(ctx context.Context, in Input) (string, error)
}

// New selects the packager for platform. The package kind must produce the
// platform's artifact extension.
func New(platform release.Platform, spec manifest.PackageSpec, r runner.Runner, logger *zap.Logger) (Packager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("platform", string(platform)))

	var p Packager
	switch spec.Kind {
	case manifest.PackageAppImage:
		p = &AppImage{platform: platform, excludeLibraries: spec.ExcludeLibraries, runtime: spec.Runtime, runner: r, logger: logger}
	case manifest.PackageZip:
		p = &Zip{platform: platform, logger: logger}
	case manifest.PackageExe:
		p = &Exe{platform: platform, logger: logger}
	case manifest.PackageDMG:
		p = &DMG{platform: platform, runner: r, logger: logger}
	default:
		return nil, fmt.Errorf("unknown package kind %q", spec.Kind)
	}

	if kindExt[spec.Kind] != platform.Ext() {
		return nil, fmt.Errorf("package kind %q cannot produce .%s artifacts for %s", spec.Kind, platform.Ext(), platform)
	}
	return p, nil
}

var kindExt = map[string]string{
	manifest.PackageAppImage: "AppImage",
	manifest.PackageZip:      "zip",
	manifest.PackageExe:      "exe",
	manifest.PackageDMG:      "dmg",
}

// produce runs write against a partial path next to the final artifact and
// renames it into place only when write succeeds. Staging directories under
// cleanup are removed either way.
func produce(in Input, platform release.Platform, write func(partial string) error, cleanup ...string) (path string, err error) {
	defer func() {
		for _, dir := range cleanup {
			os.RemoveAll(dir)
		}
	}()

	if err := os.MkdirAll(in.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	name := release.ArtifactName(in.Tag, platform)
	final := filepath.Join(in.OutputDir, name)
	ext := filepath.Ext(name)
	// Keep the real extension last; hdiutil appends .dmg otherwise.
	partial := filepath.Join(in.OutputDir, strings.TrimSuffix(name, ext)+".partial"+ext)

	os.Remove(final)
	os.Remove(partial)

	if err := write(partial); err != nil {
		os.Remove(partial)
		return "", err
	}
	if _, err := os.Stat(partial); err != nil {
		return "", fmt.Errorf("packaging tool reported success but wrote no %s", name)
	}
	if err := os.Rename(partial, final); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("finalizing %s: %w", name, err)
	}
	return final, nil
}

// stagingDir returns a fresh directory under the job's work dir.
func stagingDir(in Input, name string) (string, error) {
	dir := filepath.Join(in.WorkDir, "package", name)
	if err := os.RemoveAll(dir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func jobEnv(in Input) []string {
	if in.Toolchain == nil {
		return os.Environ()
	}
	return in.Toolchain.Env
}
