package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papercraft-labs/pcrelease/internal/fsutil"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/runner"
	"go.uber.org/zap"
)

// DMG builds a .app bundle and wraps it in a compressed disk image with
// hdiutil.
type DMG struct {
	platform release.Platform
	runner   runner.Runner
	logger   *zap.Logger
}

func (d *DMG) Package(ctx context.Context, in Input) (string, error) {
	stage, err := stagingDir(in, "dmg")
	if err != nil {
		return "", fmt.Errorf("preparing disk image folder: %w", err)
	}
	data := newTemplateData(in.App, in.Tag)
	env := jobEnv(in)
	if v := runner.Getenv(env, "MACOSX_DEPLOYMENT_TARGET"); v != "" {
		data.MinimumSystem = v
	}

	return produce(in, d.platform, func(partial string) error {
		if err := d.bundle(stage, in, &data); err != nil {
			return err
		}
		cmd := runner.Command{
			Name: "hdiutil",
			Args: []string{"create", "-volname", data.Name, "-srcfolder", stage, "-ov", "-format", "UDZO", partial},
			Env:  env,
		}
		d.logger.Info("running packaging tool", zap.Stringer("command", cmd))
		if _, err := d.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("hdiutil: %w", err)
		}
		return nil
	}, stage)
}

// bundle writes <Name>.app into stage together with an /Applications link.
func (d *DMG) bundle(stage string, in Input, data *templateData) error {
	contents := filepath.Join(stage, data.Name+".app", "Contents")

	if err := fsutil.CopyFile(in.Executable, filepath.Join(contents, "MacOS", in.App.Binary), 0755); err != nil {
		return fmt.Errorf("staging executable: %w", err)
	}
	if in.App.MacIcon != "" {
		data.Icon = in.App.Binary + ".icns"
		if err := fsutil.CopyFile(in.asset(in.App.MacIcon), filepath.Join(contents, "Resources", data.Icon), 0644); err != nil {
			return fmt.Errorf("staging icon: %w", err)
		}
	}

	plist, err := render(infoPlistTmpl, *data)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFile(filepath.Join(contents, "Info.plist"), plist, 0644); err != nil {
		return fmt.Errorf("writing Info.plist: %w", err)
	}
	if err := fsutil.WriteFile(filepath.Join(contents, "PkgInfo"), []byte("APPL????"), 0644); err != nil {
		return fmt.Errorf("writing PkgInfo: %w", err)
	}

	if err := os.Symlink("/Applications", filepath.Join(stage, "Applications")); err != nil {
		return fmt.Errorf("linking Applications: %w", err)
	}
	return nil
}
