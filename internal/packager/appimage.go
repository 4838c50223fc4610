package packager

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/papercraft-labs/pcrelease/internal/fsutil"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/runner"
	"go.uber.org/zap"
)

// AppImage assembles an AppDir, lets linuxdeploy bundle shared libraries into
// it and compresses it with appimagetool.
type AppImage struct {
	platform         release.Platform
	excludeLibraries []string
	runtime          string
	runner           runner.Runner
	logger           *zap.Logger
}

func (a *AppImage) Package(ctx context.Context, in Input) (string, error) {
	stage, err := stagingDir(in, "AppDir")
	if err != nil {
		return "", fmt.Errorf("preparing AppDir: %w", err)
	}
	data := newTemplateData(in.App, in.Tag)
	env := runner.SetEnv(jobEnv(in), "ARCH", "x86_64")

	return produce(in, a.platform, func(partial string) error {
		desktop, icon, err := a.layout(stage, in, data)
		if err != nil {
			return err
		}

		args := []string{
			"--appdir", stage,
			"--executable", filepath.Join(stage, "usr", "bin", in.App.Binary),
			"--desktop-file", desktop,
			"--custom-apprun", filepath.Join(stage, "AppRun"),
		}
		if icon != "" {
			args = append(args, "--icon-file", icon)
		}
		for _, lib := range a.excludeLibraries {
			args = append(args, "--exclude-library", lib)
		}
		if err := a.run(ctx, runner.Command{Name: "linuxdeploy", Args: args, Env: env}); err != nil {
			return err
		}

		var toolArgs []string
		if a.runtime != "" && in.Toolchain != nil {
			toolArgs = append(toolArgs, "--runtime-file", in.Toolchain.Tool(a.runtime))
		}
		toolArgs = append(toolArgs, stage, partial)
		return a.run(ctx, runner.Command{Name: "appimagetool", Args: toolArgs, Env: env})
	}, stage)
}

// layout writes the AppDir skeleton and returns the desktop and icon paths.
func (a *AppImage) layout(stage string, in Input, data templateData) (desktop, icon string, err error) {
	bin := filepath.Join(stage, "usr", "bin", in.App.Binary)
	if err := fsutil.CopyFile(in.Executable, bin, 0755); err != nil {
		return "", "", fmt.Errorf("staging executable: %w", err)
	}

	entry, err := render(desktopTmpl, data)
	if err != nil {
		return "", "", err
	}
	desktop = filepath.Join(stage, "usr", "share", "applications", in.App.Binary+".desktop")
	if err := fsutil.WriteFile(desktop, entry, 0644); err != nil {
		return "", "", fmt.Errorf("writing desktop entry: %w", err)
	}

	launcher, err := render(appRunTmpl, data)
	if err != nil {
		return "", "", err
	}
	if err := fsutil.WriteFile(filepath.Join(stage, "AppRun"), launcher, 0755); err != nil {
		return "", "", fmt.Errorf("writing AppRun: %w", err)
	}

	if in.App.Icon != "" {
		icon = filepath.Join(stage, "usr", "share", "icons", "hicolor", "256x256", "apps", in.App.Binary+filepath.Ext(in.App.Icon))
		if err := fsutil.CopyFile(in.asset(in.App.Icon), icon, 0644); err != nil {
			return "", "", fmt.Errorf("staging icon: %w", err)
		}
	}
	return desktop, icon, nil
}

func (a *AppImage) run(ctx context.Context, cmd runner.Command) error {
	a.logger.Info("running packaging tool", zap.Stringer("command", cmd))
	if _, err := a.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return nil
}
