package packager

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/runner"
	"github.com/papercraft-labs/pcrelease/internal/toolchain"
)

func newInput(t *testing.T, exeName string) Input {
	t.Helper()
	src := t.TempDir()
	exe := filepath.Join(t.TempDir(), exeName)
	if err := os.WriteFile(exe, []byte("binary"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "papercraft.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "papercraft.icns"), []byte("icns"), 0644); err != nil {
		t.Fatal(err)
	}
	return Input{
		Executable: exe,
		Tag:        "v2.1.0",
		App: manifest.App{
			Binary:      "papercraft",
			DisplayName: "Papercraft",
			BundleID:    "com.rodrigorc.papercraft",
			Comment:     "Unfold 3D models",
			Categories:  []string{"Graphics", "3DGraphics"},
			Icon:        "papercraft.png",
			MacIcon:     "papercraft.icns",
		},
		SourceDir: src,
		WorkDir:   t.TempDir(),
		OutputDir: t.TempDir(),
		Toolchain: &toolchain.Toolchain{
			BinDir: "/tools/bin",
			Env:    []string{"PATH=/tools/bin:/usr/bin", "MACOSX_DEPLOYMENT_TARGET=10.13"},
		},
	}
}

// recorder fakes packaging tools. Tools listed in produces write their last
// argument; tools in fail exit non-zero.
type recorder struct {
	commands []runner.Command
	produces []string
	fail     string
	// inspect runs before a tool returns, while staging still exists.
	inspect func(cmd runner.Command)
}

func (r *recorder) Run(ctx context.Context, cmd runner.Command) (*runner.Output, error) {
	r.commands = append(r.commands, cmd)
	if r.inspect != nil {
		r.inspect(cmd)
	}
	if cmd.Name == r.fail {
		return &runner.Output{ExitCode: 1}, &runner.ExitError{Command: cmd.Name, ExitCode: 1, Stderr: "boom"}
	}
	if slices.Contains(r.produces, cmd.Name) {
		if err := os.WriteFile(cmd.Args[len(cmd.Args)-1], []byte("image"), 0644); err != nil {
			return nil, err
		}
	}
	return &runner.Output{}, nil
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

func TestNewRejectsMismatchedKind(t *testing.T) {
	tests := []struct {
		platform release.Platform
		kind     string
		ok       bool
	}{
		{release.LinuxX86_64, manifest.PackageAppImage, true},
		{release.Win32, manifest.PackageZip, true},
		{release.Win64, manifest.PackageExe, true},
		{release.MacOS, manifest.PackageDMG, true},
		{release.Win32, manifest.PackageExe, false},
		{release.MacOS, manifest.PackageZip, false},
		{release.LinuxX86_64, "deb", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.platform)+"/"+tt.kind, func(t *testing.T) {
			_, err := New(tt.platform, manifest.PackageSpec{Kind: tt.kind}, &recorder{}, nil)
			if (err == nil) != tt.ok {
				t.Errorf("New() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestAppImage(t *testing.T) {
	in := newInput(t, "papercraft")
	rec := &recorder{produces: []string{"appimagetool"}}
	var desktop, apprun string
	rec.inspect = func(cmd runner.Command) {
		if cmd.Name != "linuxdeploy" {
			return
		}
		stage := cmd.Args[1]
		b, err := os.ReadFile(filepath.Join(stage, "usr", "share", "applications", "papercraft.desktop"))
		if err != nil {
			t.Errorf("desktop entry: %v", err)
		}
		desktop = string(b)
		b, err = os.ReadFile(filepath.Join(stage, "AppRun"))
		if err != nil {
			t.Errorf("AppRun: %v", err)
		}
		apprun = string(b)
		if _, err := os.Stat(filepath.Join(stage, "usr", "bin", "papercraft")); err != nil {
			t.Errorf("staged executable: %v", err)
		}
		if _, err := os.Stat(filepath.Join(stage, "usr", "share", "icons", "hicolor", "256x256", "apps", "papercraft.png")); err != nil {
			t.Errorf("staged icon: %v", err)
		}
	}

	p, err := New(release.LinuxX86_64, manifest.PackageSpec{
		Kind:             manifest.PackageAppImage,
		ExcludeLibraries: []string{"libfontconfig.so.1"},
		Runtime:          "runtime-x86_64",
	}, rec, nil)
	if err != nil {
		t.Fatal(err)
	}

	path, err := p.Package(context.Background(), in)
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if want := filepath.Join(in.OutputDir, "Papercraft-v2.1.0-x86_64.AppImage"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if got := entries(t, in.OutputDir); len(got) != 1 {
		t.Errorf("output dir = %v, want only the artifact", got)
	}

	if len(rec.commands) != 2 {
		t.Fatalf("ran %d commands, want 2", len(rec.commands))
	}
	deploy := strings.Join(rec.commands[0].Args, " ")
	if !strings.Contains(deploy, "--exclude-library libfontconfig.so.1") {
		t.Errorf("linuxdeploy args = %q", deploy)
	}
	tool := rec.commands[1]
	if tool.Args[0] != "--runtime-file" || tool.Args[1] != "/tools/bin/runtime-x86_64" {
		t.Errorf("appimagetool args = %v", tool.Args)
	}
	if got := runner.Getenv(tool.Env, "ARCH"); got != "x86_64" {
		t.Errorf("ARCH = %q", got)
	}
	if slices.Contains(in.Toolchain.Env, "ARCH=x86_64") {
		t.Error("toolchain env was mutated")
	}

	for _, want := range []string{"Name=Papercraft", "Exec=papercraft %f", "Categories=Graphics;3DGraphics;", "Comment=Unfold 3D models"} {
		if !strings.Contains(desktop, want) {
			t.Errorf("desktop entry missing %q:\n%s", want, desktop)
		}
	}
	if !strings.Contains(apprun, `exec "$HERE/usr/bin/papercraft" "$@"`) {
		t.Errorf("AppRun = %q", apprun)
	}
	if _, err := os.Stat(filepath.Join(in.WorkDir, "package", "AppDir")); !os.IsNotExist(err) {
		t.Errorf("AppDir not cleaned up: %v", err)
	}
}

func TestAppImageToolFailureLeavesNothing(t *testing.T) {
	in := newInput(t, "papercraft")
	rec := &recorder{fail: "appimagetool"}
	p, err := New(release.LinuxX86_64, manifest.PackageSpec{Kind: manifest.PackageAppImage}, rec, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Package(context.Background(), in)
	var exitErr *runner.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want *runner.ExitError", err)
	}
	if got := entries(t, in.OutputDir); len(got) != 0 {
		t.Errorf("output dir = %v, want empty", got)
	}
}

func TestToolSuccessWithoutOutput(t *testing.T) {
	in := newInput(t, "papercraft")
	p, err := New(release.LinuxX86_64, manifest.PackageSpec{Kind: manifest.PackageAppImage}, &recorder{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Package(context.Background(), in); err == nil {
		t.Fatal("expected error when appimagetool writes nothing")
	}
}

func TestZip(t *testing.T) {
	in := newInput(t, "papercraft.exe")
	p, err := New(release.Win32, manifest.PackageSpec{Kind: manifest.PackageZip}, &recorder{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	path, err := p.Package(context.Background(), in)
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if filepath.Base(path) != "Papercraft-v2.1.0-win32.zip" {
		t.Errorf("artifact = %q", filepath.Base(path))
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if len(zr.File) != 1 || zr.File[0].Name != "papercraft.exe" {
		t.Fatalf("archive members = %v", zr.File)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "binary" {
		t.Errorf("member content = %q", b)
	}
}

func TestExe(t *testing.T) {
	in := newInput(t, "papercraft.exe")
	p, err := New(release.Win64, manifest.PackageSpec{Kind: manifest.PackageExe}, &recorder{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	path, err := p.Package(context.Background(), in)
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if filepath.Base(path) != "Papercraft-v2.1.0-win64.exe" {
		t.Errorf("artifact = %q", filepath.Base(path))
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "binary" {
		t.Errorf("content = %q, %v", b, err)
	}
}

func TestExeMissingExecutable(t *testing.T) {
	in := newInput(t, "papercraft.exe")
	in.Executable = filepath.Join(t.TempDir(), "missing.exe")
	p, _ := New(release.Win64, manifest.PackageSpec{Kind: manifest.PackageExe}, &recorder{}, nil)
	if _, err := p.Package(context.Background(), in); err == nil {
		t.Fatal("expected error")
	}
	if got := entries(t, in.OutputDir); len(got) != 0 {
		t.Errorf("output dir = %v, want empty", got)
	}
}

func TestDMG(t *testing.T) {
	in := newInput(t, "papercraft")
	rec := &recorder{produces: []string{"hdiutil"}}
	var plist string
	rec.inspect = func(cmd runner.Command) {
		stage := cmd.Args[4]
		contents := filepath.Join(stage, "Papercraft.app", "Contents")
		b, err := os.ReadFile(filepath.Join(contents, "Info.plist"))
		if err != nil {
			t.Errorf("Info.plist: %v", err)
		}
		plist = string(b)
		if _, err := os.Stat(filepath.Join(contents, "MacOS", "papercraft")); err != nil {
			t.Errorf("bundle executable: %v", err)
		}
		if _, err := os.Stat(filepath.Join(contents, "Resources", "papercraft.icns")); err != nil {
			t.Errorf("bundle icon: %v", err)
		}
		if target, err := os.Readlink(filepath.Join(stage, "Applications")); err != nil || target != "/Applications" {
			t.Errorf("Applications link = %q, %v", target, err)
		}
	}

	p, err := New(release.MacOS, manifest.PackageSpec{Kind: manifest.PackageDMG}, rec, nil)
	if err != nil {
		t.Fatal(err)
	}
	path, err := p.Package(context.Background(), in)
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if filepath.Base(path) != "Papercraft-v2.1.0-MacOS.dmg" {
		t.Errorf("artifact = %q", filepath.Base(path))
	}

	args := rec.commands[0].Args
	if last := args[len(args)-1]; !strings.HasSuffix(last, ".dmg") {
		t.Errorf("hdiutil output %q must end in .dmg", last)
	}
	for _, want := range []string{
		"<string>com.rodrigorc.papercraft</string>",
		"<string>2.1.0</string>",
		"<string>10.13</string>",
		"<string>papercraft.icns</string>",
	} {
		if !strings.Contains(plist, want) {
			t.Errorf("Info.plist missing %q", want)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	in := newInput(t, "papercraft.exe")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := New(release.Win32, manifest.PackageSpec{Kind: manifest.PackageZip}, &recorder{}, nil)
	if _, err := p.Package(ctx, in); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
