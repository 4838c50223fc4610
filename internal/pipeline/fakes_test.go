package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/papercraft-labs/pcrelease/internal/builder"
	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/papercraft-labs/pcrelease/internal/publish"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/runner"
	"github.com/papercraft-labs/pcrelease/internal/toolchain"
)

type fakeProvisioner struct {
	fail map[release.Platform]error
}

func (f *fakeProvisioner) Provision(ctx context.Context, p release.Platform, tools []manifest.Tool) (*toolchain.Toolchain, error) {
	if err := f.fail[p]; err != nil {
		return nil, err
	}
	return &toolchain.Toolchain{Platform: p, BinDir: "/tools/" + string(p), Env: []string{"PATH=/tools/" + string(p) + ":/usr/bin"}}, nil
}

// fakeBuilder writes a placeholder executable into the job's work dir.
type fakeBuilder struct {
	fail map[release.Platform]error
	// block, when set, holds builds until ctx is done.
	block bool
}

func (f *fakeBuilder) Build(ctx context.Context, req builder.Request) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := f.fail[req.Platform]; err != nil {
		return "", err
	}
	exe := filepath.Join(req.WorkDir, "target", req.Target, "release", req.Platform.ExecutableName(req.Binary))
	if err := os.MkdirAll(filepath.Dir(exe), 0755); err != nil {
		return "", err
	}
	return exe, os.WriteFile(exe, []byte("exe for "+string(req.Platform)), 0755)
}

// packagingTools fakes linuxdeploy, appimagetool and hdiutil.
var packagingTools = runner.Func(func(ctx context.Context, cmd runner.Command) (*runner.Output, error) {
	switch cmd.Name {
	case "appimagetool", "hdiutil":
		return &runner.Output{}, os.WriteFile(cmd.Args[len(cmd.Args)-1], []byte(cmd.Name), 0644)
	}
	return &runner.Output{}, nil
})

type failingTools struct{}

func (failingTools) Run(ctx context.Context, cmd runner.Command) (*runner.Output, error) {
	return &runner.Output{ExitCode: 2}, &runner.ExitError{Command: cmd.Name, ExitCode: 2, Stderr: "hdiutil: create failed"}
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publish.Release
	err   error
	// onPublish runs at the start of Publish.
	onPublish func()
}

func (f *fakePublisher) Publish(ctx context.Context, rel publish.Release) (*publish.Result, error) {
	if f.onPublish != nil {
		f.onPublish()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rel)
	if f.err != nil {
		return nil, f.err
	}
	var names []string
	for _, a := range rel.Assets {
		names = append(names, a.Name)
	}
	return &publish.Result{URL: "https://example.test/" + rel.Tag.String(), Assets: names}, nil
}

func (f *fakePublisher) assetNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	var names []string
	for _, a := range f.calls[0].Assets {
		names = append(names, a.Name)
	}
	return names
}

var errCompile = errors.New("error[E0308]: mismatched types")

// testPipeline returns the default pipeline with its assets present in src.
func testPipeline(t *testing.T, src string) *manifest.Pipeline {
	t.Helper()
	p, err := manifest.Default()
	if err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{p.App.Icon, p.App.MacIcon} {
		path := filepath.Join(src, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("icon"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return p
}
