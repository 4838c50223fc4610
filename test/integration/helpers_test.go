//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	Workspace string // toolchains, job work dirs, artifacts
	SourceDir string // a mock application checkout
}

// setupTestEnv creates isolated temp directories and points HOME at one of
// them so nothing leaks into the real ~/.pcrelease.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		Workspace: t.TempDir(),
		SourceDir: t.TempDir(),
	}
	t.Setenv("HOME", t.TempDir())

	writeFile(t, filepath.Join(env.SourceDir, "assets", "papercraft.png"), "png")
	writeFile(t, filepath.Join(env.SourceDir, "assets", "papercraft.icns"), "icns")
	return env
}

// writePipeline writes a pipeline manifest into the source dir.
func writePipeline(t *testing.T, env *testEnv, content string) string {
	t.Helper()
	path := filepath.Join(env.SourceDir, "pipeline.yaml")
	writeFile(t, path, content)
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected file %s to exist: %v", path, err)
		return
	}
	if info.IsDir() {
		t.Errorf("expected %s to be a file, got directory", path)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to not exist", path)
	}
}
