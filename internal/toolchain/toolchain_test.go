package toolchain

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/runner"
)

func newTestServer(t *testing.T, files map[string][]byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// createTestTarGz creates a tar.gz archive containing a single named file.
func createTestTarGz(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	hdr := &tar.Header{Name: "dist/" + name, Mode: 0755, Size: int64(len(content)), Typeflag: tar.TypeReg}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gw.Close()
	return buf.Bytes()
}

func TestProvision_Download(t *testing.T) {
	tool := []byte("#!/bin/sh\necho linuxdeploy\n")
	server, hits := newTestServer(t, map[string][]byte{"/linuxdeploy-x86_64.AppImage": tool})

	root := t.TempDir()
	p := New(root, WithHTTPClient(server.Client()), WithBaseEnv([]string{"PATH=/usr/bin"}))

	tools := []manifest.Tool{{
		Name:   "linuxdeploy",
		Kind:   manifest.ToolDownload,
		URL:    server.URL + "/linuxdeploy-x86_64.AppImage",
		SHA256: checksum(tool),
	}}

	tc, err := p.Provision(context.Background(), release.LinuxX86_64, tools)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	data, err := os.ReadFile(tc.Tool("linuxdeploy"))
	if err != nil || !bytes.Equal(data, tool) {
		t.Fatalf("tool content = %q, %v", data, err)
	}
	if !strings.HasPrefix(runner.Getenv(tc.Env, "PATH"), tc.BinDir) {
		t.Errorf("PATH %q does not start with %q", runner.Getenv(tc.Env, "PATH"), tc.BinDir)
	}

	// Second provisioning reuses the pinned download.
	if _, err := p.Provision(context.Background(), release.LinuxX86_64, tools); err != nil {
		t.Fatalf("second Provision: %v", err)
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

func TestProvision_ExtractMember(t *testing.T) {
	content := []byte("appimagetool binary")
	archive := createTestTarGz(t, "appimagetool", content)
	server, _ := newTestServer(t, map[string][]byte{"/appimagetool.tar.gz": archive})

	p := New(t.TempDir(), WithHTTPClient(server.Client()), WithBaseEnv(nil))
	tc, err := p.Provision(context.Background(), release.LinuxX86_64, []manifest.Tool{{
		Name:   "appimagetool",
		Kind:   manifest.ToolDownload,
		URL:    server.URL + "/appimagetool.tar.gz",
		Member: "appimagetool",
	}})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	data, err := os.ReadFile(tc.Tool("appimagetool"))
	if err != nil || !bytes.Equal(data, content) {
		t.Fatalf("extracted content = %q, %v", data, err)
	}
}

func TestProvision_ChecksumMismatchLeavesNothing(t *testing.T) {
	server, _ := newTestServer(t, map[string][]byte{"/runtime": []byte("tampered")})

	root := t.TempDir()
	p := New(root, WithHTTPClient(server.Client()), WithBaseEnv(nil))
	_, err := p.Provision(context.Background(), release.LinuxX86_64, []manifest.Tool{
		{Name: "c++", Kind: manifest.ToolRequire},
		{Name: "runtime", Kind: manifest.ToolDownload, URL: server.URL + "/runtime", SHA256: strings.Repeat("0", 64)},
	})
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, string(release.LinuxX86_64))); !os.IsNotExist(err) {
		t.Errorf("partial toolchain left behind: %v", err)
	}
}

func TestProvision_DownloadNotFound(t *testing.T) {
	server, _ := newTestServer(t, nil)

	p := New(t.TempDir(), WithHTTPClient(server.Client()), WithBaseEnv(nil))
	_, err := p.Provision(context.Background(), release.MacOS, []manifest.Tool{
		{Name: "create-dmg", Kind: manifest.ToolDownload, URL: server.URL + "/missing"},
	})
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}

func TestProvision_RequireMissing(t *testing.T) {
	p := New(t.TempDir(), WithBaseEnv([]string{"PATH=" + t.TempDir()}))
	_, err := p.Provision(context.Background(), release.MacOS, []manifest.Tool{
		{Name: "hdiutil", Kind: manifest.ToolRequire},
	})
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProvision_UnknownPlatform(t *testing.T) {
	p := New(t.TempDir())
	_, err := p.Provision(context.Background(), release.Platform("amiga"), nil)
	if !errors.Is(err, release.ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestProvision_ShimRewritesArguments(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shims are POSIX shell scripts")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	hostBin := t.TempDir()
	target := filepath.Join(hostBin, "g++")
	if err := os.WriteFile(target, []byte("#!/bin/sh\necho \"$@\"\n"), 0755); err != nil {
		t.Fatal(err)
	}

	base := []string{"PATH=" + hostBin + string(os.PathListSeparator) + "/usr/bin:/bin"}
	p := New(t.TempDir(), WithBaseEnv(base))
	tc, err := p.Provision(context.Background(), release.LinuxX86_64, []manifest.Tool{{
		Name:    "c++",
		Kind:    manifest.ToolShim,
		Target:  "g++",
		Replace: map[string]string{"-std=c++20": "-std=c++2a", "-O*": "-O0"},
	}})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	r := &runner.Exec{}
	out, err := r.Run(context.Background(), runner.Command{
		Name: "c++",
		Args: []string{"-O2", "-std=c++20", "it's.cpp"},
		Env:  tc.Env,
	})
	if err != nil {
		t.Fatalf("running shim: %v", err)
	}
	if got := strings.TrimSpace(out.Stdout); got != "-O2 -std=c++2a it's.cpp" {
		t.Errorf("shim forwarded %q", got)
	}
}

func TestShimScript_Quoting(t *testing.T) {
	script := shimScript("/opt/my tools/g++", map[string]string{"-O*": "-O0"})
	if !strings.Contains(script, `-O\*) arg=-O0 ;;`) {
		t.Errorf("glob in pattern not escaped:\n%s", script)
	}
	if !strings.Contains(script, `exec '/opt/my tools/g++' "$@"`) {
		t.Errorf("target with a space not quoted:\n%s", script)
	}
}

func TestShimScript_Deterministic(t *testing.T) {
	replace := map[string]string{"-b": "-y", "-a": "-x"}
	first := shimScript("/usr/bin/g++", replace)
	for i := 0; i < 10; i++ {
		if got := shimScript("/usr/bin/g++", replace); got != first {
			t.Fatal("shim script differs between runs")
		}
	}
	if strings.Index(first, "-a) arg=-x") > strings.Index(first, "-b) arg=-y") {
		t.Error("replacements are not sorted")
	}
}
