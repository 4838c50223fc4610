package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papercraft-labs/pcrelease/internal/branding"
)

// Platform identifies one target platform/architecture pair.
type Platform string

// Supported platforms.
const (
	LinuxX86_64 Platform = "linux-x86_64"
	Win32       Platform = "win32"
	Win64       Platform = "win64"
	MacOS       Platform = "macos"
)

// ErrUnknownPlatform is returned for platform ids outside the supported set.
var ErrUnknownPlatform = errors.New("unknown platform")

type platformInfo struct {
	suffix string
	ext    string
	goos   string
}

var platforms = map[Platform]platformInfo{
	LinuxX86_64: {suffix: "x86_64", ext: "AppImage", goos: "linux"},
	Win32:       {suffix: "win32", ext: "zip", goos: "windows"},
	Win64:       {suffix: "win64", ext: "exe", goos: "windows"},
	MacOS:       {suffix: "MacOS", ext: "dmg", goos: "darwin"},
}

// AllPlatforms returns every supported platform in publish order.
func AllPlatforms() []Platform {
	return []Platform{LinuxX86_64, Win32, Win64, MacOS}
}

// ParsePlatform validates a platform id.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := platforms[p]; !ok {
		return "", fmt.Errorf("%w %q: supported platforms are %s", ErrUnknownPlatform, s, strings.Join(platformNames(), ", "))
	}
	return p, nil
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	_, ok := platforms[p]
	return ok
}

// Suffix returns the artifact name suffix, e.g. "win64" or "MacOS".
func (p Platform) Suffix() string { return platforms[p].suffix }

// Ext returns the artifact file extension without the dot.
func (p Platform) Ext() string { return platforms[p].ext }

// IsWindows reports whether executables for p carry an .exe suffix.
func (p Platform) IsWindows() bool { return platforms[p].goos == "windows" }

// ExecutableName returns the file name of the raw build output for binary.
func (p Platform) ExecutableName(binary string) string {
	if p.IsWindows() {
		return binary + ".exe"
	}
	return binary
}

// ArtifactName returns the published file name for platform p and tag:
// <AppName>-<tag>-<suffix>.<ext>.
func ArtifactName(tag Tag, p Platform) string {
	return fmt.Sprintf("%s-%s-%s.%s", branding.AppName(), tag, p.Suffix(), p.Ext())
}

// ArtifactGlob returns the pattern matching every artifact of a release.
func ArtifactGlob(tag Tag) string {
	return fmt.Sprintf("%s-%s-*", branding.AppName(), tag)
}

func platformNames() []string {
	var names []string
	for _, p := range AllPlatforms() {
		names = append(names, string(p))
	}
	return names
}
