package release

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
)

// Tag is the immutable release identifier. It is used verbatim in artifact
// names and as the publish target.
type Tag string

// ParseTag validates a release tag. Any non-empty string without whitespace
// or path separators is accepted; semver is not required.
func ParseTag(s string) (Tag, error) {
	if s == "" {
		return "", fmt.Errorf("release tag is required")
	}
	if strings.ContainsAny(s, `/\`) {
		return "", fmt.Errorf("release tag %q must not contain path separators", s)
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", fmt.Errorf("release tag %q must not contain whitespace", s)
		}
	}
	if s == "." || s == ".." {
		return "", fmt.Errorf("release tag %q is not a valid name", s)
	}
	return Tag(s), nil
}

func (t Tag) String() string { return string(t) }

// Semver parses the tag as a semantic version, tolerating a leading "v".
// ok is false for tags that are not semver.
func (t Tag) Semver() (v *semver.Version, ok bool) {
	v, err := semver.NewVersion(strings.TrimPrefix(string(t), "v"))
	if err != nil {
		return nil, false
	}
	return v, true
}

// HasPrereleaseComponent reports whether the tag is semver with a
// pre-release component, e.g. "v1.2.0-rc.1".
func (t Tag) HasPrereleaseComponent() bool {
	v, ok := t.Semver()
	return ok && v.Prerelease() != ""
}
