// Package release defines release identity: the release tag, the supported
// platforms and the deterministic artifact names derived from both.
package release
