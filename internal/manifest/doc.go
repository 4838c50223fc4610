// Package manifest handles parsing and validation of pipeline manifests.
// A pipeline manifest describes the released application (binary name,
// icons, desktop metadata) and one job per platform: target triple, build
// command, environment overrides, toolchain tools and packaging recipe.
// Manifests are validated against the embedded JSON Schema before use.
package manifest
