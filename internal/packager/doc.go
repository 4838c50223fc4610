// Package packager turns a raw executable into the distributable of its
// platform: an AppImage on Linux, a zip or bare executable on Windows and a
// disk image on macOS. A packager either leaves exactly one artifact named
// <App>-<tag>-<suffix>.<ext> in the output directory or nothing at all.
package packager
