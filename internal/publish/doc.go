// Package publish attaches a collected artifact set to an external release
// record. The GitHub publisher talks to the releases API; the directory
// publisher is a dry-run target that writes the same set to local disk.
package publish
