// Package runner executes external tools (compilers, packaging helpers) with
// an explicit environment and working directory. Nothing in this package
// reads or mutates the process environment on behalf of a command, so jobs
// running in parallel cannot observe each other's search paths.
package runner
