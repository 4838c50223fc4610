// Package toolchain provisions the per-platform tool directory a job builds
// and packages with. Tools are downloaded (and optionally verified and
// extracted), generated as argument-rewriting shims, or required from the
// host. The result is an explicit Toolchain value whose environment puts
// the tool directory first on PATH; the process environment is never touched.
package toolchain
