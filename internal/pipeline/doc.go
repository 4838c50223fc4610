// Package pipeline runs one release: a PlatformJob per platform fans out in
// parallel, each doing provision, build, package and upload in sequence, and
// the Aggregator joins them, collects their artifacts from the store and
// publishes the successful set exactly once.
//
// Per-platform failures are isolated. A job that fails reports a typed error
// (ProvisioningError, BuildError, PackagingError, UploadError) and never
// cancels its siblings. The Aggregator publishes whatever succeeded as a
// pre-release and only aborts when nothing did.
package pipeline
