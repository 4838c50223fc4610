package pipeline

import (
	"fmt"

	"github.com/papercraft-labs/pcrelease/internal/release"
)

// Stage names the step a PlatformJob or the Aggregator failed in.
type Stage string

const (
	StageProvision Stage = "provision"
	StageBuild     Stage = "build"
	StagePackage   Stage = "package"
	StageUpload    Stage = "upload"
	StageCollect   Stage = "collect"
	StagePublish   Stage = "publish"
)

// ProvisioningError reports a toolchain that could not be made available.
type ProvisioningError struct {
	Platform release.Platform
	Err      error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s: provisioning toolchain: %v", e.Platform, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// BuildError reports a failed native build.
type BuildError struct {
	Platform release.Platform
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: build failed: %v", e.Platform, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// PackagingError reports a failed packaging step. No artifact was kept.
type PackagingError struct {
	Platform release.Platform
	Err      error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("%s: packaging failed: %v", e.Platform, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// UploadError reports an artifact that could not be put into the store.
type UploadError struct {
	Platform release.Platform
	Name     string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: uploading %s: %v", e.Platform, e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ArtifactNotFoundError reports an expected artifact missing from the store
// at collection time. The platform is left out of the release.
type ArtifactNotFoundError struct {
	Platform release.Platform
	Name     string
	Err      error
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("%s: artifact %s not found: %v", e.Platform, e.Name, e.Err)
}

func (e *ArtifactNotFoundError) Unwrap() error { return e.Err }

// PublishError reports that the release system rejected the publish. It is
// fatal to the whole run.
type PublishError struct {
	Tag release.Tag
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing %s: %v", e.Tag, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
