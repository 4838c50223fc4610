package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercraft-labs/pcrelease/internal/builder"
	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/papercraft-labs/pcrelease/internal/packager"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/runner"
	"github.com/papercraft-labs/pcrelease/internal/store"
	"github.com/papercraft-labs/pcrelease/internal/toolchain"
	"go.uber.org/zap"
)

// PlatformJob is one platform's provision, build, package and upload chain.
type PlatformJob struct {
	Platform release.Platform
	Tag      release.Tag
	// ArtifactName is derived from Tag and Platform.
	ArtifactName string
	Spec         manifest.Job
	App          manifest.App
}

// Plan returns the jobs for platforms, in publish order, and the release
// manifest naming their artifacts. An empty platforms slice selects every
// supported platform.
func Plan(p *manifest.Pipeline, tag release.Tag, platforms []release.Platform) ([]PlatformJob, *release.Manifest, error) {
	if len(platforms) == 0 {
		platforms = release.AllPlatforms()
	}
	m := release.NewManifest(tag, platforms)

	jobs := make([]PlatformJob, 0, m.Len())
	for _, pl := range m.Platforms() {
		spec, ok := p.Job(string(pl))
		if !ok {
			return nil, nil, fmt.Errorf("pipeline declares no job for %s", pl)
		}
		name, _ := m.Name(pl)
		jobs = append(jobs, PlatformJob{
			Platform:     pl,
			Tag:          tag,
			ArtifactName: name,
			Spec:         *spec,
			App:          p.App,
		})
	}
	return jobs, m, nil
}

// Status is the terminal state of a PlatformJob.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// JobResult is what a PlatformJob reports to the Aggregator.
type JobResult struct {
	Platform release.Platform
	Name     string
	Status   Status
	// Stage and Err are set unless Status is StatusSucceeded.
	Stage    Stage
	Err      error
	Size     int64
	Duration time.Duration
}

// Provisioner prepares a job's toolchain.
type Provisioner interface {
	Provision(ctx context.Context, platform release.Platform, tools []manifest.Tool) (*toolchain.Toolchain, error)
}

// Builder runs a job's native build.
type Builder interface {
	Build(ctx context.Context, req builder.Request) (string, error)
}

// Executor runs PlatformJobs. Jobs share nothing mutable except the store;
// each gets its own directory under Workspace.
type Executor struct {
	Provisioner Provisioner
	Builder     Builder
	// Runner drives the packaging tools.
	Runner    runner.Runner
	Store     store.Store
	Workspace string
	SourceDir string
	Logger    *zap.Logger
}

// RunJob runs job to completion and reports its result. It never returns
// early because a sibling failed; only ctx stops it.
func (e *Executor) RunJob(ctx context.Context, job PlatformJob) JobResult {
	start := time.Now()
	log := e.logger().With(zap.String("platform", string(job.Platform)))
	res := JobResult{Platform: job.Platform, Name: job.ArtifactName}

	size, stage, err := e.run(ctx, job, log)
	res.Duration = time.Since(start)
	switch {
	case err == nil:
		res.Status = StatusSucceeded
		res.Size = size
		log.Info("job succeeded", zap.String("artifact", job.ArtifactName), zap.Duration("duration", res.Duration))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		res.Status = StatusCancelled
		res.Stage = stage
		res.Err = err
		log.Warn("job cancelled", zap.String("stage", string(stage)))
	default:
		res.Status = StatusFailed
		res.Stage = stage
		res.Err = err
		log.Error("job failed", zap.String("stage", string(stage)), zap.Error(err))
	}
	return res
}

func (e *Executor) run(ctx context.Context, job PlatformJob, log *zap.Logger) (int64, Stage, error) {
	if !job.Platform.Valid() {
		return 0, StageProvision, &ProvisioningError{Platform: job.Platform, Err: release.ErrUnknownPlatform}
	}
	jobDir := filepath.Join(e.Workspace, "jobs", job.Tag.String(), string(job.Platform))
	workDir := filepath.Join(jobDir, "work")
	outDir := filepath.Join(jobDir, "out")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return 0, StageProvision, &ProvisioningError{Platform: job.Platform, Err: err}
	}

	log.Info("provisioning toolchain", zap.Int("tools", len(job.Spec.Tools)))
	tc, err := e.Provisioner.Provision(ctx, job.Platform, job.Spec.Tools)
	if err != nil {
		return 0, StageProvision, &ProvisioningError{Platform: job.Platform, Err: err}
	}

	exe, err := e.Builder.Build(ctx, builder.Request{
		Platform:  job.Platform,
		Target:    job.Spec.Target,
		Binary:    job.App.Binary,
		SourceDir: e.SourceDir,
		WorkDir:   workDir,
		Spec:      job.Spec.Build,
		Env:       job.Spec.Env,
		Toolchain: tc,
	})
	if err != nil {
		return 0, StageBuild, &BuildError{Platform: job.Platform, Err: err}
	}

	pkg, err := packager.New(job.Platform, job.Spec.Package, e.Runner, log)
	if err != nil {
		return 0, StagePackage, &PackagingError{Platform: job.Platform, Err: err}
	}
	pkgTC := *tc
	pkgTC.Env = runner.Merge(tc.Env, job.Spec.Env)
	artifact, err := pkg.Package(ctx, packager.Input{
		Executable: exe,
		Tag:        job.Tag,
		App:        job.App,
		SourceDir:  e.SourceDir,
		WorkDir:    workDir,
		OutputDir:  outDir,
		Toolchain:  &pkgTC,
	})
	if err != nil {
		return 0, StagePackage, &PackagingError{Platform: job.Platform, Err: err}
	}
	if filepath.Base(artifact) != job.ArtifactName {
		err := fmt.Errorf("packager produced %s, expected %s", filepath.Base(artifact), job.ArtifactName)
		return 0, StagePackage, &PackagingError{Platform: job.Platform, Err: err}
	}

	size, err := e.upload(ctx, job, artifact)
	if err != nil {
		return 0, StageUpload, &UploadError{Platform: job.Platform, Name: job.ArtifactName, Err: err}
	}
	return size, "", nil
}

func (e *Executor) upload(ctx context.Context, job PlatformJob, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := e.Store.Put(ctx, job.ArtifactName, f); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
