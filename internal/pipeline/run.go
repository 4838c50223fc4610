package pipeline

import (
	"context"
	"fmt"

	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/store"
	"golang.org/x/sync/errgroup"
)

// Run executes every job in parallel and hands their results to agg. A job
// failure never cancels its siblings; cancelling ctx stops all of them.
func Run(ctx context.Context, exec *Executor, jobs []PlatformJob, agg *Aggregator) *Summary {
	results := make(chan JobResult, len(jobs))

	// A plain Group: errgroup.WithContext would cancel siblings on failure.
	var g errgroup.Group
	for _, job := range jobs {
		g.Go(func() error {
			results <- exec.RunJob(ctx, job)
			return nil
		})
	}
	go func() {
		g.Wait()
		close(results)
	}()

	return agg.Run(ctx, results)
}

// StoredResults derives job results from the store alone, for runs where
// the jobs executed elsewhere. A present artifact counts as a success.
func StoredResults(ctx context.Context, st store.Store, m *release.Manifest) (<-chan JobResult, error) {
	results := make(chan JobResult, m.Len())
	defer close(results)

	for _, p := range m.Platforms() {
		name, _ := m.Name(p)
		ok, err := st.Exists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", name, err)
		}
		if ok {
			results <- JobResult{Platform: p, Name: name, Status: StatusSucceeded}
			continue
		}
		results <- JobResult{
			Platform: p,
			Name:     name,
			Status:   StatusFailed,
			Stage:    StageCollect,
			Err:      &ArtifactNotFoundError{Platform: p, Name: name, Err: store.ErrNotFound},
		}
	}
	return results, nil
}
