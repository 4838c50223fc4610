package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/papercraft-labs/pcrelease/internal/publish"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/papercraft-labs/pcrelease/internal/store"
	"go.uber.org/zap"
)

// State is an Aggregator state.
type State int

const (
	Waiting State = iota
	Collecting
	Publishing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Collecting:
		return "collecting"
	case Publishing:
		return "publishing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Aggregator joins every PlatformJob of a release and publishes their
// artifacts in one call. It moves Waiting → Collecting → Publishing → Done,
// or to Failed when a platform is missing, nothing succeeded, publishing
// failed or the run was cancelled.
type Aggregator struct {
	manifest  *release.Manifest
	store     store.Store
	publisher publish.Publisher
	// collectDir receives artifacts fetched from the store.
	collectDir string
	logger     *zap.Logger

	mu          sync.Mutex
	state       State
	transitions []State
	// OnTransition, when set, observes every state change.
	OnTransition func(State)
}

// NewAggregator creates an Aggregator in the Waiting state.
func NewAggregator(m *release.Manifest, st store.Store, pub publish.Publisher, collectDir string, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		manifest:    m,
		store:       st,
		publisher:   pub,
		collectDir:  collectDir,
		logger:      logger.With(zap.String("tag", m.Tag.String())),
		state:       Waiting,
		transitions: []State{Waiting},
	}
}

// State returns the current state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Transitions returns every state entered so far, in order.
func (a *Aggregator) Transitions() []State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.transitions)
}

func (a *Aggregator) enter(s State) {
	a.mu.Lock()
	a.state = s
	a.transitions = append(a.transitions, s)
	hook := a.OnTransition
	a.mu.Unlock()
	a.logger.Debug("aggregator state", zap.Stringer("state", s))
	if hook != nil {
		hook(s)
	}
}

// Run waits for one result per expected platform, collects the artifacts of
// the successful ones and publishes them. It is the barrier of the pipeline:
// nothing is published before every expected platform has reported.
func (a *Aggregator) Run(ctx context.Context, results <-chan JobResult) *Summary {
	sum := a.await(results)

	if err := ctx.Err(); err != nil {
		sum.Cancelled = true
		a.logger.Warn("release cancelled; nothing published", zap.Error(err))
		a.enter(Failed)
		return sum
	}

	a.enter(Collecting)
	assets := a.collect(ctx, sum)
	if len(assets) == 0 {
		a.logger.Error("no platform produced an artifact; nothing published")
		a.enter(Failed)
		return sum
	}
	a.warnUnexpected(ctx)

	a.enter(Publishing)
	res, err := a.publisher.Publish(ctx, publish.Release{
		Tag:        a.manifest.Tag,
		Prerelease: true,
		Notes:      releaseNotes(sum),
		Assets:     assets,
	})
	if err != nil {
		sum.PublishErr = &PublishError{Tag: a.manifest.Tag, Err: err}
		a.logger.Error("publish failed", zap.Error(err))
		a.enter(Failed)
		return sum
	}
	sum.Published = true
	sum.URL = res.URL
	for i := range sum.Platforms {
		if sum.Platforms[i].Status == StatusSucceeded {
			sum.Platforms[i].Published = true
		}
	}
	a.logger.Info("release published", zap.String("url", res.URL), zap.Int("assets", len(assets)))

	if sum.Succeeded() == a.manifest.Len() {
		a.enter(Done)
	} else {
		a.enter(Failed)
	}
	return sum
}

// await blocks until every expected platform reported or results is closed.
// Platforms that never reported count as failed.
func (a *Aggregator) await(results <-chan JobResult) *Summary {
	byPlatform := make(map[release.Platform]JobResult, a.manifest.Len())
	for len(byPlatform) < a.manifest.Len() {
		r, ok := <-results
		if !ok {
			break
		}
		if _, expected := a.manifest.Name(r.Platform); !expected {
			a.logger.Warn("ignoring result for unexpected platform", zap.String("platform", string(r.Platform)))
			continue
		}
		byPlatform[r.Platform] = r
		a.logger.Info("platform reported",
			zap.String("platform", string(r.Platform)),
			zap.String("status", string(r.Status)),
			zap.Int("reported", len(byPlatform)),
			zap.Int("expected", a.manifest.Len()))
	}

	sum := &Summary{Tag: a.manifest.Tag}
	for _, p := range a.manifest.Platforms() {
		name, _ := a.manifest.Name(p)
		r, ok := byPlatform[p]
		if !ok {
			r = JobResult{Platform: p, Status: StatusFailed, Stage: StageCollect, Err: errors.New("job never reported")}
		}
		sum.Platforms = append(sum.Platforms, PlatformSummary{
			Platform: p,
			Name:     name,
			Status:   r.Status,
			Stage:    r.Stage,
			Err:      r.Err,
			Size:     r.Size,
		})
	}
	return sum
}

// collect fetches every successful platform's artifact. A missing artifact
// demotes its platform to failed.
func (a *Aggregator) collect(ctx context.Context, sum *Summary) []publish.Asset {
	var assets []publish.Asset
	for i := range sum.Platforms {
		ps := &sum.Platforms[i]
		if ps.Status != StatusSucceeded {
			continue
		}
		path, size, err := a.fetch(ctx, ps.Name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = &ArtifactNotFoundError{Platform: ps.Platform, Name: ps.Name, Err: err}
			}
			ps.Status = StatusFailed
			ps.Stage = StageCollect
			ps.Err = err
			a.logger.Error("artifact missing from store", zap.String("platform", string(ps.Platform)), zap.Error(err))
			continue
		}
		ps.Size = size
		assets = append(assets, publish.Asset{Name: ps.Name, Path: path, Size: size})
	}
	return assets
}

func (a *Aggregator) fetch(ctx context.Context, name string) (string, int64, error) {
	rc, err := a.store.Get(ctx, name)
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	if err := os.MkdirAll(a.collectDir, 0755); err != nil {
		return "", 0, err
	}
	path := filepath.Join(a.collectDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("fetching %s: %w", name, err)
	}
	return path, n, nil
}

// warnUnexpected logs store entries of this release that no job produced,
// left over from an earlier run with a different platform set.
func (a *Aggregator) warnUnexpected(ctx context.Context) {
	names, err := a.store.List(ctx, release.ArtifactGlob(a.manifest.Tag))
	if err != nil {
		a.logger.Debug("listing store", zap.Error(err))
		return
	}
	expected := a.manifest.Names()
	for _, n := range names {
		if !slices.Contains(expected, n) {
			a.logger.Warn("store holds an artifact outside this release; not publishing it", zap.String("name", n))
		}
	}
}

func releaseNotes(sum *Summary) string {
	var missing []string
	for _, ps := range sum.Platforms {
		if ps.Status != StatusSucceeded {
			missing = append(missing, string(ps.Platform))
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return "Missing platforms: " + strings.Join(missing, ", ")
}
