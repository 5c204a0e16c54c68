package phifit

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/viant/phifit/model/batch"
	"github.com/viant/phifit/model/phi"
	"github.com/viant/phifit/runtime/orchestrator"
	"github.com/viant/phifit/service/cache"
	dbatch "github.com/viant/phifit/service/dao/batch"
	"github.com/viant/phifit/service/processor"
	"github.com/viant/phifit/service/registry"
	"github.com/viant/phifit/service/scores"
)

// Runtime represents the fitting engine runtime: the surface callers drive a
// fit through once the façade is assembled.
type Runtime struct {
	registry     *registry.Service
	batchService *dbatch.Service
	processor    *processor.Service
	orchestrator *orchestrator.Service
	modelNames   orchestrator.Config
}

// Start launches the worker pool. Workers keep draining the task queue until
// Shutdown is called.
func (r *Runtime) Start(ctx context.Context) error {
	return r.processor.Start(ctx)
}

// Shutdown stops the workers and waits for them to exit.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.processor.Shutdown()
	return nil
}

// InitializeModel publishes the initial probability snapshot for the given
// vocabularies. Values are derived deterministically from the seed and each
// token's name, so two engines initialised with the same inputs start from
// the same model regardless of token order or prior registry state.
func (r *Runtime) InitializeModel(ctx context.Context, topics, tokens []string, seed int64) error {
	if len(topics) == 0 {
		return fmt.Errorf("initialize requires at least one topic")
	}
	if len(tokens) == 0 {
		return fmt.Errorf("initialize requires at least one token")
	}
	counts := phi.NewMatrix(r.modelNames.NwtName, topics, tokens)
	for _, token := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		rnd := rand.New(rand.NewSource(seed + int64(h.Sum64())))
		row := make([]float64, len(topics))
		for t := range row {
			row[t] = rnd.Float64()
		}
		if err := counts.Increment(token, row); err != nil {
			return err
		}
	}
	r.registry.Replace(r.modelNames.PwtName, phi.Normalize(r.modelNames.PwtName, counts, nil))
	return nil
}

// OverwriteTopicModel publishes an externally built snapshot as the current
// model, replacing whatever fit output was there before.
func (r *Runtime) OverwriteTopicModel(m *phi.Matrix) error {
	if m == nil {
		return fmt.Errorf("model is nil")
	}
	r.registry.Replace(r.modelNames.PwtName, m.Clone(r.modelNames.PwtName))
	return nil
}

// TopicModel exports a point-in-time copy of the current probability
// snapshot. The copy is detached: later fits never mutate it.
func (r *Runtime) TopicModel() (*phi.Matrix, error) {
	m, err := r.registry.Get(r.modelNames.PwtName)
	if err != nil {
		return nil, err
	}
	return m.Clone(m.Name()), nil
}

// Models returns the names of all published model slots.
func (r *Runtime) Models() []string {
	return r.registry.Names()
}

// DisposeModel removes a published slot; unknown names are a no-op.
func (r *Runtime) DisposeModel(name string) {
	r.registry.Dispose(name)
}

// ImportBatches registers batches in memory so fits can reference them by id.
// An offline fit with no explicit refs runs over every imported batch.
func (r *Runtime) ImportBatches(ctx context.Context, batches ...*batch.Batch) error {
	return r.batchService.Import(ctx, batches...)
}

// DisposeBatch removes an imported batch; unknown ids are a no-op.
func (r *Runtime) DisposeBatch(ctx context.Context, id string) {
	r.batchService.Dispose(ctx, id)
}

// BatchIDs returns the ids of all imported batches.
func (r *Runtime) BatchIDs() []string {
	return r.batchService.Keys()
}

// FitOffline runs synchronous full passes over the batch list.
func (r *Runtime) FitOffline(ctx context.Context, args orchestrator.OfflineArgs) error {
	return r.orchestrator.FitOffline(ctx, args)
}

// FitOnline runs incremental updates over batch groups; args.Async pipelines
// consecutive groups.
func (r *Runtime) FitOnline(ctx context.Context, args orchestrator.OnlineArgs) error {
	return r.orchestrator.FitOnline(ctx, args)
}

// Scores returns the score history of the most recent fit in append order.
func (r *Runtime) Scores() []scores.Record {
	return r.orchestrator.Tracker().List()
}

// ScoreHistory returns the trajectory of a single score across the most
// recent fit.
func (r *Runtime) ScoreHistory(name string) []scores.Record {
	return r.orchestrator.Tracker().ListByName(name)
}

// ClearScores drops the recorded score history.
func (r *Runtime) ClearScores() {
	r.orchestrator.Tracker().Clear()
}

// Theta returns the cached per-document topic rows of one batch from the
// last theta-caching fit, or nil when nothing was cached for it.
func (r *Runtime) Theta(ctx context.Context, batchID string) (*cache.Entry, error) {
	c := r.orchestrator.Cache()
	if c == nil {
		return nil, nil
	}
	return c.Get(ctx, batchID)
}

// Thetas returns every cached theta entry of the last theta-caching fit.
func (r *Runtime) Thetas(ctx context.Context) ([]*cache.Entry, error) {
	c := r.orchestrator.Cache()
	if c == nil {
		return nil, nil
	}
	return c.List(ctx)
}
