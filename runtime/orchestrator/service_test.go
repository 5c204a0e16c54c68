package orchestrator_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/viant/phifit/model/batch"
	"github.com/viant/phifit/model/phi"
	"github.com/viant/phifit/model/types"
	"github.com/viant/phifit/runtime/orchestrator"
	dbatch "github.com/viant/phifit/service/dao/batch"
	"github.com/viant/phifit/service/kernel/em"
	mmemory "github.com/viant/phifit/service/messaging/memory"
	"github.com/viant/phifit/service/processor"
	"github.com/viant/phifit/service/registry"
	"github.com/viant/phifit/service/regularizer/smooth"
)

var (
	testTopics = []string{"t0", "t1"}
	testTokens = []string{"market", "trade", "match", "goal"}
)

// countKernel contributes each token's raw count to topic 0; deterministic
// regardless of worker scheduling.
type countKernel struct {
	failOn string
}

func (k *countKernel) Compute(ctx context.Context, source *phi.Matrix, b *batch.Batch, weight float64) (*types.Result, error) {
	if k.failOn == b.ID {
		return nil, fmt.Errorf("bad batch")
	}
	delta := phi.NewLike(b.ID+"/delta", source)
	theta := map[string][]float64{}
	for _, doc := range b.Documents {
		if doc.ID != "" {
			theta[doc.ID] = []float64{1, 0}
		}
		for _, entry := range doc.Entries {
			contribution := make([]float64, source.TopicCount())
			contribution[0] = weight * entry.Count
			if err := delta.Increment(entry.Token, contribution); err != nil {
				return nil, err
			}
		}
	}
	return &types.Result{Delta: delta, Theta: theta, Values: map[string]float64{"tokens": weight * b.TotalCount()}}, nil
}

type engine struct {
	registry     *registry.Service
	batches      *dbatch.Service
	processor    *processor.Service
	orchestrator *orchestrator.Service
}

func newEngine(t *testing.T, kernel types.Kernel, specs ...types.RegularizerSpec) (*engine, func()) {
	reg := registry.New()
	initial := phi.NewMatrix("counts", testTopics, testTokens)
	assert.NoError(t, initial.Increment("market", []float64{9, 1}))
	assert.NoError(t, initial.Increment("trade", []float64{9, 1}))
	assert.NoError(t, initial.Increment("match", []float64{1, 9}))
	assert.NoError(t, initial.Increment("goal", []float64{1, 9}))
	reg.Replace("pwt", phi.Normalize("pwt", initial, nil))

	batches := dbatch.New()
	proc, err := processor.New(
		processor.WithRegistry(reg),
		processor.WithBatchSource(batches),
		processor.WithKernel(kernel),
		processor.WithQueue(mmemory.NewQueue[processor.Task](mmemory.DefaultConfig())),
		processor.WithWorkers(2))
	assert.NoError(t, err)

	svc, err := orchestrator.New(
		orchestrator.WithConfig(orchestrator.Config{PollInterval: time.Millisecond}),
		orchestrator.WithRegistry(reg),
		orchestrator.WithProcessor(proc),
		orchestrator.WithBatchKeys(batches),
		orchestrator.WithRegularizers(specs...))
	assert.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, proc.Start(ctx))
	return &engine{registry: reg, batches: batches, processor: proc, orchestrator: svc}, proc.Shutdown
}

func testBatch(id string, tokens map[string]float64) *batch.Batch {
	doc := batch.Document{ID: id + "/doc"}
	for _, token := range testTokens {
		if count, ok := tokens[token]; ok {
			doc.Entries = append(doc.Entries, batch.Entry{Token: token, Count: count})
		}
	}
	return &batch.Batch{ID: id, Documents: []batch.Document{doc}}
}

func newsBatches() []*batch.Batch {
	return []*batch.Batch{
		testBatch("b1", map[string]float64{"market": 3, "trade": 2}),
		testBatch("b2", map[string]float64{"market": 1, "trade": 4}),
		testBatch("b3", map[string]float64{"match": 4, "goal": 2}),
		testBatch("b4", map[string]float64{"match": 1, "goal": 3, "trade": 1}),
	}
}

func assertNormalized(t *testing.T, m *phi.Matrix) {
	for j := 0; j < m.TopicCount(); j++ {
		var sum float64
		for i := 0; i < m.TokenCount(); i++ {
			sum += m.At(i, j)
		}
		assert.InDelta(t, 1.0, sum, 1e-6, "topic %d", j)
	}
}

func refs(batches []*batch.Batch) []batch.Ref {
	out := make([]batch.Ref, 0, len(batches))
	for _, b := range batches {
		out = append(out, batch.InlineRef(b))
	}
	return out
}

func TestService_FitOffline(t *testing.T) {
	e, shutdown := newEngine(t, em.New(em.DefaultConfig()))
	defer shutdown()
	ctx := context.Background()

	err := e.orchestrator.FitOffline(ctx, orchestrator.OfflineArgs{Refs: refs(newsBatches()), Passes: 3})
	assert.NoError(t, err)

	// one record per pass, in pass order
	history := e.orchestrator.Tracker().ListByName(em.ScoreLogLikelihood)
	assert.Len(t, history, 3)
	for i, record := range history {
		assert.Equal(t, i, record.Group)
	}
	// EM never degrades the likelihood
	assert.GreaterOrEqual(t, history[2].Value, history[0].Value-1e-9)

	pwt, err := e.registry.Get("pwt")
	assert.NoError(t, err)
	assertNormalized(t, pwt)

	// only the caller-agreed slots survive the fit
	assert.Equal(t, []string{"nwt", "pwt"}, e.registry.Names())
	assert.Equal(t, 0, e.orchestrator.Rounds().Size())
}

func TestService_FitOffline_Refit(t *testing.T) {
	e, shutdown := newEngine(t, em.New(em.DefaultConfig()))
	defer shutdown()
	ctx := context.Background()

	// the accumulator slot left behind by one fit never blocks the next
	err := e.orchestrator.FitOffline(ctx, orchestrator.OfflineArgs{Refs: refs(newsBatches()), Passes: 2})
	assert.NoError(t, err)
	err = e.orchestrator.FitOffline(ctx, orchestrator.OfflineArgs{Refs: refs(newsBatches()), Passes: 3})
	assert.NoError(t, err)

	// history belongs to the latest fit only
	assert.Len(t, e.orchestrator.Tracker().ListByName(em.ScoreLogLikelihood), 3)
	pwt, err := e.registry.Get("pwt")
	assert.NoError(t, err)
	assertNormalized(t, pwt)
	assert.Equal(t, []string{"nwt", "pwt"}, e.registry.Names())
}

func TestService_FitOffline_ImportedFallback(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{})
	defer shutdown()
	ctx := context.Background()

	assert.NoError(t, e.batches.Import(ctx, newsBatches()...))
	err := e.orchestrator.FitOffline(ctx, orchestrator.OfflineArgs{})
	assert.NoError(t, err)

	// all four imported batches processed in a single default pass
	nwt, err := e.registry.Get("nwt")
	assert.NoError(t, err)
	var total float64
	for i := 0; i < nwt.TokenCount(); i++ {
		total += nwt.At(i, 0)
	}
	assert.InDelta(t, 21.0, total, 1e-9)
	assert.Equal(t, 21.0, e.orchestrator.Tracker().ListByName("tokens")[0].Value)
}

func TestService_FitOffline_NoBatches(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{})
	defer shutdown()

	err := e.orchestrator.FitOffline(context.Background(), orchestrator.OfflineArgs{})
	assert.Error(t, err)
}

func TestService_FitOffline_Weights(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{})
	defer shutdown()
	ctx := context.Background()

	batches := newsBatches()[:2]
	err := e.orchestrator.FitOffline(ctx, orchestrator.OfflineArgs{
		Refs:    refs(batches),
		Weights: []float64{0.5}, // second batch keeps the default 1.0
	})
	assert.NoError(t, err)

	nwt, _ := e.registry.Get("nwt")
	var total float64
	for i := 0; i < nwt.TokenCount(); i++ {
		total += nwt.At(i, 0)
	}
	assert.InDelta(t, 0.5*5+5, total, 1e-9)
}

func TestService_FitOffline_CacheTheta(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{})
	defer shutdown()
	ctx := context.Background()

	err := e.orchestrator.FitOffline(ctx, orchestrator.OfflineArgs{Refs: refs(newsBatches()), CacheTheta: true})
	assert.NoError(t, err)

	cache := e.orchestrator.Cache()
	assert.NotNil(t, cache)
	assert.Equal(t, 4, cache.Size())
	entry, err := cache.Get(ctx, "b1")
	assert.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, entry.Theta["b1/doc"])
}

func TestService_FitOffline_Degraded(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{failOn: "b2"})
	defer shutdown()

	err := e.orchestrator.FitOffline(context.Background(), orchestrator.OfflineArgs{Refs: refs(newsBatches())})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "degraded")
	assert.Equal(t, 0, e.orchestrator.Rounds().Size())
}

func TestService_FitOnline_Sync(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{})
	defer shutdown()
	ctx := context.Background()

	b := newsBatches()
	err := e.orchestrator.FitOnline(ctx, orchestrator.OnlineArgs{
		Groups: []batch.Group{
			{Refs: refs(b[:2]), DecayWeight: 0.9, ApplyWeight: 0.1},
			{Refs: refs(b[2:]), DecayWeight: 0.8, ApplyWeight: 0.2},
		},
	})
	assert.NoError(t, err)

	// first group: no prior nwt, so nwt = 0.1 * hat0 = 0.1 * 10 tokens
	// second group: nwt = 0.8 * 1.0 + 0.2 * 11 tokens
	nwt, _ := e.registry.Get("nwt")
	var total float64
	for i := 0; i < nwt.TokenCount(); i++ {
		total += nwt.At(i, 0)
	}
	assert.InDelta(t, 0.8*1.0+0.2*11, total, 1e-9)

	// only topic 0 carries mass with this kernel
	pwt, _ := e.registry.Get("pwt")
	var sum float64
	for i := 0; i < pwt.TokenCount(); i++ {
		sum += pwt.At(i, 0)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, []string{"nwt", "pwt"}, e.registry.Names())
	assert.Len(t, e.orchestrator.Tracker().ListByName("tokens"), 2)
}

func TestService_FitOnline_DefaultWeights(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{})
	defer shutdown()

	b := newsBatches()
	err := e.orchestrator.FitOnline(context.Background(), orchestrator.OnlineArgs{
		Groups: []batch.Group{{Refs: refs(b[:2])}},
	})
	assert.NoError(t, err)

	nwt, _ := e.registry.Get("nwt")
	var total float64
	for i := 0; i < nwt.TokenCount(); i++ {
		total += nwt.At(i, 0)
	}
	// default apply weight 0.1 against an absent prior nwt
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestService_FitOnline_Async(t *testing.T) {
	e, shutdown := newEngine(t, em.New(em.DefaultConfig()))
	defer shutdown()
	ctx := context.Background()

	b := newsBatches()
	err := e.orchestrator.FitOnline(ctx, orchestrator.OnlineArgs{
		Groups: []batch.Group{
			{Refs: refs(b[:1]), DecayWeight: 0.9, ApplyWeight: 0.1},
			{Refs: refs(b[1:3]), DecayWeight: 0.9, ApplyWeight: 0.1},
			{Refs: refs(b[3:]), DecayWeight: 0.9, ApplyWeight: 0.1},
		},
		Async: true,
	})
	assert.NoError(t, err)

	pwt, err := e.registry.Get("pwt")
	assert.NoError(t, err)
	assertNormalized(t, pwt)

	// every generation slot disposed, every round consumed
	assert.Equal(t, []string{"nwt", "pwt"}, e.registry.Names())
	assert.Equal(t, 0, e.orchestrator.Rounds().Size())
	assert.Len(t, e.orchestrator.Tracker().ListByName(em.ScoreLogLikelihood), 3)
}

func TestService_FitOnline_AsyncSingleGroup(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{})
	defer shutdown()

	b := newsBatches()
	err := e.orchestrator.FitOnline(context.Background(), orchestrator.OnlineArgs{
		Groups: []batch.Group{{Refs: refs(b), DecayWeight: 0.9, ApplyWeight: 0.1}},
		Async:  true,
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"nwt", "pwt"}, e.registry.Names())
}

func TestService_FitOnline_AsyncDegraded(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{failOn: "b3"})
	defer shutdown()

	b := newsBatches()
	err := e.orchestrator.FitOnline(context.Background(), orchestrator.OnlineArgs{
		Groups: []batch.Group{
			{Refs: refs(b[:2]), DecayWeight: 0.9, ApplyWeight: 0.1},
			{Refs: refs(b[2:]), DecayWeight: 0.9, ApplyWeight: 0.1},
		},
		Async: true,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "degraded")
	assert.Equal(t, 0, e.orchestrator.Rounds().Size())
	// no generation slot outlives the failed fit
	assert.Equal(t, []string{"nwt", "pwt"}, e.registry.Names())
}

// flakyRegularizer fails on its n-th invocation.
type flakyRegularizer struct {
	calls  int
	failAt int
}

func (r *flakyRegularizer) Name() string { return "flaky" }

func (r *flakyRegularizer) Apply(pwt, nwt *phi.Matrix, tau float64) (*phi.Matrix, error) {
	r.calls++
	if r.calls == r.failAt {
		return nil, fmt.Errorf("regularizer blew up")
	}
	return phi.NewLike("flaky", nwt), nil
}

func TestService_FitOnline_AsyncRegularizerFailure(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{},
		types.RegularizerSpec{Regularizer: &flakyRegularizer{failAt: 2}, Tau: 0.1})
	defer shutdown()

	b := newsBatches()
	err := e.orchestrator.FitOnline(context.Background(), orchestrator.OnlineArgs{
		Groups: []batch.Group{
			{Refs: refs(b[:2]), DecayWeight: 0.9, ApplyWeight: 0.1},
			{Refs: refs(b[2:]), DecayWeight: 0.9, ApplyWeight: 0.1},
		},
		Async: true,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "regularizer")

	// the mid-pipeline failure releases every intermediate slot
	assert.Equal(t, []string{"nwt", "pwt"}, e.registry.Names())
	assert.Equal(t, 0, e.orchestrator.Rounds().Size())
}

func TestService_FitOnline_Validation(t *testing.T) {
	e, shutdown := newEngine(t, &countKernel{})
	defer shutdown()
	ctx := context.Background()

	err := e.orchestrator.FitOnline(ctx, orchestrator.OnlineArgs{})
	assert.Error(t, err)

	err = e.orchestrator.FitOnline(ctx, orchestrator.OnlineArgs{Groups: []batch.Group{{}}})
	assert.Error(t, err)

	// theta caching is rejected in async mode, not silently dropped
	err = e.orchestrator.FitOnline(ctx, orchestrator.OnlineArgs{
		Groups:     []batch.Group{{Refs: refs(newsBatches())}},
		Async:      true,
		CacheTheta: true,
	})
	assert.Error(t, err)
}

func TestService_Regularized(t *testing.T) {
	e, shutdown := newEngine(t, em.New(em.DefaultConfig()),
		types.RegularizerSpec{Regularizer: smooth.New(""), Tau: 0.5})
	defer shutdown()
	ctx := context.Background()

	err := e.orchestrator.FitOffline(ctx, orchestrator.OfflineArgs{Refs: refs(newsBatches()), Passes: 2})
	assert.NoError(t, err)

	pwt, _ := e.registry.Get("pwt")
	assertNormalized(t, pwt)
	// smoothing keeps every token alive
	for i := 0; i < pwt.TokenCount(); i++ {
		for j := 0; j < pwt.TopicCount(); j++ {
			assert.Greater(t, pwt.At(i, j), 0.0)
		}
	}
	// the rwt slot is disposed once the fit returns
	assert.Equal(t, []string{"nwt", "pwt"}, e.registry.Names())
}

func TestService_RequiredCollaborators(t *testing.T) {
	_, err := orchestrator.New()
	assert.Error(t, err)
}
