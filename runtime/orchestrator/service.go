package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/viant/phifit/internal/idgen"
	"github.com/viant/phifit/model/batch"
	"github.com/viant/phifit/model/types"
	"github.com/viant/phifit/runtime/round"
	"github.com/viant/phifit/service/cache"
	"github.com/viant/phifit/service/processor"
	"github.com/viant/phifit/service/registry"
	"github.com/viant/phifit/service/scores"
	"github.com/viant/phifit/tracing"
)

const (
	defaultDecayWeight = 0.9
	defaultApplyWeight = 0.1
)

// Config represents orchestrator configuration: the caller-agreed model
// names and the completion poll interval.
type Config struct {
	PwtName      string        `json:"pwt" yaml:"pwt"`
	NwtName      string        `json:"nwt" yaml:"nwt"`
	RwtName      string        `json:"rwt" yaml:"rwt"`
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		PwtName:      "pwt",
		NwtName:      "nwt",
		RwtName:      "rwt",
		PollInterval: round.DefaultPollInterval,
	}
}

// BatchKeys lists registered batch ids; the offline algorithm falls back to
// all of them when a request names no batches.
type BatchKeys interface {
	Keys() []string
}

// Service drives the fitting algorithms. It is the only component that
// creates and disposes registry slots: every slot allocated during a fit is
// either left behind as the caller-agreed output or disposed before the call
// returns, including on early termination.
type Service struct {
	config       Config
	registry     *registry.Service
	processor    *processor.Service
	batches      BatchKeys
	tracker      *scores.Tracker
	cache        *cache.Manager
	regularizers []types.RegularizerSpec
	rounds       *round.Store

	generation int
}

// New creates a new orchestrator service.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		rounds: round.NewStore(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if s.processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if s.tracker == nil {
		s.tracker = scores.NewTracker()
	}
	if s.batches == nil {
		return nil, fmt.Errorf("batch service is required")
	}
	return s, nil
}

// Tracker exposes the score history recorded across fits.
func (s *Service) Tracker() *scores.Tracker { return s.tracker }

// Rounds exposes in-flight rounds; used by tests and introspection.
func (s *Service) Rounds() *round.Store { return s.rounds }

// Cache exposes the theta cache populated by the last theta-caching fit, or
// nil when no such fit ran.
func (s *Service) Cache() *cache.Manager { return s.cache }

// FitOffline runs a fixed number of synchronous full passes over the batch
// list: process into nwt, regularize, normalize back into pwt, record
// scores. No pass starts before the previous pass's normalize completes.
func (s *Service) FitOffline(ctx context.Context, args OfflineArgs) (err error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.FitOffline", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if args, err = s.normalizeOffline(args); err != nil {
		return err
	}
	pwt, nwt := s.config.PwtName, s.config.NwtName
	s.tracker.Clear()
	defer s.registry.Dispose(s.config.RwtName)

	for pass := 0; pass < args.Passes; pass++ {
		log.Printf("orchestrator: offline pass %d/%d", pass+1, args.Passes)
		sm := scores.NewManager()
		if err = s.processRound(ctx, pwt, nwt, args.Refs, args.Weights, sm, s.thetaSink(args.CacheTheta)); err != nil {
			return err
		}
		if err = s.regularize(ctx, pwt, nwt); err != nil {
			return err
		}
		if err = s.normalize(ctx, pwt, nwt); err != nil {
			return err
		}
		s.storeScores(sm, pass)
	}
	return nil
}

// FitOnline runs incremental updates over batch groups, synchronously or
// pipelined depending on args.Async.
func (s *Service) FitOnline(ctx context.Context, args OnlineArgs) (err error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.FitOnline", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if args, err = s.normalizeOnline(args); err != nil {
		return err
	}
	s.tracker.Clear()
	defer s.registry.Dispose(s.config.RwtName)

	if args.Async {
		return s.fitOnlineAsync(ctx, args)
	}
	return s.fitOnlineSync(ctx, args)
}

// fitOnlineSync maintains one persistent nwt accumulator across groups. For
// each group it processes a fresh nwt_hat, folds it into nwt with the
// group's decay/apply weights, then regularizes and normalizes exactly as
// offline.
func (s *Service) fitOnlineSync(ctx context.Context, args OnlineArgs) error {
	pwt, nwt := s.config.PwtName, s.config.NwtName
	hatIdx := newNameIndex(nwt + "_hat_")

	for k, group := range args.Groups {
		log.Printf("orchestrator: online group %d/%d", k+1, len(args.Groups))
		sm := scores.NewManager()
		hat := hatIdx.String()
		if err := s.processRound(ctx, pwt, hat, group.Refs, group.Weights, sm, s.thetaSink(args.CacheTheta)); err != nil {
			s.registry.Dispose(hat)
			return err
		}
		if err := s.merge(nwt, group.DecayWeight, hat, group.ApplyWeight); err != nil {
			s.registry.Dispose(hat)
			return err
		}
		s.registry.Dispose(hat)
		if err := s.regularize(ctx, pwt, nwt); err != nil {
			return err
		}
		if err := s.normalize(ctx, pwt, nwt); err != nil {
			return err
		}
		s.storeScores(sm, k)
		hatIdx.inc()
	}
	return nil
}

// asyncOp is one in-flight pipelined round together with the bookkeeping
// needed to consume it.
type asyncOp struct {
	round *round.Round
	sm    *scores.Manager
	hat   string
	decay float64
	apply float64
	group int
}

// fitOnlineAsync applies the same update semantics as fitOnlineSync but
// submits round k+1 before waiting on round k, so kernel work overlaps the
// merge/regularize/normalize bookkeeping. Every in-flight round targets its
// own generation-indexed nwt_hat slot and reads its own generation-indexed
// pwt slot; the trailing slots left over when the loop ends are drained and
// disposed explicitly.
func (s *Service) fitOnlineAsync(ctx context.Context, args OnlineArgs) error {
	pwt, nwt := s.config.PwtName, s.config.NwtName
	pwtActive := pwt
	pwtIdx := newNameIndex(pwt + "_")
	hatIdx := newNameIndex(nwt + "_hat_")
	cursor := 0

	submit := func(source string) (*asyncOp, error) {
		group := args.Groups[cursor]
		sm := scores.NewManager()
		r, err := s.submitRound(ctx, source, hatIdx.String(), group.Refs, group.Weights, sm, nil)
		op := &asyncOp{
			round: r,
			sm:    sm,
			hat:   hatIdx.String(),
			decay: group.DecayWeight,
			apply: group.ApplyWeight,
			group: cursor,
		}
		cursor++
		return op, err
	}

	// cleanup releases every slot an aborted pipeline may still hold: the
	// in-flight rounds' hat slots and the two generation pwt slots that can
	// be live mid-iteration.
	cleanup := func(ops ...*asyncOp) {
		s.drain(ctx, ops...)
		s.registry.Dispose(pwtIdx.offset(-1).String())
		s.registry.Dispose(pwtIdx.String())
	}

	op, err := submit(pwtActive)
	if err != nil {
		s.drain(ctx, op)
		return err
	}

	for {
		isLast := cursor >= len(args.Groups)
		pwtIdx.inc()
		hatIdx.inc()

		prev := op
		op = nil
		if !isLast {
			if op, err = submit(pwtActive); err != nil {
				cleanup(prev, op)
				return err
			}
		}

		if err = prev.round.Wait(ctx); err != nil {
			cleanup(prev, op)
			return err
		}
		s.rounds.Delete(prev.round.ID)
		if rErr := prev.round.Err(); rErr != nil {
			s.registry.Dispose(prev.hat)
			cleanup(op)
			return types.NewStageError("process", rErr)
		}

		if err = s.merge(nwt, prev.decay, prev.hat, prev.apply); err != nil {
			s.registry.Dispose(prev.hat)
			cleanup(op)
			return err
		}
		s.registry.Dispose(prev.hat)

		if err = s.regularize(ctx, pwtActive, nwt); err != nil {
			cleanup(op)
			return err
		}
		if isLast {
			pwtActive = pwt
		} else {
			pwtActive = pwtIdx.offset(1).String()
		}
		if err = s.normalize(ctx, pwtActive, nwt); err != nil {
			cleanup(op)
			return err
		}
		s.storeScores(prev.sm, prev.group)

		s.registry.Dispose(pwtIdx.offset(-1).String())
		if isLast {
			s.registry.Dispose(pwtIdx.String())
			return nil
		}
	}
}

// drain waits out in-flight rounds and disposes their target slots.
// Cleanup is best effort: a round always runs to completion once submitted,
// so its slot cannot be removed before the round closes.
func (s *Service) drain(ctx context.Context, ops ...*asyncOp) {
	for _, op := range ops {
		if op == nil || op.round == nil {
			continue
		}
		_ = op.round.Wait(ctx)
		s.rounds.Delete(op.round.ID)
		s.registry.Dispose(op.hat)
	}
}

// processRound is the synchronous primitive every algorithm is built from:
// submit one round and wait until it closes, surfacing a degraded round as a
// fit-level failure.
func (s *Service) processRound(ctx context.Context, source, target string, refs []batch.Ref, weights []float64, sm *scores.Manager, cm *cache.Manager) error {
	r, err := s.submitRound(ctx, source, target, refs, weights, sm, cm)
	if err != nil {
		return err
	}
	if err := r.Wait(ctx); err != nil {
		return err
	}
	s.rounds.Delete(r.ID)
	if err := r.Err(); err != nil {
		return types.NewStageError("process", err)
	}
	return nil
}

// submitRound publishes a fresh zero accumulator at the round's target slot,
// registers every task id and enqueues the tasks. Registration happens
// strictly before a task becomes visible to workers, so a worker can never
// report completion of a task the round has not heard of.
func (s *Service) submitRound(ctx context.Context, source, target string, refs []batch.Ref, weights []float64, sm *scores.Manager, cm *cache.Manager) (*round.Round, error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("orchestrator.processRound %s -> %s", source, target), "PRODUCER")
	var err error
	defer tracing.EndSpan(span, err)

	if _, err = s.registry.ReplaceLike(target, source); err != nil {
		return nil, types.NewStageError("process", err)
	}
	gen := s.generation
	s.generation++
	r := round.New(fmt.Sprintf("%v/%d", target, gen), gen).WithPollInterval(s.config.PollInterval)
	s.rounds.Add(r)
	span.WithAttributes(map[string]string{"round.id": r.ID, "round.tasks": fmt.Sprintf("%d", len(refs))})

	for i, ref := range refs {
		weight := 1.0
		if i < len(weights) {
			weight = weights[i]
		}
		task := &processor.Task{
			ID:          idgen.New(),
			SourceModel: source,
			TargetModel: target,
			Ref:         ref,
			Weight:      weight,
			Round:       r,
			Scores:      sm,
			Cache:       cm,
		}
		r.Add(task.ID)
		if err = s.processor.Submit(ctx, task); err != nil {
			r.MarkDone(task.ID, err)
			return r, types.NewStageError("process", err)
		}
	}
	return r, nil
}

func (s *Service) merge(nwt string, decay float64, hat string, apply float64) error {
	if err := s.registry.Merge(nwt, []registry.Source{
		{Name: nwt, Weight: decay},
		{Name: hat, Weight: apply},
	}); err != nil {
		return types.NewStageError("merge", err)
	}
	return nil
}

func (s *Service) regularize(ctx context.Context, pwtName, nwtName string) (err error) {
	if len(s.regularizers) == 0 {
		return nil
	}
	_, span := tracing.StartSpan(ctx, fmt.Sprintf("orchestrator.regularize %s", nwtName), "INTERNAL")
	defer tracing.EndSpan(span, err)
	return s.registry.Regularize(s.config.RwtName, pwtName, nwtName, s.regularizers)
}

func (s *Service) normalize(ctx context.Context, pwtTarget, nwtName string) (err error) {
	_, span := tracing.StartSpan(ctx, fmt.Sprintf("orchestrator.normalize %s -> %s", nwtName, pwtTarget), "INTERNAL")
	defer tracing.EndSpan(span, err)
	rwt := ""
	if len(s.regularizers) > 0 {
		rwt = s.config.RwtName
	}
	return s.registry.Normalize(pwtTarget, nwtName, rwt)
}

// storeScores flushes one record per score into the fit history.
func (s *Service) storeScores(sm *scores.Manager, group int) {
	snapshot := sm.Snapshot()
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	// deterministic record order per group
	sort.Strings(names)
	for _, name := range names {
		s.tracker.Append(name, snapshot[name], group)
	}
}

// thetaSink returns the cache manager when theta caching was requested.
func (s *Service) thetaSink(requested bool) *cache.Manager {
	if !requested {
		return nil
	}
	if s.cache == nil {
		s.cache = cache.New()
	}
	s.cache.Clear()
	return s.cache
}
