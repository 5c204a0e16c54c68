package registry

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/viant/phifit/model/phi"
	"github.com/viant/phifit/model/types"
)

// Source names a merge input together with its weight.
type Source struct {
	Name   string
	Weight float64
}

// Service is the versioned model registry: a mapping from name to a
// published matrix snapshot. Publication is a whole-snapshot swap under the
// registry lock, so a reader either sees the previous snapshot or the new
// one, never a partial matrix. Matrix contents are intentionally not locked
// here; round accumulators synchronise themselves.
type Service struct {
	mu     sync.RWMutex
	models map[string]*phi.Matrix
}

// New creates an empty registry.
func New() *Service {
	return &Service{models: make(map[string]*phi.Matrix)}
}

// Create allocates a zero-initialised accumulator slot. It fails when the
// name is already taken.
func (s *Service) Create(name string, topics, tokens []string) (*phi.Matrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[name]; ok {
		return nil, fmt.Errorf("%w: %v", ErrAlreadyExists, name)
	}
	m := phi.NewMatrix(name, topics, tokens)
	s.models[name] = m
	return m, nil
}

// ReplaceLike publishes a zero-initialised slot shaped after an existing
// snapshot, overwriting whatever was resolvable under name. Round targets go
// through here so a leftover accumulator from an earlier fit never blocks a
// new one.
func (s *Service) ReplaceLike(name, source string) (*phi.Matrix, error) {
	src, err := s.Get(source)
	if err != nil {
		return nil, err
	}
	m := phi.NewLike(name, src)
	s.Replace(name, m)
	return m, nil
}

// Get returns the snapshot published under name.
func (s *Service) Get(name string) (*phi.Matrix, error) {
	s.mu.RLock()
	m, ok := s.models[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, name)
	}
	return m, nil
}

// Lookup returns the snapshot published under name or nil. Used by
// best-effort paths that tolerate missing sources.
func (s *Service) Lookup(name string) *phi.Matrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models[name]
}

// Replace atomically swaps the snapshot resolvable under name, creating the
// slot when absent.
func (s *Service) Replace(name string, m *phi.Matrix) {
	s.mu.Lock()
	s.models[name] = m
	s.mu.Unlock()
}

// Dispose removes the slot. Disposing an unknown name is a no-op so that
// pipelined cleanup paths never fail.
func (s *Service) Dispose(name string) {
	s.mu.Lock()
	delete(s.models, name)
	s.mu.Unlock()
}

// Names returns the published model names, sorted.
func (s *Service) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Size returns the number of published slots.
func (s *Service) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}

// Merge computes a weighted linear combination of the named sources and
// publishes it at target. Sources that do not resolve are skipped with a
// warning; the merge fails only when none resolve.
func (s *Service) Merge(target string, sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("%w: no sources named for target %v", ErrNoMergeSource, target)
	}
	var resolved []phi.Weighted
	var missing []string
	for _, source := range sources {
		m := s.Lookup(source.Name)
		if m == nil {
			missing = append(missing, source.Name)
			log.Printf("registry: merge into %v skips missing source %v", target, source.Name)
			continue
		}
		resolved = append(resolved, phi.Weighted{Matrix: m, Weight: source.Weight})
	}
	if len(resolved) == 0 {
		return fmt.Errorf("%w: none of [%v] resolved for target %v",
			ErrNoMergeSource, strings.Join(missing, ", "), target)
	}
	s.Replace(target, phi.Merge(target, resolved))
	return nil
}

// Regularize runs the regularizer chain against the named pwt and nwt
// snapshots and publishes the accumulated correction at target. Later
// regularizers observe the corrections of earlier ones through the effective
// counts they are handed.
func (s *Service) Regularize(target, pwtSource, nwtSource string, specs []types.RegularizerSpec) error {
	pwt, err := s.Get(pwtSource)
	if err != nil {
		return types.NewStageError("regularize", err)
	}
	nwt, err := s.Get(nwtSource)
	if err != nil {
		return types.NewStageError("regularize", err)
	}

	correction := phi.NewLike(target, nwt)
	effective := nwt
	for _, spec := range specs {
		delta, err := spec.Regularizer.Apply(pwt, effective, spec.Tau)
		if err != nil {
			return types.NewStageError(fmt.Sprintf("regularizer %v", spec.Regularizer.Name()), err)
		}
		if delta == nil {
			continue
		}
		correction.Accumulate(delta, 1.0)
		// fold the accumulated correction into what the next regularizer sees
		next := nwt.Clone(nwtSource)
		next.Accumulate(correction, 1.0)
		effective = next
	}
	s.Replace(target, correction)
	return nil
}

// Normalize publishes at target the probability matrix derived from the
// named raw counts, optionally corrected by rwtSource (empty name means no
// correction).
func (s *Service) Normalize(target, nwtSource, rwtSource string) error {
	nwt, err := s.Get(nwtSource)
	if err != nil {
		return types.NewStageError("normalize", err)
	}
	var rwt *phi.Matrix
	if rwtSource != "" {
		if rwt, err = s.Get(rwtSource); err != nil {
			return types.NewStageError("normalize", err)
		}
	}
	s.Replace(target, phi.Normalize(target, nwt, rwt))
	return nil
}
