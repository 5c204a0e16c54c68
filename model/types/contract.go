package types

import (
	"context"

	"github.com/viant/phifit/model/batch"
	"github.com/viant/phifit/model/phi"
)

// Result carries everything a kernel derives from one (snapshot, batch)
// pair: the partial count contribution, optional per-document topic rows and
// optional raw score contributions.
type Result struct {
	// Delta holds the partial n_wt contribution to accumulate into the round
	// target. Never nil on success.
	Delta *phi.Matrix

	// Theta maps document id to its topic distribution; populated only when
	// the caller requested theta caching.
	Theta map[string][]float64

	// Values holds raw additive score contributions keyed by score name.
	Values map[string]float64
}

// Kernel turns one batch and one model snapshot into sufficient statistics.
// Implementations must be pure functions of their inputs: workers invoke the
// kernel concurrently and out of order.
type Kernel interface {
	Compute(ctx context.Context, source *phi.Matrix, b *batch.Batch, weight float64) (*Result, error)
}

// Regularizer produces an additive correction from a probability snapshot and
// raw counts. The nwt passed to an invocation already includes the corrections
// of regularizers applied earlier in the chain, so order matters.
type Regularizer interface {
	Name() string
	Apply(pwt, nwt *phi.Matrix, tau float64) (*phi.Matrix, error)
}

// RegularizerSpec binds a regularizer to its tau coefficient for one fit.
type RegularizerSpec struct {
	Regularizer Regularizer
	Tau         float64
}

// Score computes one score value from a task result. Implementations are
// read-only over their inputs; values from all tasks of a round are summed.
type Score interface {
	Name() string
	Compute(ctx context.Context, pwt *phi.Matrix, b *batch.Batch, result *Result) (float64, error)
}

// BatchSource resolves a batch reference to an immutable in-memory batch.
type BatchSource interface {
	Resolve(ctx context.Context, ref batch.Ref) (*batch.Batch, error)
}
