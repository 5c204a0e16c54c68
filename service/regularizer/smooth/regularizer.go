// Package smooth provides the uniform smoothing/sparsing regularizer: a
// constant tau added to every count, smoothing the model for tau > 0 and
// sparsing it for tau < 0 (negative corrections are clipped during
// normalisation).
package smooth

import (
	"github.com/viant/phifit/model/phi"
	"github.com/viant/phifit/model/types"
)

// Regularizer applies a flat correction over the whole matrix.
type Regularizer struct {
	name string
}

// New creates a smoothing regularizer.
func New(name string) *Regularizer {
	if name == "" {
		name = "smooth"
	}
	return &Regularizer{name: name}
}

// Name returns the regularizer name.
func (r *Regularizer) Name() string { return r.name }

// Apply returns a correction matrix with tau in every cell of nwt's shape.
func (r *Regularizer) Apply(pwt, nwt *phi.Matrix, tau float64) (*phi.Matrix, error) {
	delta := phi.NewLike(r.name, nwt)
	uniform := make([]float64, nwt.TopicCount())
	for t := range uniform {
		uniform[t] = tau
	}
	for _, token := range nwt.Tokens() {
		if err := delta.Increment(token, uniform); err != nil {
			return nil, err
		}
	}
	return delta, nil
}

// ensure Regularizer implements the contract
var _ types.Regularizer = (*Regularizer)(nil)
