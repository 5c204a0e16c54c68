package smooth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viant/phifit/model/phi"
)

func TestRegularizer_Apply(t *testing.T) {
	r := New("")
	assert.Equal(t, "smooth", r.Name())

	nwt := phi.NewMatrix("nwt", []string{"t0", "t1"}, []string{"alpha", "beta"})
	delta, err := r.Apply(nil, nwt, 0.5)
	assert.NoError(t, err)
	for i := 0; i < delta.TokenCount(); i++ {
		for j := 0; j < delta.TopicCount(); j++ {
			assert.Equal(t, 0.5, delta.At(i, j))
		}
	}
}

func TestRegularizer_Sparsing(t *testing.T) {
	r := New("sparse")
	nwt := phi.NewMatrix("nwt", []string{"t0"}, []string{"alpha", "beta"})
	_ = nwt.Increment("alpha", []float64{3})
	_ = nwt.Increment("beta", []float64{1})

	delta, err := r.Apply(nil, nwt, -2)
	assert.NoError(t, err)

	// the weak token is pushed below zero and vanishes after normalisation
	pwt := phi.Normalize("pwt", nwt, delta)
	assert.InDelta(t, 1.0, pwt.At(0, 0), 1e-9)
	assert.Equal(t, 0.0, pwt.At(1, 0))
}
