package em

import (
	"context"
	"math"

	"github.com/viant/phifit/model/batch"
	"github.com/viant/phifit/model/phi"
	"github.com/viant/phifit/model/types"
)

// ScoreLogLikelihood is the raw score the kernel contributes per task.
const ScoreLogLikelihood = "loglikelihood"

// Config represents kernel configuration.
type Config struct {
	// InnerIterations is the number of theta refinement sweeps per document.
	InnerIterations int `json:"innerIterations" yaml:"innerIterations"`
}

// DefaultConfig returns the default kernel configuration.
func DefaultConfig() Config {
	return Config{InnerIterations: 10}
}

// Service is the reference EM kernel: for one batch and one probability
// snapshot it infers per-document topic distributions and derives the
// partial count contribution. It keeps no state between invocations, so
// concurrent out-of-order execution across workers is safe.
type Service struct {
	config Config
}

// New creates a kernel with the supplied configuration.
func New(config Config) *Service {
	if config.InnerIterations <= 0 {
		config.InnerIterations = DefaultConfig().InnerIterations
	}
	return &Service{config: config}
}

// Compute derives sufficient statistics for one batch against one snapshot.
// Tokens absent from the snapshot vocabulary are skipped.
func (s *Service) Compute(ctx context.Context, source *phi.Matrix, b *batch.Batch, weight float64) (*types.Result, error) {
	topicCount := source.TopicCount()
	delta := phi.NewLike(b.ID+"/delta", source)
	theta := make(map[string][]float64, len(b.Documents))
	var logLikelihood float64

	for _, doc := range b.Documents {
		docTheta := s.inferTheta(source, doc, topicCount)
		if doc.ID != "" {
			theta[doc.ID] = docTheta
		}
		for _, entry := range doc.Entries {
			row := source.TokenIndex(entry.Token)
			if row == -1 {
				continue
			}
			probs, total := topicResponsibility(source, row, docTheta)
			if total <= 0 {
				continue
			}
			contribution := make([]float64, topicCount)
			for t := 0; t < topicCount; t++ {
				contribution[t] = weight * entry.Count * probs[t]
			}
			if err := delta.Increment(entry.Token, contribution); err != nil {
				return nil, err
			}
			logLikelihood += weight * entry.Count * math.Log(total)
		}
	}

	return &types.Result{
		Delta:  delta,
		Theta:  theta,
		Values: map[string]float64{ScoreLogLikelihood: logLikelihood},
	}, nil
}

// inferTheta refines a uniform topic distribution for one document with a
// fixed number of EM sweeps.
func (s *Service) inferTheta(source *phi.Matrix, doc batch.Document, topicCount int) []float64 {
	theta := make([]float64, topicCount)
	for t := range theta {
		theta[t] = 1.0 / float64(topicCount)
	}
	for iter := 0; iter < s.config.InnerIterations; iter++ {
		next := make([]float64, topicCount)
		var docTotal float64
		for _, entry := range doc.Entries {
			row := source.TokenIndex(entry.Token)
			if row == -1 {
				continue
			}
			probs, total := topicResponsibility(source, row, theta)
			if total <= 0 {
				continue
			}
			for t := 0; t < topicCount; t++ {
				next[t] += entry.Count * probs[t]
			}
			docTotal += entry.Count
		}
		if docTotal <= 0 {
			break
		}
		for t := range next {
			next[t] /= docTotal
		}
		theta = next
	}
	return theta
}

// topicResponsibility returns p(t|w,d) for one token row given the current
// theta, plus the unnormalised mass p(w|d).
func topicResponsibility(source *phi.Matrix, row int, theta []float64) ([]float64, float64) {
	probs := make([]float64, len(theta))
	var total float64
	for t := range theta {
		probs[t] = source.At(row, t) * theta[t]
		total += probs[t]
	}
	if total > 0 {
		for t := range probs {
			probs[t] /= total
		}
	}
	return probs, total
}

// ensure Service implements the kernel contract
var _ types.Kernel = (*Service)(nil)
