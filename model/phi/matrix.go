package phi

import (
	"fmt"
	"sync"
)

// Matrix is a named dense (token x topic) weight matrix. A matrix plays two
// roles across the fitting pipeline: a published snapshot, which is treated
// as read-only by every consumer, and a round accumulator, which workers
// increment concurrently while a round is in flight. Accumulation is guarded
// by the matrix own mutex so intra-round updates are safe regardless of the
// order workers finish in.
type Matrix struct {
	name   string
	topics []string
	tokens []string
	index  map[string]int

	mu   sync.Mutex
	rows [][]float64
}

// NewMatrix creates a zero-initialised matrix for the given token and topic
// vocabularies.
func NewMatrix(name string, topics, tokens []string) *Matrix {
	m := &Matrix{
		name:   name,
		topics: append([]string(nil), topics...),
		tokens: append([]string(nil), tokens...),
		index:  make(map[string]int, len(tokens)),
		rows:   make([][]float64, len(tokens)),
	}
	for i, token := range m.tokens {
		m.index[token] = i
		m.rows[i] = make([]float64, len(topics))
	}
	return m
}

// NewLike creates a zero-initialised matrix with the shape of an existing one.
func NewLike(name string, other *Matrix) *Matrix {
	return NewMatrix(name, other.topics, other.tokens)
}

// Name returns the registry name this matrix was created under.
func (m *Matrix) Name() string { return m.name }

// Topics returns the topic names.
func (m *Matrix) Topics() []string { return m.topics }

// Tokens returns the token vocabulary in row order.
func (m *Matrix) Tokens() []string { return m.tokens }

// TopicCount returns the number of topics (columns).
func (m *Matrix) TopicCount() int { return len(m.topics) }

// TokenCount returns the number of tokens (rows).
func (m *Matrix) TokenCount() int { return len(m.tokens) }

// TokenIndex returns the row index of token, or -1 when the token is not part
// of the vocabulary.
func (m *Matrix) TokenIndex(token string) int {
	if idx, ok := m.index[token]; ok {
		return idx
	}
	return -1
}

// At returns the weight at (token row, topic column).
func (m *Matrix) At(row, col int) float64 {
	return m.rows[row][col]
}

// Row returns a copy of the weights for the given token row.
func (m *Matrix) Row(row int) []float64 {
	return append([]float64(nil), m.rows[row]...)
}

// Increment adds delta to the token row. It is safe to call from multiple
// goroutines; addition is commutative so the result does not depend on
// worker completion order.
func (m *Matrix) Increment(token string, delta []float64) error {
	idx := m.TokenIndex(token)
	if idx == -1 {
		return fmt.Errorf("token %q not present in matrix %v", token, m.name)
	}
	if len(delta) != len(m.topics) {
		return fmt.Errorf("matrix %v: delta size %d does not match topic count %d", m.name, len(delta), len(m.topics))
	}
	m.mu.Lock()
	row := m.rows[idx]
	for i, v := range delta {
		row[i] += v
	}
	m.mu.Unlock()
	return nil
}

// Accumulate adds weight*other into the receiver, matching rows by token.
// Tokens absent from the receiver vocabulary are skipped.
func (m *Matrix) Accumulate(other *Matrix, weight float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, token := range other.tokens {
		idx, ok := m.index[token]
		if !ok {
			continue
		}
		row := m.rows[idx]
		src := other.rows[i]
		for j := range row {
			if j < len(src) {
				row[j] += weight * src[j]
			}
		}
	}
}

// Clone returns a deep copy published under a new name.
func (m *Matrix) Clone(name string) *Matrix {
	out := NewMatrix(name, m.topics, m.tokens)
	m.mu.Lock()
	for i, row := range m.rows {
		copy(out.rows[i], row)
	}
	m.mu.Unlock()
	return out
}
