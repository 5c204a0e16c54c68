package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager(t *testing.T) {
	ctx := context.Background()
	m := New()

	err := m.Put(ctx, &Entry{BatchID: "b1", Theta: map[string][]float64{"doc1": {0.7, 0.3}}})
	assert.NoError(t, err)
	err = m.Put(ctx, &Entry{BatchID: "b2", Theta: map[string][]float64{"doc2": {0.5, 0.5}}})
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Size())

	entry, err := m.Get(ctx, "b1")
	assert.NoError(t, err)
	assert.Equal(t, []float64{0.7, 0.3}, entry.Theta["doc1"])

	missing, err := m.Get(ctx, "b3")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	// overwrite replaces the previous entry
	err = m.Put(ctx, &Entry{BatchID: "b1", Theta: map[string][]float64{"doc1": {0.1, 0.9}}})
	assert.NoError(t, err)
	entry, _ = m.Get(ctx, "b1")
	assert.Equal(t, []float64{0.1, 0.9}, entry.Theta["doc1"])

	all, err := m.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	m.Clear()
	assert.Equal(t, 0, m.Size())
}
