package scores

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/viant/phifit/internal/clock"
)

func TestManager_Add(t *testing.T) {
	m := NewManager()
	m.Add("loglikelihood", -10)
	m.Add("loglikelihood", -5)
	m.Add("perplexity", 3)

	assert.Equal(t, -15.0, m.Value("loglikelihood"))
	assert.Equal(t, 0.0, m.Value("missing"))

	snapshot := m.Snapshot()
	assert.Len(t, snapshot, 2)
	assert.Equal(t, -15.0, snapshot["loglikelihood"])

	m.Clear()
	assert.Empty(t, m.Snapshot())
}

func TestManager_ConcurrentAdd(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Add("loglikelihood", 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 40.0, m.Value("loglikelihood"))
}

func TestTracker(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	tr := NewTracker()
	tr.Append("loglikelihood", -20, 0)
	tr.Append("loglikelihood", -15, 1)
	tr.Append("perplexity", 4, 1)

	assert.Equal(t, 3, tr.Size())
	history := tr.ListByName("loglikelihood")
	assert.Len(t, history, 2)
	assert.Equal(t, -20.0, history[0].Value)
	assert.Equal(t, -15.0, history[1].Value)
	assert.Equal(t, 1, history[1].Group)
	assert.Equal(t, now, history[0].At)

	all := tr.List()
	assert.Len(t, all, 3)

	tr.Clear()
	assert.Equal(t, 0, tr.Size())
}
