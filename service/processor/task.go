package processor

import (
	"github.com/viant/phifit/model/batch"
	"github.com/viant/phifit/runtime/round"
	"github.com/viant/phifit/service/cache"
	"github.com/viant/phifit/service/scores"
)

// Task is one unit of processing work: a single batch computed against a
// named source snapshot and accumulated into a named target slot. Tasks are
// created by the orchestrator, consumed exactly once by a single worker and
// never mutated after enqueue.
type Task struct {
	ID          string
	SourceModel string
	TargetModel string
	Ref         batch.Ref
	Weight      float64

	// Round is notified once the task's side effects are visible, whether
	// the task succeeded or not.
	Round *round.Round

	// Scores receives per-task score contributions; nil disables scoring.
	Scores *scores.Manager

	// Cache receives per-batch theta rows; nil disables theta caching.
	Cache *cache.Manager
}
