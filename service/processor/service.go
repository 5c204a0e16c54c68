package processor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/viant/phifit/model/types"
	"github.com/viant/phifit/service/cache"
	"github.com/viant/phifit/service/messaging"
	"github.com/viant/phifit/service/registry"
	"github.com/viant/phifit/tracing"
)

// Config represents processor service configuration.
type Config struct {
	// WorkerCount is the number of workers processing tasks. Fixed at
	// pool-creation time.
	WorkerCount int
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() Config {
	return Config{
		WorkerCount: 4,
	}
}

// Service runs the fixed worker pool that drains the task queue. Each worker
// resolves the task's source snapshot, invokes the numerical kernel,
// accumulates the partial result into the task's target slot and notifies
// the task's round.
type Service struct {
	config   Config
	registry *registry.Service
	batches  types.BatchSource
	kernel   types.Kernel
	plugins  []types.Score
	queue    messaging.Queue[Task]

	workers    []*worker
	workerWg   sync.WaitGroup
	shutdownMu sync.Mutex
	shutdown   bool
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a new processor service.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.kernel == nil {
		return nil, fmt.Errorf("kernel is required")
	}
	if s.queue == nil {
		return nil, fmt.Errorf("task queue is required")
	}
	if s.registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if s.batches == nil {
		return nil, fmt.Errorf("batch source is required")
	}
	if s.config.WorkerCount <= 0 {
		return nil, types.NewConfigurationError("processor worker count must be > 0")
	}
	return s, nil
}

// WorkerCount returns the fixed pool size.
func (s *Service) WorkerCount() int {
	return s.config.WorkerCount
}

// Submit enqueues a task. The caller must have registered the task id with
// its round beforehand.
func (s *Service) Submit(ctx context.Context, task *Task) error {
	return s.queue.Publish(ctx, task)
}

// Start launches the worker goroutines.
func (s *Service) Start(ctx context.Context) error {
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		worker := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.workers = append(s.workers, worker)
		s.workerWg.Add(1)
		go worker.run()
	}
	return nil
}

// Shutdown stops the workers and waits for them to exit. Queued tasks that
// were not yet picked up remain queued.
func (s *Service) Shutdown() {
	s.shutdownMu.Lock()
	if s.shutdown {
		s.shutdownMu.Unlock()
		return
	}
	s.shutdown = true
	s.shutdownMu.Unlock()
	for _, w := range s.workers {
		w.cancelFn()
	}
	s.workerWg.Wait()
}

// run is the worker loop: dequeue, process, notify, repeat.
func (w *worker) run() {
	defer w.service.workerWg.Done()
	for {
		task, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			// Cancelled or past its deadline, either way the worker is done.
			if w.ctx.Err() != nil {
				return
			}
			// Transient queue error; back off a bit.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if task == nil {
			continue
		}
		if pErr := w.service.processTask(w.ctx, task); pErr != nil {
			log.Printf("processor: worker %d failed task %v (batch %v): %v", w.id, task.ID, task.Ref.Key(), pErr)
		}
	}
}

// processTask executes a single task. A failure is recorded on the round so
// the round can still close; it never crashes the worker.
func (s *Service) processTask(ctx context.Context, task *Task) (err error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("processor.processTask %s", task.Ref.Key()), "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"task.id": task.ID, "model.source": task.SourceModel})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kernel panicked: %v", r)
		}
		if task.Round != nil {
			task.Round.MarkDone(task.ID, err)
		}
	}()

	source, err := s.registry.Get(task.SourceModel)
	if err != nil {
		return err
	}
	target, err := s.registry.Get(task.TargetModel)
	if err != nil {
		return err
	}
	b, err := s.batches.Resolve(ctx, task.Ref)
	if err != nil {
		return fmt.Errorf("failed to resolve batch %v: %w", task.Ref.Key(), err)
	}

	result, err := s.kernel.Compute(ctx, source, b, task.Weight)
	if err != nil {
		return fmt.Errorf("kernel failed on batch %v: %w", b.ID, err)
	}
	if result == nil || result.Delta == nil {
		return fmt.Errorf("kernel returned no contribution for batch %v", b.ID)
	}

	target.Accumulate(result.Delta, 1.0)

	if task.Scores != nil {
		for name, value := range result.Values {
			task.Scores.Add(name, value)
		}
		for _, plugin := range s.plugins {
			value, sErr := plugin.Compute(ctx, source, b, result)
			if sErr != nil {
				log.Printf("processor: score %v failed on batch %v: %v", plugin.Name(), b.ID, sErr)
				continue
			}
			task.Scores.Add(plugin.Name(), value)
		}
	}
	if task.Cache != nil && len(result.Theta) > 0 {
		if cErr := task.Cache.Put(ctx, &cache.Entry{BatchID: b.ID, Theta: result.Theta}); cErr != nil {
			log.Printf("processor: failed to cache theta for batch %v: %v", b.ID, cErr)
		}
	}
	return nil
}
