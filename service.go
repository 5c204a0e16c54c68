package phifit

import (
	"github.com/viant/afs/storage"

	"github.com/viant/phifit/model/types"
	"github.com/viant/phifit/runtime/orchestrator"
	dbatch "github.com/viant/phifit/service/dao/batch"
	"github.com/viant/phifit/service/kernel/em"
	"github.com/viant/phifit/service/messaging"
	mmemory "github.com/viant/phifit/service/messaging/memory"
	"github.com/viant/phifit/service/processor"
	"github.com/viant/phifit/service/registry"
	"github.com/viant/phifit/service/scores"
)

// Service is the engine façade: it assembles the model registry, the batch
// service, the worker pool and the fitting orchestrator into one runtime.
type Service struct {
	runtime *Runtime

	config         *Config
	registry       *registry.Service
	batchService   *dbatch.Service
	queue          messaging.Queue[processor.Task]
	kernel         types.Kernel
	scorePlugins   []types.Score
	regularizers   []types.RegularizerSpec
	tracker        *scores.Tracker
	batchBaseURL   string
	batchFsOptions []storage.Option
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	if err := s.config.Validate(); err != nil {
		return err
	}
	var err error
	s.runtime.processor, err = processor.New(
		processor.WithRegistry(s.registry),
		processor.WithBatchSource(s.batchService),
		processor.WithKernel(s.kernel),
		processor.WithScorePlugins(s.scorePlugins...),
		processor.WithQueue(s.queue),
		processor.WithWorkers(s.config.Processor.WorkerCount))
	if err != nil {
		return err
	}
	s.runtime.orchestrator, err = orchestrator.New(
		orchestrator.WithConfig(s.config.Orchestrator),
		orchestrator.WithRegistry(s.registry),
		orchestrator.WithProcessor(s.runtime.processor),
		orchestrator.WithBatchKeys(s.batchService),
		orchestrator.WithTracker(s.tracker),
		orchestrator.WithRegularizers(s.regularizers...))
	if err != nil {
		return err
	}
	s.runtime.registry = s.registry
	s.runtime.batchService = s.batchService
	s.runtime.modelNames = s.config.Orchestrator
	return nil
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	defaults := orchestrator.DefaultConfig()
	if s.config.Orchestrator.PwtName == "" {
		s.config.Orchestrator.PwtName = defaults.PwtName
	}
	if s.config.Orchestrator.NwtName == "" {
		s.config.Orchestrator.NwtName = defaults.NwtName
	}
	if s.config.Orchestrator.RwtName == "" {
		s.config.Orchestrator.RwtName = defaults.RwtName
	}
	if s.config.Orchestrator.PollInterval <= 0 {
		s.config.Orchestrator.PollInterval = defaults.PollInterval
	}
	if s.config.Processor.WorkerCount == 0 {
		s.config.Processor.WorkerCount = DefaultConfig().Processor.WorkerCount
	}
	if s.registry == nil {
		s.registry = registry.New()
	}
	if s.batchService == nil {
		var opts []dbatch.Option
		if s.batchBaseURL != "" {
			opts = append(opts, dbatch.WithBaseURL(s.batchBaseURL))
		}
		if len(s.batchFsOptions) > 0 {
			opts = append(opts, dbatch.WithFsOptions(s.batchFsOptions...))
		}
		s.batchService = dbatch.New(opts...)
	}
	if s.queue == nil {
		s.queue = mmemory.NewQueue[processor.Task](mmemory.DefaultConfig())
	}
	if s.kernel == nil {
		s.kernel = em.New(s.config.Kernel)
	}
	if s.tracker == nil {
		s.tracker = scores.NewTracker()
	}
}

// Runtime returns the fitting runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// New creates the engine service. Collaborators not supplied through options
// get in-memory defaults, so phifit.New() alone yields a working engine.
func New(options ...Option) (*Service, error) {
	ret := &Service{runtime: &Runtime{}}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
