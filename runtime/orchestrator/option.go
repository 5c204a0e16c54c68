package orchestrator

import (
	"github.com/viant/phifit/model/types"
	"github.com/viant/phifit/service/cache"
	"github.com/viant/phifit/service/processor"
	"github.com/viant/phifit/service/registry"
	"github.com/viant/phifit/service/scores"
)

// Option customises the orchestrator service.
type Option func(*Service)

// WithRegistry sets the model registry.
func WithRegistry(reg *registry.Service) Option {
	return func(s *Service) {
		s.registry = reg
	}
}

// WithProcessor sets the worker pool tasks are submitted to.
func WithProcessor(proc *processor.Service) Option {
	return func(s *Service) {
		s.processor = proc
	}
}

// WithBatchKeys sets the registered-batch index used by the offline
// fallback.
func WithBatchKeys(keys BatchKeys) Option {
	return func(s *Service) {
		s.batches = keys
	}
}

// WithTracker sets the score history store.
func WithTracker(tracker *scores.Tracker) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

// WithCache sets the theta cache manager.
func WithCache(manager *cache.Manager) Option {
	return func(s *Service) {
		s.cache = manager
	}
}

// WithRegularizers sets the regularizer chain applied between rounds, in
// invocation order.
func WithRegularizers(specs ...types.RegularizerSpec) Option {
	return func(s *Service) {
		s.regularizers = append(s.regularizers, specs...)
	}
}

// WithConfig sets the configuration for the service.
func WithConfig(config Config) Option {
	return func(s *Service) {
		if config.PwtName == "" {
			config.PwtName = DefaultConfig().PwtName
		}
		if config.NwtName == "" {
			config.NwtName = DefaultConfig().NwtName
		}
		if config.RwtName == "" {
			config.RwtName = DefaultConfig().RwtName
		}
		if config.PollInterval <= 0 {
			config.PollInterval = DefaultConfig().PollInterval
		}
		s.config = config
	}
}
