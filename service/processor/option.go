package processor

import (
	"github.com/viant/phifit/model/types"
	"github.com/viant/phifit/service/messaging"
	"github.com/viant/phifit/service/registry"
)

// Option customises the processor service.
type Option func(*Service)

// WithRegistry sets the model registry.
func WithRegistry(reg *registry.Service) Option {
	return func(s *Service) {
		s.registry = reg
	}
}

// WithBatchSource sets the batch resolver.
func WithBatchSource(source types.BatchSource) Option {
	return func(s *Service) {
		s.batches = source
	}
}

// WithKernel sets the numerical kernel invoked per task.
func WithKernel(kernel types.Kernel) Option {
	return func(s *Service) {
		s.kernel = kernel
	}
}

// WithScorePlugins registers score plug-ins applied to every task result.
func WithScorePlugins(plugins ...types.Score) Option {
	return func(s *Service) {
		s.plugins = append(s.plugins, plugins...)
	}
}

// WithQueue sets the task queue implementation.
func WithQueue(queue messaging.Queue[Task]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithConfig sets the configuration for the service.
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
