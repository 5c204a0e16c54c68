package phifit

import (
	"github.com/viant/afs/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/viant/phifit/model/types"
	"github.com/viant/phifit/service/messaging"
	"github.com/viant/phifit/service/processor"
	"github.com/viant/phifit/service/registry"
	"github.com/viant/phifit/service/scores"
	"github.com/viant/phifit/tracing"
)

// Option customises the engine service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithRegistry sets the model registry.
func WithRegistry(reg *registry.Service) Option {
	return func(s *Service) {
		s.registry = reg
	}
}

// WithQueue sets the task queue.
func WithQueue(queue messaging.Queue[processor.Task]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithKernel sets the numerical kernel; defaults to the built-in EM kernel.
func WithKernel(kernel types.Kernel) Option {
	return func(s *Service) {
		s.kernel = kernel
	}
}

// WithWorkers sets the processor worker count.
func WithWorkers(count int) Option {
	return func(s *Service) {
		if s.config == nil {
			s.config = DefaultConfig()
		}
		s.config.Processor.WorkerCount = count
	}
}

// WithRegularizers sets the regularizer chain, in invocation order.
func WithRegularizers(specs ...types.RegularizerSpec) Option {
	return func(s *Service) {
		s.regularizers = append(s.regularizers, specs...)
	}
}

// WithScorePlugins registers score plug-ins evaluated per processed batch.
func WithScorePlugins(plugins ...types.Score) Option {
	return func(s *Service) {
		s.scorePlugins = append(s.scorePlugins, plugins...)
	}
}

// WithTracker sets the score history store.
func WithTracker(tracker *scores.Tracker) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

// WithBatchBaseURL sets the base URL relative batch locators resolve against.
func WithBatchBaseURL(url string) Option {
	return func(s *Service) {
		s.batchBaseURL = url
	}
}

// WithBatchFsOptions sets storage options passed to batch downloads (e.g. an
// embedded file system).
func WithBatchFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.batchFsOptions = options
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path. Safe to call multiple times – the first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter (OTLP, Jaeger, Zipkin). Safe to call multiple times – the
// first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
