package phifit

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"gopkg.in/yaml.v3"

	"github.com/viant/phifit/runtime/orchestrator"
	"github.com/viant/phifit/service/kernel/em"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from JSON, YAML, environment variables, etc. The zero-value is
// useful – all nested fields inherit their package defaults.
type Config struct {
	Processor    ProcessorConfig     `json:"processor" yaml:"processor"`
	Orchestrator orchestrator.Config `json:"orchestrator" yaml:"orchestrator"`
	Kernel       em.Config           `json:"kernel" yaml:"kernel"`
}

type ProcessorConfig struct {
	WorkerCount int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns a Config populated with the same defaults the
// package constructors apply. Callers may modify the returned struct before
// passing it to New via WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Processor: ProcessorConfig{
			WorkerCount: 4,
		},
		Orchestrator: orchestrator.DefaultConfig(),
		Kernel:       em.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Processor.WorkerCount <= 0 {
		return fmt.Errorf("processor.workers must be > 0")
	}
	if c.Orchestrator.PwtName == c.Orchestrator.NwtName {
		return fmt.Errorf("orchestrator.pwt and orchestrator.nwt must differ")
	}
	return nil
}

// LoadConfig reads a YAML configuration from the given storage URL (file,
// embed, s3, gs, ...). Fields omitted in the document keep their defaults.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", URL, err)
	}
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
