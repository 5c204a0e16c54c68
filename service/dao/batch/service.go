package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"

	mbatch "github.com/viant/phifit/model/batch"
	"github.com/viant/phifit/service/dao/store"
)

// Service resolves batch references. Inline batches pass through, registered
// batch ids are served from the in-memory store, and anything else is
// treated as a storage URL loaded through afs (file, embed, s3, gs, ...)
// and decoded from YAML/JSON.
type Service struct {
	fs        afs.Service
	baseURL   string
	fsOptions []storage.Option
	batches   *store.MemoryStore[string, mbatch.Batch]
}

// Option customises the batch service.
type Option func(*Service)

// WithBaseURL sets the base URL relative batch locators resolve against.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// WithFsOptions sets storage options passed to every afs download (e.g. an
// embedded file system).
func WithFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.fsOptions = options
	}
}

// New creates a batch service.
func New(opts ...Option) *Service {
	ret := &Service{
		fs:      afs.New(),
		batches: store.NewMemoryStore[string, mbatch.Batch](func(b *mbatch.Batch) string { return b.ID }),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Import registers batches in the in-memory store so later fits can
// reference them by id.
func (s *Service) Import(ctx context.Context, batches ...*mbatch.Batch) error {
	for _, b := range batches {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("failed to import batch: %w", err)
		}
		if err := s.batches.Save(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// Dispose removes a registered batch; unknown ids are a no-op.
func (s *Service) Dispose(ctx context.Context, id string) {
	_ = s.batches.Delete(ctx, id)
}

// Keys returns the ids of all registered batches.
func (s *Service) Keys() []string {
	return s.batches.Keys()
}

// Size returns the number of registered batches.
func (s *Service) Size() int {
	return s.batches.Size()
}

// Resolve materialises a batch reference into an immutable in-memory batch.
func (s *Service) Resolve(ctx context.Context, ref mbatch.Ref) (*mbatch.Batch, error) {
	if ref.Inline != nil {
		if err := ref.Inline.Validate(); err != nil {
			return nil, err
		}
		return ref.Inline, nil
	}
	if ref.URL == "" {
		return nil, fmt.Errorf("batch reference is empty")
	}
	if b, _ := s.batches.Load(ctx, ref.URL); b != nil {
		return b, nil
	}
	return s.load(ctx, ref.URL)
}

func (s *Service) load(ctx context.Context, URL string) (*mbatch.Batch, error) {
	location := URL
	if ext := filepath.Ext(location); ext == "" {
		location += ".yaml"
	}
	if s.baseURL != "" && !strings.Contains(location, "://") {
		location = url.Join(s.baseURL, location)
	}
	data, err := s.fs.DownloadWithURL(ctx, location, s.fsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch from %s: %w", location, err)
	}
	ret := &mbatch.Batch{}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", location, err)
	}
	if ret.ID == "" {
		ret.ID = URL
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch %s: %w", location, err)
	}
	return ret, nil
}
