package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/JonMunkholm/compatdb/internal/config"
	"github.com/JonMunkholm/compatdb/internal/search"
	"github.com/JonMunkholm/compatdb/internal/storage"
)

// Defaults for ServiceConfig fields left at zero.
const (
	DefaultImportTimeout = 10 * time.Minute
	DefaultSampleSize    = 8
	DefaultMaxSampleSize = 100
	PreviewSize          = 20
	InsertedPreviewSize  = 10
)

// ServiceConfig tunes the service. Zero values fall back to defaults.
type ServiceConfig struct {
	Search          search.Options
	RefreshInterval time.Duration // Index snapshots older than this are rebuilt; 0 disables

	MaxConcurrentImports int
	ImportWait           time.Duration
	ImportTimeout        time.Duration

	DefaultSampleSize int
	MaxSampleSize     int
}

// ServiceConfigFrom maps loaded configuration onto service settings.
func ServiceConfigFrom(cfg *config.Config) ServiceConfig {
	return ServiceConfig{
		Search: search.Options{
			Threshold:      cfg.Search.Threshold,
			Distance:       cfg.Search.Distance,
			MinQueryLength: cfg.Search.MinQueryLength,
			DefaultLimit:   cfg.Search.DefaultLimit,
		},
		RefreshInterval:      cfg.Search.RefreshInterval,
		MaxConcurrentImports: cfg.Upload.MaxConcurrent,
		ImportWait:           cfg.Upload.MaxWaitTime,
		ImportTimeout:        cfg.Upload.Timeout,
		DefaultSampleSize:    cfg.Sample.DefaultSize,
		MaxSampleSize:        cfg.Sample.MaxSize,
	}
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.ImportTimeout <= 0 {
		c.ImportTimeout = DefaultImportTimeout
	}
	if c.DefaultSampleSize <= 0 {
		c.DefaultSampleSize = DefaultSampleSize
	}
	if c.MaxSampleSize <= 0 {
		c.MaxSampleSize = DefaultMaxSampleSize
	}
	if c.DefaultSampleSize > c.MaxSampleSize {
		c.DefaultSampleSize = c.MaxSampleSize
	}
	return c
}

// Service is the entry point for catalog imports, search, sampling and
// record edits. It is safe for concurrent use.
type Service struct {
	store   storage.Store
	cfg     ServiceConfig
	index   *search.Holder
	imports *ImportLimiter
}

// NewService wires a service to store.
func NewService(store storage.Store, cfg ServiceConfig) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		store:   store,
		cfg:     cfg,
		imports: NewImportLimiter(cfg.MaxConcurrentImports, cfg.ImportWait),
	}
	s.index = search.NewHolder(s.loadSnapshot, cfg.Search, cfg.RefreshInterval)
	return s
}

// ImportLimiter exposes the import limiter for health output and shutdown.
func (s *Service) ImportLimiter() *ImportLimiter {
	return s.imports
}

// IndexBuiltAt returns when the current search snapshot was built, or the
// zero time if there is none.
func (s *Service) IndexBuiltAt() time.Time {
	return s.index.BuiltAt()
}

// Ping checks the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Count returns the number of records in the catalog.
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *Service) loadSnapshot(ctx context.Context) ([]catalog.Record, error) {
	return s.store.FindAll(ctx)
}
