package core

import (
	"context"
	"io"
	"time"
)

// Defaults used when ServiceConfig leaves a value at zero.
const (
	DefaultMaxImportRows = 200
	DefaultPageSize      = 10
	DefaultImportTimeout = 2 * time.Minute
	RecentHistoryLimit   = 5
)

// Archiver stores a rendered export under key and returns where it went.
type Archiver interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// ServiceConfig tunes a Service.
type ServiceConfig struct {
	MaxImportRows int
	PageSize      int
	ImportTimeout time.Duration
	Limiter       *ImportLimiter
	Archiver      Archiver         // nil disables ArchiveExport
	Clock         func() time.Time // defaults to time.Now
}

// Service provides the buyer operations on top of a Store.
type Service struct {
	store         Store
	limiter       *ImportLimiter
	archiver      Archiver
	maxImportRows int
	pageSize      int
	importTimeout time.Duration
	clock         func() time.Time
}

// NewService creates a Service backed by store.
func NewService(store Store, cfg ServiceConfig) *Service {
	s := &Service{
		store:         store,
		limiter:       cfg.Limiter,
		archiver:      cfg.Archiver,
		maxImportRows: cfg.MaxImportRows,
		pageSize:      cfg.PageSize,
		importTimeout: cfg.ImportTimeout,
		clock:         cfg.Clock,
	}
	if s.limiter == nil {
		s.limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultImportMaxWait)
	}
	if s.maxImportRows <= 0 {
		s.maxImportRows = DefaultMaxImportRows
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.importTimeout <= 0 {
		s.importTimeout = DefaultImportTimeout
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Limiter exposes the import limiter so shutdown can drain it.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// PageSize returns the fixed list page size.
func (s *Service) PageSize() int {
	return s.pageSize
}

// now returns the current time at the precision the store keeps.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func requireActor(actor Actor) error {
	if actor.ID == "" {
		return ErrUnauthenticated
	}
	return nil
}
