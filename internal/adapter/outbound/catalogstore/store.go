// Package catalogstore holds the in-memory catalog snapshot.
//
// NOTE: not persistent; the catalog is rebuilt from the upstream schema on
// every startup.
package catalogstore

import (
	"log/slog"
	"sync/atomic"

	"github.com/toolarr/toolarr/internal/domain"
	"github.com/toolarr/toolarr/internal/usecase"
)

// Store implements usecase.CatalogStore with a single atomic pointer. Readers
// take a consistent snapshot without locking; Replace swaps the whole catalog
// in one store, so a reload is invisible to in-flight requests.
type Store struct {
	current atomic.Pointer[domain.Catalog]
	logger  *slog.Logger
}

// New creates an empty Store. Snapshot fails with ErrCatalogNotReady until the
// first Replace.
func New(logger *slog.Logger) *Store {
	return &Store{
		logger: logger.With("component", "catalog_store"),
	}
}

// Snapshot returns the current catalog.
func (s *Store) Snapshot() (*domain.Catalog, error) {
	c := s.current.Load()
	if c == nil {
		return nil, usecase.ErrCatalogNotReady
	}
	return c, nil
}

// Replace installs a freshly built catalog as the new snapshot.
func (s *Store) Replace(c *domain.Catalog) {
	s.current.Store(c)
	s.logger.Info("Catalog snapshot replaced.",
		slog.Int("tool_count", c.Len()),
		slog.String("source", c.Source()))
}
