package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/toolarr/toolarr/internal/domain"
)

// DiscoverToolsUseCase answers "which tools match this need" with a bounded,
// ranked subset of the catalog. It never returns the full catalog unless the
// caller explicitly asks with a high limit.
type DiscoverToolsUseCase struct {
	store  CatalogStore
	core   *CoreToolSet
	logger *slog.Logger
}

// NewDiscoverToolsUseCase creates a new DiscoverToolsUseCase.
func NewDiscoverToolsUseCase(store CatalogStore, core *CoreToolSet, logger *slog.Logger) *DiscoverToolsUseCase {
	return &DiscoverToolsUseCase{
		store:  store,
		core:   core,
		logger: logger.With("usecase", "DiscoverTools"),
	}
}

// Execute runs a discovery query against the current catalog snapshot.
// An empty query (no filter, no explicit limit) yields the bootstrap subset;
// this is the progressive-discovery contract. A query matching nothing yields
// an empty, non-nil slice — a valid outcome, not an error.
func (uc *DiscoverToolsUseCase) Execute(ctx context.Context, q domain.Query) ([]domain.Match, error) {
	catalog, err := uc.store.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("discovery unavailable: %w", err)
	}

	// "All" from the agent means no category filter.
	if strings.EqualFold(q.Category, "all") {
		q.Category = ""
	}

	if q.IsEmpty() {
		matches := uc.core.Matches(catalog)
		uc.logger.Debug("Returning bootstrap tool set.", slog.Int("count", len(matches)))
		return matches, nil
	}

	matches := append(uc.core.metaMatches(q), catalog.Discover(q)...)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	if limit := domain.ClampLimit(q.Limit); len(matches) > limit {
		matches = matches[:limit]
	}
	uc.logger.Debug("Discovery query served.",
		slog.String("category", q.Category),
		slog.String("keyword", q.Keyword),
		slog.Int("count", len(matches)))
	return matches, nil
}
