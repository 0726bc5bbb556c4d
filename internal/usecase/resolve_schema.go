package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/toolarr/toolarr/internal/domain"
)

// ResolveSchemaUseCase returns the full descriptor for one named tool,
// schemas already expanded at index-build time, so this is an O(1) lookup.
type ResolveSchemaUseCase struct {
	store  CatalogStore
	core   *CoreToolSet
	logger *slog.Logger
}

// NewResolveSchemaUseCase creates a new ResolveSchemaUseCase.
func NewResolveSchemaUseCase(store CatalogStore, core *CoreToolSet, logger *slog.Logger) *ResolveSchemaUseCase {
	return &ResolveSchemaUseCase{
		store:  store,
		core:   core,
		logger: logger.With("usecase", "ResolveSchema"),
	}
}

// Execute looks up toolName among the meta-tools first, then the catalog.
// Callers always receive a fully self-describing descriptor, never a
// fragment needing further resolution. Unknown names fail with
// *domain.NotFoundError.
func (uc *ResolveSchemaUseCase) Execute(ctx context.Context, toolName string) (*domain.ToolDescriptor, error) {
	if d, ok := uc.core.ResolveMeta(toolName); ok {
		return d, nil
	}

	catalog, err := uc.store.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("schema lookup unavailable: %w", err)
	}
	d, ok := catalog.Get(toolName)
	if !ok {
		uc.logger.Debug("Tool schema not found.", slog.String("tool_name", toolName))
		return nil, &domain.NotFoundError{Tool: toolName}
	}
	return d, nil
}
