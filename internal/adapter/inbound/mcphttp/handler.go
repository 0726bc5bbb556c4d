package mcphttp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/toolarr/toolarr/internal/usecase"
)

// Handlers holds dependencies for the admin HTTP endpoints, which live beside
// the MCP transport: reload and health only, never tool traffic.
type Handlers struct {
	syncUseCase *usecase.SyncCatalogUseCase
	store       usecase.CatalogStore
	logger      *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(syncUC *usecase.SyncCatalogUseCase, store usecase.CatalogStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		syncUseCase: syncUC,
		store:       store,
		logger:      logger.With("component", "mcphttp_handler"),
	}
}

// RegisterAdminRoutes sets up the HTTP routes for admin endpoints.
func (h *Handlers) RegisterAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/reload", h.handleReload)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// handleReload implements POST /admin/reload: re-fetch the upstream schema and
// rebuild the catalog. The swap is atomic; on failure the previous catalog
// stays in place.
func (h *Handlers) handleReload(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Received catalog reload request.")
	if err := h.syncUseCase.Execute(r.Context()); err != nil {
		h.logger.Error("Catalog reload failed.", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Failed to reload catalog: %v", err), http.StatusInternalServerError)
		return
	}

	catalog, err := h.store.Snapshot()
	if err != nil {
		http.Error(w, fmt.Sprintf("Catalog unavailable after reload: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "reloaded",
		"tool_count": catalog.Len(),
		"built_at":   catalog.BuiltAt(),
	})
	h.logger.Info("Catalog reload completed.", slog.Int("tool_count", catalog.Len()))
}

// handleHealth implements GET /healthz. Reports 503 until the first catalog
// build succeeds, so orchestration waits for a usable server.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	catalog, err := h.store.Snapshot()
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "starting",
			"error":  err.Error(),
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "ok",
		"tool_count": catalog.Len(),
		"source":     catalog.Source(),
		"built_at":   catalog.BuiltAt(),
	})
}
