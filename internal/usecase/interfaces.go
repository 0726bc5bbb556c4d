package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/toolarr/toolarr/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Standard errors returned by use cases and adapters.
var (
	// ErrCatalogNotReady is returned when a lookup races the initial catalog
	// build. Callers should retry after the first sync completes.
	ErrCatalogNotReady = errors.New("catalog not built yet")
)

// SchemaSourceConfig identifies where the upstream API document lives and any
// headers needed to fetch it.
type SchemaSourceConfig struct {
	URL     string
	Headers map[string]string
}

// SchemaFetcher fetches the upstream API document from a URL or local file.
type SchemaFetcher interface {
	Fetch(ctx context.Context, cfg SchemaSourceConfig) (domain.APIDocument, error)
}

// CatalogBuilder converts a fetched API document into an immutable catalog.
// Build performs no I/O.
type CatalogBuilder interface {
	Build(doc domain.APIDocument) (*domain.Catalog, error)
}

// CatalogStore holds the current catalog snapshot. Replace swaps the whole
// snapshot atomically; readers never observe a half-built catalog.
type CatalogStore interface {
	// Snapshot returns the current catalog, or ErrCatalogNotReady before the
	// first Replace.
	Snapshot() (*domain.Catalog, error)

	// Replace installs a freshly built catalog as the new snapshot.
	Replace(c *domain.Catalog)
}

// RequestSpec is the assembled upstream request handed to the ToolInvoker.
// Path placeholders are already substituted.
type RequestSpec struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   map[string]interface{}
}

// UpstreamResponse is a parsed upstream reply. Payload is the decoded JSON
// body, or the raw body as a string for non-JSON replies.
type UpstreamResponse struct {
	StatusCode int
	Payload    interface{}
}

// ToolInvoker executes the upstream API call. Transport failures and non-2xx
// statuses are reported as *domain.UpstreamError.
type ToolInvoker interface {
	Invoke(ctx context.Context, req RequestSpec) (UpstreamResponse, error)
}

// MCPServerAdapter is the slice of the MCP server the sync use case needs to
// register tools, keeping the use case decoupled from the concrete server.
type MCPServerAdapter interface {
	AddTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc)
}
