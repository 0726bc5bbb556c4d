package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/toolarr/toolarr/internal/domain"
	"github.com/toolarr/toolarr/internal/usecase"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCatalogStore mocks usecase.CatalogStore.
type mockCatalogStore struct {
	mock.Mock
}

func (m *mockCatalogStore) Snapshot() (*domain.Catalog, error) {
	args := m.Called()
	if c, ok := args.Get(0).(*domain.Catalog); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogStore) Replace(c *domain.Catalog) {
	m.Called(c)
}

// mockToolInvoker mocks usecase.ToolInvoker.
type mockToolInvoker struct {
	mock.Mock
}

func (m *mockToolInvoker) Invoke(ctx context.Context, req usecase.RequestSpec) (usecase.UpstreamResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(usecase.UpstreamResponse), args.Error(1)
}

// mockSchemaFetcher mocks usecase.SchemaFetcher.
type mockSchemaFetcher struct {
	mock.Mock
}

func (m *mockSchemaFetcher) Fetch(ctx context.Context, cfg usecase.SchemaSourceConfig) (domain.APIDocument, error) {
	args := m.Called(ctx, cfg)
	return args.Get(0).(domain.APIDocument), args.Error(1)
}

// mockCatalogBuilder mocks usecase.CatalogBuilder.
type mockCatalogBuilder struct {
	mock.Mock
}

func (m *mockCatalogBuilder) Build(doc domain.APIDocument) (*domain.Catalog, error) {
	args := m.Called(doc)
	if c, ok := args.Get(0).(*domain.Catalog); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeMCPServer records registered tools in order.
type fakeMCPServer struct {
	tools    []mcp.Tool
	handlers map[string]mcpserver.ToolHandlerFunc
}

func newFakeMCPServer() *fakeMCPServer {
	return &fakeMCPServer{handlers: make(map[string]mcpserver.ToolHandlerFunc)}
}

func (s *fakeMCPServer) AddTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
}

func (s *fakeMCPServer) toolNames() []string {
	names := make([]string, 0, len(s.tools))
	for _, tool := range s.tools {
		names = append(names, tool.Name)
	}
	return names
}

// testCatalog builds a small Sonarr-shaped catalog fixture.
func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()

	strType := domain.JSONSchemaProps{Type: "string"}
	catalog, err := domain.NewCatalog("test", []domain.ToolDescriptor{
		{
			Name: "get_series", Summary: "Get all series in the library.",
			Method: "GET", Path: "/api/v3/series", Tags: []string{"series"},
			InputSchema: domain.JSONSchemaProps{Type: "object", Properties: map[string]domain.JSONSchemaProps{}},
		},
		{
			Name: "get_series_by_id", Summary: "Get a single series by its id.",
			Method: "GET", Path: "/api/v3/series/{id}", Tags: []string{"series"},
			Parameters: []domain.Parameter{
				{Name: "id", In: domain.LocationPath, Type: "integer", Required: true},
			},
			InputSchema: domain.JSONSchemaProps{
				Type:       "object",
				Properties: map[string]domain.JSONSchemaProps{"id": {Type: "integer"}},
				Required:   []string{"id"},
			},
		},
		{
			Name: "get_calendar", Summary: "Get upcoming episodes within a date range.",
			Method: "GET", Path: "/api/v3/calendar", Tags: []string{"calendar"},
			Parameters: []domain.Parameter{
				{Name: "start", In: domain.LocationQuery, Type: "string"},
				{Name: "end", In: domain.LocationQuery, Type: "string"},
			},
			InputSchema: domain.JSONSchemaProps{
				Type:       "object",
				Properties: map[string]domain.JSONSchemaProps{"start": strType, "end": strType},
			},
		},
		{
			Name: "post_command", Summary: "Run a server command such as RescanSeries.",
			Method: "POST", Path: "/api/v3/command", Tags: []string{"command"},
			Parameters: []domain.Parameter{
				{Name: "name", In: domain.LocationBody, Type: "string", Required: true},
			},
			InputSchema: domain.JSONSchemaProps{
				Type:       "object",
				Properties: map[string]domain.JSONSchemaProps{"name": strType},
				Required:   []string{"name"},
			},
		},
	})
	require.NoError(t, err)
	return catalog
}
