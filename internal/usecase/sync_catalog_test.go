package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/toolarr/toolarr/internal/domain"
	"github.com/toolarr/toolarr/internal/usecase"
	"github.com/toolarr/toolarr/pkg/toolwire"

	"github.com/mark3labs/mcp-go/mcp"
)

func newSyncUC(t *testing.T, promoted []string) (*usecase.SyncCatalogUseCase, *mockCatalogStore, *fakeMCPServer, *mockSchemaFetcher, *mockCatalogBuilder) {
	t.Helper()
	store := new(mockCatalogStore)
	fetcher := new(mockSchemaFetcher)
	builder := new(mockCatalogBuilder)
	server := newFakeMCPServer()
	invoker := new(mockToolInvoker)
	core := usecase.NewCoreToolSet(promoted)
	logger := testLogger()

	uc := usecase.NewSyncCatalogUseCase(
		usecase.SchemaSourceConfig{URL: "http://sonarr.local"},
		fetcher,
		builder,
		store,
		server,
		core,
		usecase.NewDiscoverToolsUseCase(store, core, logger),
		usecase.NewResolveSchemaUseCase(store, core, logger),
		usecase.NewDispatchToolUseCase(store, invoker, usecase.NewSimplifier(nil), logger),
		logger,
	)
	return uc, store, server, fetcher, builder
}

func TestSyncCatalog_RegistersBootstrapTools(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uc, store, server, fetcher, builder := newSyncUC(t, []string{"get_series", "absent_tool"})
	catalog := testCatalog(t)

	doc := domain.APIDocument{Source: "http://sonarr.local"}
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(doc, nil)
	builder.On("Build", doc).Return(catalog, nil)
	store.On("Replace", catalog).Once()

	require.NoError(uc.Execute(context.Background()))

	// Meta-tools plus the promoted operations present in the catalog; the
	// absent promoted name is skipped.
	assert.Equal([]string{
		usecase.MetaToolDiscover,
		usecase.MetaToolSchema,
		usecase.MetaToolCall,
		"get_series",
	}, server.toolNames())
	store.AssertExpectations(t)
}

func TestSyncCatalog_FetchFailureLeavesStoreUntouched(t *testing.T) {
	require := require.New(t)

	uc, store, server, fetcher, _ := newSyncUC(t, nil)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(domain.APIDocument{}, assert.AnError)

	require.Error(uc.Execute(context.Background()))
	store.AssertNotCalled(t, "Replace", mock.Anything)
	require.Empty(server.tools)
}

func TestSyncCatalog_BuildFailureLeavesStoreUntouched(t *testing.T) {
	require := require.New(t)

	uc, store, server, fetcher, builder := newSyncUC(t, nil)
	doc := domain.APIDocument{Source: "http://sonarr.local"}
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(doc, nil)
	builder.On("Build", doc).Return(nil, &domain.SchemaError{Reason: "broken document"})

	require.Error(uc.Execute(context.Background()))
	store.AssertNotCalled(t, "Replace", mock.Anything)
	require.Empty(server.tools)
}

func TestSyncCatalog_DiscoverHandler(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uc, store, server, fetcher, builder := newSyncUC(t, nil)
	catalog := testCatalog(t)
	doc := domain.APIDocument{Source: "http://sonarr.local"}
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(doc, nil)
	builder.On("Build", doc).Return(catalog, nil)
	store.On("Replace", catalog).Once()
	store.On("Snapshot").Return(catalog, nil)

	require.NoError(uc.Execute(context.Background()))

	handler := server.handlers[usecase.MetaToolDiscover]
	require.NotNil(handler)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"category": "series",
	}
	result, err := handler(context.Background(), request)
	require.NoError(err)
	require.False(result.IsError)

	var payload toolwire.DiscoverResult
	text := result.Content[0].(mcp.TextContent).Text
	require.NoError(json.Unmarshal([]byte(text), &payload))
	require.Len(payload.Tools, 2)
	assert.Equal("get_series", payload.Tools[0].Name)
	assert.Equal("get_series_by_id", payload.Tools[1].Name)
}

func TestSyncCatalog_SchemaHandler(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uc, store, server, fetcher, builder := newSyncUC(t, nil)
	catalog := testCatalog(t)
	doc := domain.APIDocument{Source: "http://sonarr.local"}
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(doc, nil)
	builder.On("Build", doc).Return(catalog, nil)
	store.On("Replace", catalog).Once()
	store.On("Snapshot").Return(catalog, nil)

	require.NoError(uc.Execute(context.Background()))
	handler := server.handlers[usecase.MetaToolSchema]
	require.NotNil(handler)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"tool_name": "get_series_by_id",
	}
	result, err := handler(context.Background(), request)
	require.NoError(err)
	require.False(result.IsError)

	var payload toolwire.ToolSchema
	text := result.Content[0].(mcp.TextContent).Text
	require.NoError(json.Unmarshal([]byte(text), &payload))
	assert.Equal("get_series_by_id", payload.Name)
	assert.Equal("GET", payload.Method)
	assert.Equal("/api/v3/series/{id}", payload.Path)
	assert.Contains(string(payload.Parameters), `"id"`)

	// Unknown names come back as a structured not_found tool error, not a
	// protocol failure.
	request.Params.Arguments = map[string]interface{}{"tool_name": "nope"}
	result, err = handler(context.Background(), request)
	require.NoError(err)
	require.True(result.IsError)

	var errBody toolwire.ErrorBody
	text = result.Content[0].(mcp.TextContent).Text
	require.NoError(json.Unmarshal([]byte(text), &errBody))
	assert.Equal(toolwire.KindNotFound, errBody.Kind)
}

func TestSyncCatalog_CallHandlerValidatesToolName(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uc, store, server, fetcher, builder := newSyncUC(t, nil)
	catalog := testCatalog(t)
	doc := domain.APIDocument{Source: "http://sonarr.local"}
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(doc, nil)
	builder.On("Build", doc).Return(catalog, nil)
	store.On("Replace", catalog).Once()

	require.NoError(uc.Execute(context.Background()))
	handler := server.handlers[usecase.MetaToolCall]
	require.NotNil(handler)

	result, err := handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(err)
	require.True(result.IsError)

	var errBody toolwire.ErrorBody
	text := result.Content[0].(mcp.TextContent).Text
	require.NoError(json.Unmarshal([]byte(text), &errBody))
	assert.Equal(toolwire.KindValidation, errBody.Kind)
	assert.Equal([]string{"tool_name"}, errBody.Fields)
}
