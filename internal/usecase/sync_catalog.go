package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cast"

	"github.com/toolarr/toolarr/internal/domain"
	"github.com/toolarr/toolarr/pkg/toolwire"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// SyncCatalogUseCase orchestrates a catalog (re)build: fetch the upstream API
// document, index it, atomically swap the snapshot, and (re-)register the
// agent-visible MCP tool surface — the three meta-tools plus the promoted
// core operations.
type SyncCatalogUseCase struct {
	source   SchemaSourceConfig
	fetcher  SchemaFetcher
	builder  CatalogBuilder
	store    CatalogStore
	server   MCPServerAdapter
	core     *CoreToolSet
	discover *DiscoverToolsUseCase
	resolve  *ResolveSchemaUseCase
	dispatch *DispatchToolUseCase
	logger   *slog.Logger
}

// NewSyncCatalogUseCase creates a new SyncCatalogUseCase.
func NewSyncCatalogUseCase(
	source SchemaSourceConfig,
	fetcher SchemaFetcher,
	builder CatalogBuilder,
	store CatalogStore,
	server MCPServerAdapter,
	core *CoreToolSet,
	discover *DiscoverToolsUseCase,
	resolve *ResolveSchemaUseCase,
	dispatch *DispatchToolUseCase,
	logger *slog.Logger,
) *SyncCatalogUseCase {
	return &SyncCatalogUseCase{
		source:   source,
		fetcher:  fetcher,
		builder:  builder,
		store:    store,
		server:   server,
		core:     core,
		discover: discover,
		resolve:  resolve,
		dispatch: dispatch,
		logger:   logger.With("usecase", "SyncCatalog"),
	}
}

// Execute performs one full sync. A failed fetch or build leaves the previous
// snapshot (if any) untouched; readers never observe a partial catalog.
func (uc *SyncCatalogUseCase) Execute(ctx context.Context) error {
	log := uc.logger.With(slog.String("source", uc.source.URL))
	log.Info("Starting catalog sync.")

	doc, err := uc.fetcher.Fetch(ctx, uc.source)
	if err != nil {
		return fmt.Errorf("fetching schema from %s: %w", uc.source.URL, err)
	}

	catalog, err := uc.builder.Build(doc)
	if err != nil {
		return fmt.Errorf("building catalog from %s: %w", uc.source.URL, err)
	}

	uc.store.Replace(catalog)
	uc.registerTools(catalog)

	log.Info("Catalog sync completed.",
		slog.Int("tool_count", catalog.Len()),
		slog.Int("tag_count", len(catalog.Tags())))
	return nil
}

// registerTools installs the agent-visible tool surface on the MCP server.
// Registering a name again replaces the previous definition, so re-syncing
// converges instead of accumulating.
func (uc *SyncCatalogUseCase) registerTools(catalog *domain.Catalog) {
	uc.server.AddTool(discoverToolDefinition(), uc.handleDiscover)
	uc.server.AddTool(schemaToolDefinition(), uc.handleSchema)
	uc.server.AddTool(callToolDefinition(), uc.handleCall)

	for _, name := range uc.core.PromotedNames(catalog) {
		d, _ := catalog.Get(name)
		raw, err := json.Marshal(d.InputSchema)
		if err != nil {
			uc.logger.Warn("Skipping promoted tool with unmarshalable schema.",
				slog.String("tool_name", name), slog.Any("error", err))
			continue
		}
		uc.server.AddTool(mcp.NewToolWithRawSchema(d.Name, d.Summary, raw), uc.promotedHandler(d.Name))
	}
}

func discoverToolDefinition() mcp.Tool {
	return mcp.NewTool(MetaToolDiscover,
		mcp.WithDescription("Discover additional API tools by category or keyword. Returns tool names and descriptions only; use get_tool_schema before calling a tool."),
		mcp.WithString("category", mcp.Description("Category of tools to discover (e.g. 'series', 'calendar', 'system'). Omit or use 'All' for no filter.")),
		mcp.WithString("keyword", mcp.Description("Keyword to search for in tool names, tags and descriptions.")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of tools to return (server-side ceiling applies).")),
	)
}

func schemaToolDefinition() mcp.Tool {
	return mcp.NewTool(MetaToolSchema,
		mcp.WithDescription("Get the full parameter schema for one tool by name."),
		mcp.WithString("tool_name", mcp.Required(), mcp.Description("Name of the tool to describe.")),
	)
}

func callToolDefinition() mcp.Tool {
	return mcp.NewTool(MetaToolCall,
		mcp.WithDescription("Invoke a discovered tool by name with a map of arguments matching its schema."),
		mcp.WithString("tool_name", mcp.Required(), mcp.Description("Name of the tool to invoke.")),
		mcp.WithObject("arguments", mcp.Description("Arguments for the tool, keyed by parameter name.")),
	)
}

func (uc *SyncCatalogUseCase) handleDiscover(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	q := domain.Query{
		Category: cast.ToString(args["category"]),
		Keyword:  cast.ToString(args["keyword"]),
		Limit:    cast.ToInt(args["max_results"]),
	}

	matches, err := uc.discover.Execute(ctx, q)
	if err != nil {
		return errorResult(err), nil
	}

	result := toolwire.DiscoverResult{Tools: make([]toolwire.ToolSummary, 0, len(matches))}
	for _, m := range matches {
		result.Tools = append(result.Tools, toolwire.ToolSummary{
			Name:        m.Name,
			Description: m.Summary,
			Tags:        m.Tags,
			MatchScore:  m.Score,
		})
	}
	return jsonResult(result)
}

func (uc *SyncCatalogUseCase) handleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := cast.ToString(req.GetArguments()["tool_name"])
	if name == "" {
		return errorResult(&domain.ValidationError{
			Tool:   MetaToolSchema,
			Fields: []string{"tool_name"},
			Reason: "missing required arguments",
		}), nil
	}

	d, err := uc.resolve.Execute(ctx, name)
	if err != nil {
		return errorResult(err), nil
	}

	params, err := json.Marshal(d.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema for tool %q: %w", name, err)
	}
	var returns json.RawMessage
	if d.ResponseSchema != nil {
		if returns, err = json.Marshal(d.ResponseSchema); err != nil {
			return nil, fmt.Errorf("marshaling response schema for tool %q: %w", name, err)
		}
	}
	return jsonResult(toolwire.ToolSchema{
		Name:        d.Name,
		Description: d.Summary,
		Method:      d.Method,
		Path:        d.Path,
		Tags:        d.Tags,
		Parameters:  params,
		Returns:     returns,
	})
}

func (uc *SyncCatalogUseCase) handleCall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name := cast.ToString(args["tool_name"])
	if name == "" {
		return errorResult(&domain.ValidationError{
			Tool:   MetaToolCall,
			Fields: []string{"tool_name"},
			Reason: "missing required arguments",
		}), nil
	}
	callArgs, _ := args["arguments"].(map[string]interface{})

	result, err := uc.dispatch.Execute(ctx, name, callArgs)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}

func (uc *SyncCatalogUseCase) promotedHandler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := uc.dispatch.Execute(ctx, name, req.GetArguments())
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(result)
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult renders a typed domain error as a structured tool error so the
// agent can distinguish "rediscover" from "fix your arguments" from
// "upstream is unhappy".
func errorResult(err error) *mcp.CallToolResult {
	body := toolwire.ErrorBody{Error: err.Error()}

	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var upstream *domain.UpstreamError
	switch {
	case errors.As(err, &notFound):
		body.Kind = toolwire.KindNotFound
	case errors.As(err, &validation):
		body.Kind = toolwire.KindValidation
		body.Fields = validation.Fields
	case errors.As(err, &upstream):
		body.Kind = toolwire.KindUpstream
	}

	data, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}
