package usecase

import (
	"github.com/toolarr/toolarr/internal/domain"
)

// Names of the hand-authored meta-tools. These exist outside the
// OpenAPI-derived catalog and are always visible, forming the entry point of
// progressive discovery.
const (
	MetaToolDiscover = "discover_tools"
	MetaToolSchema   = "get_tool_schema"
	MetaToolCall     = "call_tool"
)

// MetaTag is the category assigned to the meta-tools themselves.
const MetaTag = "meta"

// CoreToolSet selects the small always-visible tool subset an agent sees
// before any discovery call: the meta-tools plus a handful of promoted
// high-value operations chosen by static configuration.
type CoreToolSet struct {
	meta        []domain.ToolDescriptor
	metaCatalog *domain.Catalog
	promoted    []string
}

// NewCoreToolSet builds the bootstrap set. promoted lists catalog tool names
// to surface up front; names absent from a given catalog are skipped at query
// time rather than failing.
func NewCoreToolSet(promoted []string) *CoreToolSet {
	meta := metaDescriptors()
	// The meta descriptors are hand-authored and satisfy every catalog
	// invariant, so this cannot fail.
	metaCatalog, err := domain.NewCatalog("meta", meta)
	if err != nil {
		panic(err)
	}
	return &CoreToolSet{
		meta:        meta,
		metaCatalog: metaCatalog,
		promoted:    promoted,
	}
}

// metaMatches surfaces the meta-tools themselves when a query targets them,
// so an agent searching for "discover" finds the discovery tool.
func (s *CoreToolSet) metaMatches(q domain.Query) []domain.Match {
	if q.Category != "" && domain.NormalizeTag(q.Category) != MetaTag {
		return []domain.Match{}
	}
	return s.metaCatalog.Discover(q)
}

// MetaDescriptors returns the hand-authored meta-tool descriptors.
func (s *CoreToolSet) MetaDescriptors() []domain.ToolDescriptor {
	return s.meta
}

// ResolveMeta returns the meta-tool descriptor for name, if it is one.
func (s *CoreToolSet) ResolveMeta(name string) (*domain.ToolDescriptor, bool) {
	for i := range s.meta {
		if s.meta[i].Name == name {
			return &s.meta[i], true
		}
	}
	return nil, false
}

// PromotedNames returns the configured promoted operations present in the
// catalog, in configuration order.
func (s *CoreToolSet) PromotedNames(c *domain.Catalog) []string {
	out := make([]string, 0, len(s.promoted))
	for _, name := range s.promoted {
		if d, ok := c.Get(name); ok && !d.Deprecated {
			out = append(out, name)
		}
	}
	return out
}

// Matches renders the bootstrap set as discovery matches: meta-tools first,
// then the promoted operations found in the catalog. The size is fixed by
// configuration, independent of catalog size.
func (s *CoreToolSet) Matches(c *domain.Catalog) []domain.Match {
	out := make([]domain.Match, 0, len(s.meta)+len(s.promoted))
	for i := range s.meta {
		d := &s.meta[i]
		out = append(out, domain.Match{Name: d.Name, Summary: d.Summary, Tags: d.Tags})
	}
	for _, name := range s.PromotedNames(c) {
		d, _ := c.Get(name)
		out = append(out, domain.Match{Name: d.Name, Summary: d.Summary, Tags: d.Tags})
	}
	return out
}

func metaDescriptors() []domain.ToolDescriptor {
	intType := domain.JSONSchemaProps{Type: "integer"}
	strType := domain.JSONSchemaProps{Type: "string"}

	return []domain.ToolDescriptor{
		{
			Name:    MetaToolDiscover,
			Summary: "Discover additional API tools by category or keyword. Returns tool names and descriptions only; fetch a tool's schema before calling it.",
			Tags:    []string{MetaTag},
			Parameters: []domain.Parameter{
				{Name: "category", In: domain.LocationBody, Type: "string", Description: "Category of tools to discover (e.g. 'series', 'calendar', 'system')."},
				{Name: "keyword", In: domain.LocationBody, Type: "string", Description: "Keyword to search for in tool names, tags and descriptions."},
				{Name: "max_results", In: domain.LocationBody, Type: "integer", Description: "Maximum number of tools to return.", Default: domain.DefaultDiscoveryLimit},
			},
			InputSchema: domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"category":    strType,
					"keyword":     strType,
					"max_results": intType,
				},
			},
			ResponseSchema: &domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"tools": {Type: "array", Items: &domain.JSONSchemaProps{
						Type: "object",
						Properties: map[string]domain.JSONSchemaProps{
							"name":        strType,
							"description": strType,
						},
					}},
				},
			},
		},
		{
			Name:    MetaToolSchema,
			Summary: "Get the full parameter schema for one tool by name.",
			Tags:    []string{MetaTag},
			Parameters: []domain.Parameter{
				{Name: "tool_name", In: domain.LocationBody, Type: "string", Required: true, Description: "Name of the tool to describe."},
			},
			InputSchema: domain.JSONSchemaProps{
				Type:       "object",
				Properties: map[string]domain.JSONSchemaProps{"tool_name": strType},
				Required:   []string{"tool_name"},
			},
		},
		{
			Name:    MetaToolCall,
			Summary: "Invoke a discovered tool by name with a map of arguments matching its schema.",
			Tags:    []string{MetaTag},
			Parameters: []domain.Parameter{
				{Name: "tool_name", In: domain.LocationBody, Type: "string", Required: true, Description: "Name of the tool to invoke."},
				{Name: "arguments", In: domain.LocationBody, Type: "object", Description: "Arguments for the tool, keyed by parameter name."},
			},
			InputSchema: domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"tool_name": strType,
					"arguments": {Type: "object"},
				},
				Required: []string{"tool_name"},
			},
		},
	}
}
