package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolarr/toolarr/internal/domain"
)

func seriesDescriptors() []domain.ToolDescriptor {
	return []domain.ToolDescriptor{
		{
			Name:    "get_series",
			Summary: "Get all series in the library.",
			Method:  "GET",
			Path:    "/api/v3/series",
			Tags:    []string{"series"},
		},
		{
			Name:    "get_series_by_id",
			Summary: "Get a single series by its id.",
			Method:  "GET",
			Path:    "/api/v3/series/{id}",
			Tags:    []string{"series"},
			Parameters: []domain.Parameter{
				{Name: "id", In: domain.LocationPath, Type: "integer", Required: true},
			},
		},
		{
			Name:    "get_calendar",
			Summary: "Get upcoming episodes within a date range.",
			Method:  "GET",
			Path:    "/api/v3/calendar",
			Tags:    []string{"calendar"},
			Parameters: []domain.Parameter{
				{Name: "start", In: domain.LocationQuery, Type: "string"},
				{Name: "end", In: domain.LocationQuery, Type: "string"},
			},
		},
	}
}

func TestNewCatalog(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	catalog, err := domain.NewCatalog("http://sonarr.local/api/v3/openapi.json", seriesDescriptors())
	require.NoError(err)

	assert.Equal(3, catalog.Len())
	assert.Equal("http://sonarr.local/api/v3/openapi.json", catalog.Source())
	assert.Equal([]string{"get_calendar", "get_series", "get_series_by_id"}, catalog.Names())
	assert.Equal([]string{"calendar", "series"}, catalog.Tags())

	d, ok := catalog.Get("get_series_by_id")
	require.True(ok)
	assert.Equal("GET", d.Method)
	assert.Len(d.PathParameters(), 1)

	_, ok = catalog.Get("no_such_tool")
	assert.False(ok)
}

func TestNewCatalog_InvariantViolations(t *testing.T) {
	tests := []struct {
		name        string
		descriptors []domain.ToolDescriptor
		wantReason  string
	}{
		{
			name: "duplicate tool name",
			descriptors: []domain.ToolDescriptor{
				{Name: "get_series", Summary: "a", Method: "GET", Path: "/series", Tags: []string{"series"}},
				{Name: "get_series", Summary: "b", Method: "GET", Path: "/series", Tags: []string{"series"}},
			},
			wantReason: "duplicate tool name",
		},
		{
			name: "empty tag set",
			descriptors: []domain.ToolDescriptor{
				{Name: "get_series", Summary: "a", Method: "GET", Path: "/series"},
			},
			wantReason: "no tags",
		},
		{
			name: "duplicate parameter name",
			descriptors: []domain.ToolDescriptor{
				{
					Name: "get_series", Summary: "a", Method: "GET", Path: "/series",
					Tags: []string{"series"},
					Parameters: []domain.Parameter{
						{Name: "id", In: domain.LocationQuery},
						{Name: "id", In: domain.LocationQuery},
					},
				},
			},
			wantReason: "twice",
		},
		{
			name: "placeholder without parameter",
			descriptors: []domain.ToolDescriptor{
				{Name: "get_series_by_id", Summary: "a", Method: "GET", Path: "/series/{id}", Tags: []string{"series"}},
			},
			wantReason: "has no path parameter",
		},
		{
			name: "path parameter without placeholder",
			descriptors: []domain.ToolDescriptor{
				{
					Name: "get_series", Summary: "a", Method: "GET", Path: "/series",
					Tags: []string{"series"},
					Parameters: []domain.Parameter{
						{Name: "id", In: domain.LocationPath, Required: true},
					},
				},
			},
			wantReason: "has no placeholder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewCatalog("test", tt.descriptors)
			require.Error(t, err)

			var schemaErr *domain.SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Contains(t, schemaErr.Error(), tt.wantReason)
		})
	}
}

func TestCatalog_NamesByTag(t *testing.T) {
	assert := assert.New(t)

	catalog, err := domain.NewCatalog("test", seriesDescriptors())
	require.NoError(t, err)

	assert.Equal([]string{"get_series", "get_series_by_id"}, catalog.NamesByTag("series"))
	assert.Equal([]string{"get_series", "get_series_by_id"}, catalog.NamesByTag("SERIES"), "tag lookup is case-insensitive")
	assert.Nil(catalog.NamesByTag("unknown"))
}

func TestTokenize(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"get", "series", "by", "id"}, domain.Tokenize("get_series_by_id"))
	assert.Equal([]string{"quality", "profiles"}, domain.Tokenize("Quality Profiles!"))
	assert.Empty(domain.Tokenize(""))
}
