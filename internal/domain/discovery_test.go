package domain_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolarr/toolarr/internal/domain"
)

func discoveryCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	catalog, err := domain.NewCatalog("test", []domain.ToolDescriptor{
		{Name: "get_series", Summary: "Get all series in the library.", Method: "GET", Path: "/api/v3/series", Tags: []string{"series"}},
		{Name: "get_series_by_id", Summary: "Get a single series by its id.", Method: "GET", Path: "/api/v3/series/{id}", Tags: []string{"series"},
			Parameters: []domain.Parameter{{Name: "id", In: domain.LocationPath, Required: true}}},
		{Name: "get_series_lookup", Summary: "Search for new series to add.", Method: "GET", Path: "/api/v3/series/lookup", Tags: []string{"series", "search"}},
		{Name: "get_calendar", Summary: "Get upcoming episodes for the calendar view.", Method: "GET", Path: "/api/v3/calendar", Tags: []string{"calendar"}},
		{Name: "get_queue", Summary: "Get the current download queue.", Method: "GET", Path: "/api/v3/queue", Tags: []string{"queue"}},
		{Name: "get_release", Summary: "Search indexers for releases of an episode.", Method: "GET", Path: "/api/v3/release", Tags: []string{"release"}},
	})
	require.NoError(t, err)
	return catalog
}

func TestCatalog_Discover_CategoryFilter(t *testing.T) {
	assert := assert.New(t)
	catalog := discoveryCatalog(t)

	matches := catalog.Discover(domain.Query{Category: "series"})
	names := matchNames(matches)
	assert.Equal([]string{"get_series", "get_series_by_id", "get_series_lookup"}, names)

	matches = catalog.Discover(domain.Query{Category: "Series"})
	assert.Equal(names, matchNames(matches), "category filter is case-insensitive")

	assert.Empty(catalog.Discover(domain.Query{Category: "movies"}), "unknown category yields empty result, not an error")
}

func TestCatalog_Discover_KeywordRanking(t *testing.T) {
	assert := assert.New(t)
	catalog := discoveryCatalog(t)

	// "search" appears as a tag on get_series_lookup (40) and in the
	// summaries of get_series_lookup and get_release (20).
	matches := catalog.Discover(domain.Query{Keyword: "search"})
	assert.Equal([]string{"get_series_lookup", "get_release"}, matchNames(matches))
	assert.Greater(matches[0].Score, matches[1].Score)

	// Name substring outranks tag and summary hits.
	matches = catalog.Discover(domain.Query{Keyword: "calendar"})
	assert.Equal([]string{"get_calendar"}, matchNames(matches))
	assert.Equal(60, matches[0].Score, "name substring is the strongest match class here")
}

func TestCatalog_Discover_CategoryAndKeyword(t *testing.T) {
	assert := assert.New(t)
	catalog := discoveryCatalog(t)

	matches := catalog.Discover(domain.Query{Category: "series", Keyword: "lookup"})
	assert.Equal([]string{"get_series_lookup"}, matchNames(matches))

	// Keyword matches outside the category are excluded.
	matches = catalog.Discover(domain.Query{Category: "calendar", Keyword: "queue"})
	assert.Empty(matches)
}

func TestCatalog_Discover_TiesBreakByName(t *testing.T) {
	assert := assert.New(t)
	catalog := discoveryCatalog(t)

	// All series tools match "series" in their name with equal weight except
	// exact tag differences; the order must be deterministic.
	first := catalog.Discover(domain.Query{Keyword: "series"})
	for i := 0; i < 5; i++ {
		assert.Equal(matchNames(first), matchNames(catalog.Discover(domain.Query{Keyword: "series"})))
	}
}

func TestCatalog_Discover_Limit(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	descriptors := make([]domain.ToolDescriptor, 0, 60)
	for i := 0; i < 60; i++ {
		descriptors = append(descriptors, domain.ToolDescriptor{
			Name:    fmt.Sprintf("get_thing_%02d", i),
			Summary: "A thing.",
			Method:  "GET",
			Path:    fmt.Sprintf("/api/v3/thing%02d", i),
			Tags:    []string{"thing"},
		})
	}
	catalog, err := domain.NewCatalog("test", descriptors)
	require.NoError(err)

	assert.Len(catalog.Discover(domain.Query{Category: "thing"}), domain.DefaultDiscoveryLimit)
	assert.Len(catalog.Discover(domain.Query{Category: "thing", Limit: 3}), 3)
	assert.Len(catalog.Discover(domain.Query{Category: "thing", Limit: 1000}), domain.MaxDiscoveryLimit)
}

func TestClampLimit(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(domain.DefaultDiscoveryLimit, domain.ClampLimit(0))
	assert.Equal(domain.DefaultDiscoveryLimit, domain.ClampLimit(-5))
	assert.Equal(7, domain.ClampLimit(7))
	assert.Equal(domain.MaxDiscoveryLimit, domain.ClampLimit(domain.MaxDiscoveryLimit+1))
}

func matchNames(matches []domain.Match) []string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Name)
	}
	return names
}
