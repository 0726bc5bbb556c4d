package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolarr/toolarr/internal/domain"
	"github.com/toolarr/toolarr/internal/usecase"
)

func newDiscoverUC(t *testing.T, promoted []string) (*usecase.DiscoverToolsUseCase, *mockCatalogStore) {
	t.Helper()
	store := new(mockCatalogStore)
	core := usecase.NewCoreToolSet(promoted)
	return usecase.NewDiscoverToolsUseCase(store, core, testLogger()), store
}

func TestDiscoverTools_BootstrapSet(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uc, store := newDiscoverUC(t, []string{"get_series", "get_calendar", "not_in_catalog"})
	store.On("Snapshot").Return(testCatalog(t), nil)

	matches, err := uc.Execute(context.Background(), domain.Query{})
	require.NoError(err)

	// Meta-tools first, then the promoted operations that exist; the
	// configured-but-absent name is skipped silently.
	assert.Equal([]string{
		usecase.MetaToolDiscover,
		usecase.MetaToolSchema,
		usecase.MetaToolCall,
		"get_series",
		"get_calendar",
	}, matchNames(matches))
}

func TestDiscoverTools_AllCategoryMeansNoFilter(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uc, store := newDiscoverUC(t, nil)
	store.On("Snapshot").Return(testCatalog(t), nil)

	// "All" with nothing else is the empty query: bootstrap subset.
	matches, err := uc.Execute(context.Background(), domain.Query{Category: "All"})
	require.NoError(err)
	assert.Equal([]string{
		usecase.MetaToolDiscover,
		usecase.MetaToolSchema,
		usecase.MetaToolCall,
	}, matchNames(matches))

	// "All" with an explicit limit asks for the whole catalog (bounded).
	matches, err = uc.Execute(context.Background(), domain.Query{Category: "All", Limit: 50})
	require.NoError(err)
	assert.Len(matches, 3+4, "meta-tools plus every catalog tool")
}

func TestDiscoverTools_CategoryQuery(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uc, store := newDiscoverUC(t, nil)
	store.On("Snapshot").Return(testCatalog(t), nil)

	matches, err := uc.Execute(context.Background(), domain.Query{Category: "series"})
	require.NoError(err)
	assert.Equal([]string{"get_series", "get_series_by_id"}, matchNames(matches))

	matches, err = uc.Execute(context.Background(), domain.Query{Category: "movies"})
	require.NoError(err)
	assert.Empty(matches)
	assert.NotNil(matches, "no matches is an empty slice, not nil")
}

func TestDiscoverTools_KeywordFindsMetaTools(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uc, store := newDiscoverUC(t, nil)
	store.On("Snapshot").Return(testCatalog(t), nil)

	// Name match on discover_tools outranks the summary mention in call_tool.
	matches, err := uc.Execute(context.Background(), domain.Query{Keyword: "discover"})
	require.NoError(err)
	assert.Equal([]string{usecase.MetaToolDiscover, usecase.MetaToolCall}, matchNames(matches))
}

func TestDiscoverTools_MergedRanking(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uc, store := newDiscoverUC(t, nil)
	store.On("Snapshot").Return(testCatalog(t), nil)

	// "schema" hits get_tool_schema by name; catalog tools don't mention it.
	matches, err := uc.Execute(context.Background(), domain.Query{Keyword: "schema"})
	require.NoError(err)
	require.NotEmpty(matches)
	assert.Equal(usecase.MetaToolSchema, matches[0].Name)
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(matches[i].Score, matches[i-1].Score, "results ordered by descending score")
	}
}

func TestDiscoverTools_CatalogNotReady(t *testing.T) {
	require := require.New(t)

	uc, store := newDiscoverUC(t, nil)
	store.On("Snapshot").Return(nil, usecase.ErrCatalogNotReady)

	_, err := uc.Execute(context.Background(), domain.Query{Category: "series"})
	require.ErrorIs(err, usecase.ErrCatalogNotReady)
}

func matchNames(matches []domain.Match) []string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Name)
	}
	return names
}
