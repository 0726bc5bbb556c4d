package domain

import (
	"sort"
	"strings"
)

// Discovery result bounds. A query may ask for fewer results; it can never
// obtain more than MaxDiscoveryLimit in one response.
const (
	DefaultDiscoveryLimit = 10
	MaxDiscoveryLimit     = 50
)

// Keyword match weights, highest to lowest: an exact name match beats a
// partial name match, which beats a tag match, which beats a summary
// substring.
const (
	scoreExactName     = 100
	scoreNameSubstr    = 60
	scoreTagMatch      = 40
	scoreSummarySubstr = 20
)

// Query is a transient discovery request. Zero values mean "unset"; a zero
// Limit falls back to DefaultDiscoveryLimit.
type Query struct {
	Category string
	Keyword  string
	Limit    int
}

// IsEmpty reports whether the query carries no filter and no explicit limit.
// Callers treat an empty query as a request for the bootstrap subset rather
// than the whole catalog.
func (q Query) IsEmpty() bool {
	return q.Category == "" && q.Keyword == "" && q.Limit == 0
}

// Match is one discovery hit. It deliberately omits parameter schemas; the
// agent must resolve the schema separately before invoking.
type Match struct {
	Name    string   `json:"name"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Score   int      `json:"score"`
}

// Discover returns the ranked, bounded subset of the catalog matching the
// query. Category filters by tag (exact, case-insensitive); keyword scores
// candidates against name, tags and summary. Results are ordered by
// descending score, ties broken by ascending name so output is reproducible.
// An empty result is a valid outcome, distinct from any error.
//
// Discover never mutates the catalog and is safe for concurrent callers.
func (c *Catalog) Discover(q Query) []Match {
	var candidates []string
	if q.Category != "" {
		candidates = c.NamesByTag(q.Category)
	} else {
		candidates = c.names
	}

	tokens := Tokenize(q.Keyword)
	matches := make([]Match, 0, len(candidates))
	for _, name := range candidates {
		d := c.byName[name]
		score := 0
		if len(tokens) > 0 {
			score = scoreDescriptor(d, tokens)
			if score == 0 {
				continue
			}
		}
		matches = append(matches, Match{
			Name:    d.Name,
			Summary: d.Summary,
			Tags:    d.Tags,
			Score:   score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})

	limit := ClampLimit(q.Limit)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// ClampLimit normalizes a requested result bound: zero or negative falls back
// to the default, anything above the hard ceiling is clamped to it.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultDiscoveryLimit
	case limit > MaxDiscoveryLimit:
		return MaxDiscoveryLimit
	}
	return limit
}

func scoreDescriptor(d *ToolDescriptor, tokens []string) int {
	name := strings.ToLower(d.Name)
	summary := strings.ToLower(d.Summary)

	total := 0
	for _, tok := range tokens {
		switch {
		case name == tok:
			total += scoreExactName
		case strings.Contains(name, tok):
			total += scoreNameSubstr
		case tagMatches(d.Tags, tok):
			total += scoreTagMatch
		case strings.Contains(summary, tok):
			total += scoreSummarySubstr
		}
	}
	return total
}

func tagMatches(tags []string, token string) bool {
	for _, tag := range tags {
		if NormalizeTag(tag) == token {
			return true
		}
	}
	return false
}
