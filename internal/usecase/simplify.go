package usecase

import (
	"github.com/toolarr/toolarr/internal/domain"
)

// SimplifyPolicy trims upstream payloads for one tool category. Fields is an
// allowlist applied to the top level of each result object; an empty list
// means pass the object through untouched.
type SimplifyPolicy struct {
	Fields []string `yaml:"fields"`
}

// Paged envelope keys. Upstream list endpoints wrap results in a paging
// envelope; only the total and the records themselves are useful to an
// agent.
const (
	pagedRecordsKey = "records"
	pagedTotalKey   = "totalRecords"
)

// Simplifier reduces raw upstream JSON to the fields an agent needs,
// according to a per-category policy. Categories without a policy pass
// through unchanged.
type Simplifier struct {
	policies map[string]SimplifyPolicy
}

// NewSimplifier creates a Simplifier. A nil policy map selects the built-in
// defaults.
func NewSimplifier(policies map[string]SimplifyPolicy) *Simplifier {
	if policies == nil {
		policies = DefaultSimplifyPolicies()
	}
	normalized := make(map[string]SimplifyPolicy, len(policies))
	for category, policy := range policies {
		normalized[domain.NormalizeTag(category)] = policy
	}
	return &Simplifier{policies: normalized}
}

// DefaultSimplifyPolicies returns the built-in field allowlists per upstream
// category. These mirror what an agent actually consumes from each endpoint
// family; everything else is server-internal bookkeeping.
func DefaultSimplifyPolicies() map[string]SimplifyPolicy {
	return map[string]SimplifyPolicy{
		"series": {Fields: []string{
			"id", "title", "year", "status", "monitored", "tvdbId", "statistics",
		}},
		"episode": {Fields: []string{
			"id", "seriesId", "seasonNumber", "episodeNumber", "title", "airDate", "hasFile", "monitored",
		}},
		"calendar": {Fields: []string{
			"seriesId", "seasonNumber", "episodeNumber", "title", "airDateUtc", "hasFile",
		}},
		"queue": {Fields: []string{
			"id", "seriesId", "episodeId", "quality", "size", "sizeleft", "status", "trackedDownloadStatus", "downloadClient",
		}},
		"history": {Fields: []string{
			"id", "seriesId", "episodeId", "date", "eventType", "quality",
		}},
		"wanted": {Fields: []string{
			"id", "seriesId", "seasonNumber", "episodeNumber", "title", "airDate",
		}},
	}
}

// Simplify applies the category's policy to a decoded upstream payload.
// Lists are projected element-wise; paged envelopes keep totalRecords plus
// the projected records and drop the rest of the paging bookkeeping. Scalars
// and unknown categories are returned unchanged.
func (s *Simplifier) Simplify(category string, payload interface{}) interface{} {
	policy, ok := s.policies[domain.NormalizeTag(category)]
	if !ok || len(policy.Fields) == 0 {
		return payload
	}

	switch v := payload.(type) {
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = projectFields(item, policy.Fields)
		}
		return out
	case map[string]interface{}:
		if records, paged := v[pagedRecordsKey].([]interface{}); paged {
			projected := make([]interface{}, len(records))
			for i, item := range records {
				projected[i] = projectFields(item, policy.Fields)
			}
			return map[string]interface{}{
				pagedTotalKey:   v[pagedTotalKey],
				pagedRecordsKey: projected,
			}
		}
		return projectFields(v, policy.Fields)
	}
	return payload
}

func projectFields(item interface{}, fields []string) interface{} {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return item
	}
	out := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		if val, present := obj[field]; present {
			out[field] = val
		}
	}
	return out
}
