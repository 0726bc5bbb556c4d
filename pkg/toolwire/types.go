// Package toolwire defines the JSON payload shapes the meta-tools return to
// agents. They are deliberately free of internal types so clients can depend
// on them directly.
package toolwire

import "encoding/json"

// ToolSummary is one entry of a discovery response: enough for the agent to
// pick a tool, never the full schema.
type ToolSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	MatchScore  int      `json:"match_score,omitempty"`
}

// DiscoverResult is the payload of a discover_tools call.
type DiscoverResult struct {
	Tools []ToolSummary `json:"tools"`
}

// ToolSchema is the payload of a get_tool_schema call: the full input schema
// plus the response shape when known.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Method      string          `json:"method,omitempty"`
	Path        string          `json:"path,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
	Returns     json.RawMessage `json:"returns,omitempty"`
}

// ErrorBody is the structured error payload returned for failed tool calls.
// Kind distinguishes the error classes an agent can react to.
type ErrorBody struct {
	Error  string   `json:"error"`
	Kind   string   `json:"kind,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// Error kinds.
const (
	KindNotFound   = "not_found"
	KindValidation = "validation"
	KindUpstream   = "upstream"
)
