package domain

import (
	"fmt"
	"strings"
)

// SchemaError reports that the upstream API document could not be parsed or
// indexed. Fatal at startup; never retried.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema error: %s: %v", e.Reason, e.Err)
	}
	return "schema error: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Err }

// NotFoundError reports that a requested tool name is absent from the
// catalog. Recoverable: the caller should rediscover, not retry the same
// call.
type NotFoundError struct {
	Tool string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found in catalog", e.Tool)
}

// ValidationError reports invocation arguments that fail validation against
// the tool's declared parameters. Fields names the offending keys so the
// caller can self-correct.
type ValidationError struct {
	Tool   string
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid arguments for tool %q: %s", e.Tool, e.Reason)
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	return msg
}

// UpstreamError reports a failed call to the downstream API: network error,
// timeout, or a non-2xx status. Body is truncated; raw transport detail never
// reaches the agent. The core does not retry.
type UpstreamError struct {
	StatusCode int
	Body       string
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Timeout:
		return "upstream call timed out"
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
	case e.Err != nil:
		return "upstream call failed: " + e.Err.Error()
	}
	return "upstream call failed"
}

func (e *UpstreamError) Unwrap() error { return e.Err }
