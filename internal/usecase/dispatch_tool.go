package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/xeipuuv/gojsonschema"
	"github.com/yosida95/uritemplate/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/toolarr/toolarr/internal/domain"
)

// DispatchToolUseCase validates one tool invocation, maps its arguments onto
// an upstream request, delegates to the ToolInvoker, and simplifies the
// response before returning it. No retries: retry policy belongs to the
// caller.
type DispatchToolUseCase struct {
	store      CatalogStore
	invoker    ToolInvoker
	simplifier *Simplifier
	logger     *slog.Logger
	tracer     trace.Tracer
	dispatches metric.Int64Counter
}

// NewDispatchToolUseCase creates a new DispatchToolUseCase.
func NewDispatchToolUseCase(store CatalogStore, invoker ToolInvoker, simplifier *Simplifier, logger *slog.Logger) *DispatchToolUseCase {
	counter, err := otel.Meter("toolarr/dispatch").Int64Counter(
		"toolarr.dispatch.count",
		metric.WithDescription("Tool dispatches by outcome."),
	)
	if err != nil {
		logger.Warn("Dispatch counter unavailable.", slog.Any("error", err))
	}
	return &DispatchToolUseCase{
		store:      store,
		invoker:    invoker,
		simplifier: simplifier,
		logger:     logger.With("usecase", "DispatchTool"),
		tracer:     otel.Tracer("toolarr/dispatch"),
		dispatches: counter,
	}
}

// Execute runs one invocation end to end. Failure modes, in order:
// *domain.NotFoundError for an unknown tool, *domain.ValidationError for bad
// arguments, *domain.UpstreamError for transport failures, timeouts and
// non-2xx statuses.
func (uc *DispatchToolUseCase) Execute(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	invocationID := uuid.NewString()
	log := uc.logger.With(
		slog.String("tool_name", toolName),
		slog.String("invocation_id", invocationID),
	)

	ctx, span := uc.tracer.Start(ctx, "dispatch_tool",
		trace.WithAttributes(attribute.String("tool.name", toolName)))
	defer span.End()

	catalog, err := uc.store.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("dispatch unavailable: %w", err)
	}
	descriptor, ok := catalog.Get(toolName)
	if !ok {
		uc.count(ctx, "not_found")
		return nil, &domain.NotFoundError{Tool: toolName}
	}

	if err := validateArguments(descriptor, args); err != nil {
		uc.count(ctx, "invalid_arguments")
		log.Warn("Invocation rejected.", slog.Any("error", err))
		return nil, err
	}

	req, err := assembleRequest(descriptor, args)
	if err != nil {
		uc.count(ctx, "invalid_arguments")
		return nil, err
	}

	log.Info("Dispatching tool invocation.",
		slog.String("method", req.Method),
		slog.String("path", req.Path))
	resp, err := uc.invoker.Invoke(ctx, req)
	if err != nil {
		uc.count(ctx, "upstream_error")
		span.RecordError(err)
		log.Warn("Upstream invocation failed.", slog.Any("error", err))
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) {
			return nil, err
		}
		return nil, &domain.UpstreamError{Err: err}
	}

	uc.count(ctx, "ok")
	log.Debug("Invocation succeeded.", slog.Int("status_code", resp.StatusCode))
	return uc.simplifier.Simplify(primaryCategory(descriptor), resp.Payload), nil
}

func (uc *DispatchToolUseCase) count(ctx context.Context, outcome string) {
	if uc.dispatches != nil {
		uc.dispatches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// validateArguments checks the supplied arguments against the descriptor's
// parameter list: unknown names are rejected rather than silently dropped,
// every required parameter must be present, and values must satisfy the
// declared input schema.
func validateArguments(d *domain.ToolDescriptor, args map[string]interface{}) error {
	declared := make(map[string]struct{}, len(d.Parameters))
	for _, p := range d.Parameters {
		declared[p.Name] = struct{}{}
	}

	var unknown []string
	for name := range args {
		if _, ok := declared[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &domain.ValidationError{Tool: d.Name, Fields: unknown, Reason: "unknown arguments"}
	}

	var missing []string
	for _, p := range d.Parameters {
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &domain.ValidationError{Tool: d.Name, Fields: missing, Reason: "missing required arguments"}
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(d.InputSchema),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("argument schema validation for tool %q: %w", d.Name, err)
	}
	if !result.Valid() {
		var fields []string
		reason := "arguments do not satisfy the tool schema"
		for _, resErr := range result.Errors() {
			if f := resErr.Field(); f != "" && f != "(root)" {
				fields = append(fields, f)
			}
		}
		sort.Strings(fields)
		return &domain.ValidationError{Tool: d.Name, Fields: fields, Reason: reason}
	}
	return nil
}

// assembleRequest partitions the validated arguments by declared location and
// produces the upstream request shape: substituted path, query values, and a
// JSON body map.
func assembleRequest(d *domain.ToolDescriptor, args map[string]interface{}) (RequestSpec, error) {
	req := RequestSpec{
		Method: d.Method,
		Query:  url.Values{},
		Header: http.Header{},
		Body:   map[string]interface{}{},
	}

	vars := uritemplate.Values{}
	var badPath []string
	for _, p := range d.Parameters {
		val, present := args[p.Name]
		switch p.In {
		case domain.LocationPath:
			s, err := cast.ToStringE(val)
			if err != nil || s == "" {
				badPath = append(badPath, p.Name)
				continue
			}
			vars[p.Name] = uritemplate.String(s)
		case domain.LocationQuery:
			if !present {
				continue
			}
			if items, ok := val.([]interface{}); ok {
				for _, item := range items {
					req.Query.Add(p.Name, cast.ToString(item))
				}
			} else {
				req.Query.Add(p.Name, cast.ToString(val))
			}
		case domain.LocationHeader:
			if present {
				req.Header.Set(p.Name, cast.ToString(val))
			}
		default:
			if present {
				req.Body[p.Name] = val
			}
		}
	}
	if len(badPath) > 0 {
		sort.Strings(badPath)
		return RequestSpec{}, &domain.ValidationError{
			Tool:   d.Name,
			Fields: badPath,
			Reason: "path parameters require non-empty scalar values",
		}
	}

	tmpl, err := uritemplate.New(d.Path)
	if err != nil {
		return RequestSpec{}, fmt.Errorf("path template %q for tool %q: %w", d.Path, d.Name, err)
	}
	path, err := tmpl.Expand(vars)
	if err != nil {
		return RequestSpec{}, &domain.ValidationError{
			Tool:   d.Name,
			Reason: fmt.Sprintf("cannot expand path template: %v", err),
		}
	}
	req.Path = path

	if len(req.Body) == 0 {
		req.Body = nil
	}
	return req, nil
}

func primaryCategory(d *domain.ToolDescriptor) string {
	if len(d.Tags) == 0 {
		return ""
	}
	return d.Tags[0]
}
