package httpinvoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/toolarr/toolarr/internal/domain"
	"github.com/toolarr/toolarr/internal/usecase"
)

// apiKeyHeader is the authentication header the upstream media server expects.
const apiKeyHeader = "X-Api-Key"

// maxErrorBody caps how much of an upstream error body is carried into the
// returned error. Enough context to debug, not enough to flood a log line.
const maxErrorBody = 512

// Invoker implements usecase.ToolInvoker over standard net/http against a
// single upstream base URL. The API key is injected on every request.
type Invoker struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a new HTTP Invoker for the upstream at baseURL.
func New(baseURL, apiKey string, client *http.Client, logger *slog.Logger) (*Invoker, error) {
	if client == nil {
		client = http.DefaultClient
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("upstream base URL %q must use http or https", baseURL)
	}
	return &Invoker{
		baseURL: parsed,
		apiKey:  apiKey,
		client:  client,
		logger:  logger.With("component", "http_invoker"),
	}, nil
}

// Invoke executes one upstream call. Transport failures, timeouts and non-2xx
// statuses come back as *domain.UpstreamError; the caller decides what to do
// with them. No retries here.
func (i *Invoker) Invoke(ctx context.Context, spec usecase.RequestSpec) (usecase.UpstreamResponse, error) {
	log := i.logger.With(
		slog.String("method", spec.Method),
		slog.String("path", spec.Path),
	)

	target := *i.baseURL
	target.Path = path.Join(i.baseURL.Path, spec.Path)
	if len(spec.Query) > 0 {
		target.RawQuery = spec.Query.Encode()
	}

	var body io.Reader
	if spec.Body != nil {
		data, err := json.Marshal(spec.Body)
		if err != nil {
			return usecase.UpstreamResponse{}, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, target.String(), body)
	if err != nil {
		return usecase.UpstreamResponse{}, fmt.Errorf("creating upstream request: %w", err)
	}
	for key, values := range spec.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if spec.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if i.apiKey != "" {
		req.Header.Set(apiKeyHeader, i.apiKey)
	}

	log.Debug("Executing upstream request.", slog.String("url", target.Redacted()))
	resp, err := i.client.Do(req)
	if err != nil {
		log.Warn("Upstream request failed.", slog.Any("error", err))
		return usecase.UpstreamResponse{}, &domain.UpstreamError{
			Timeout: isTimeout(err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return usecase.UpstreamResponse{}, &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("reading upstream response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("Upstream returned non-success status.",
			slog.Int("status_code", resp.StatusCode))
		return usecase.UpstreamResponse{}, &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       truncate(respBody, maxErrorBody),
		}
	}

	log.Debug("Upstream request succeeded.", slog.Int("status_code", resp.StatusCode))
	return usecase.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Payload:    decodePayload(log, resp.Header.Get("Content-Type"), respBody),
	}, nil
}

// decodePayload parses a JSON body into generic Go values; anything else is
// passed through as a string. An empty body decodes to nil.
func decodePayload(log *slog.Logger, contentType string, body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	if strings.Contains(contentType, "application/json") {
		var payload interface{}
		if err := json.Unmarshal(body, &payload); err == nil {
			return payload
		}
		log.Warn("Failed to decode JSON response, returning raw body.")
	}
	return string(body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
