package openapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/toolarr/toolarr/internal/domain"
	"github.com/toolarr/toolarr/internal/usecase"
)

// SchemaFetcher implements usecase.SchemaFetcher for OpenAPI documents. It
// loads a schema from an HTTP(S) URL or a local file path, auto-discovering
// the exact schema endpoint when only a base server URL is configured.
type SchemaFetcher struct {
	httpClient     *http.Client
	logger         *slog.Logger
	autoDiscoverer *AutoDiscoverer
}

// NewSchemaFetcher creates a new OpenAPI SchemaFetcher.
func NewSchemaFetcher(client *http.Client, logger *slog.Logger) *SchemaFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &SchemaFetcher{
		httpClient:     client,
		logger:         logger.With("component", "openapi_fetcher"),
		autoDiscoverer: NewAutoDiscoverer(client, logger),
	}
}

// Fetch loads and parses the OpenAPI document named by cfg. Custom headers
// (API keys and the like) are sent on every HTTP request; they are ignored for
// local files.
func (f *SchemaFetcher) Fetch(ctx context.Context, cfg usecase.SchemaSourceConfig) (domain.APIDocument, error) {
	log := f.logger.With(slog.String("source", cfg.URL))
	log.Info("Fetching OpenAPI schema.")

	resolvedSrc, err := f.autoDiscoverer.Resolve(ctx, cfg.URL, cfg.Headers)
	if err != nil {
		log.Warn("Failed to resolve schema source.", slog.Any("error", err))
		resolvedSrc = cfg.URL
	} else if resolvedSrc != cfg.URL {
		log.Info("Auto-discovered OpenAPI schema.", slog.String("resolved_url", resolvedSrc))
	}

	var rawData []byte
	u, parseErr := url.ParseRequestURI(resolvedSrc)
	if parseErr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		rawData, err = f.fetchURL(ctx, resolvedSrc, cfg.Headers)
		if err != nil {
			return domain.APIDocument{}, err
		}
	} else {
		log.Debug("Assuming local file path.")
		rawData, err = os.ReadFile(resolvedSrc)
		if err != nil {
			if parseErr == nil {
				return domain.APIDocument{}, fmt.Errorf("source %q is neither a fetchable URL nor a local file: %w", resolvedSrc, err)
			}
			return domain.APIDocument{}, fmt.Errorf("reading schema from file %s: %w", resolvedSrc, err)
		}
	}

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromData(rawData)
	if err != nil {
		log.Error("Failed to parse OpenAPI schema data.", slog.Any("error", err))
		return domain.APIDocument{}, &domain.SchemaError{
			Reason: fmt.Sprintf("parsing OpenAPI schema from %s", cfg.URL),
			Err:    err,
		}
	}
	if validateErr := doc.Validate(ctx); validateErr != nil {
		// Upstream documents are frequently sloppy; log and carry on.
		log.Warn("OpenAPI schema validation failed.", slog.Any("validation_error", validateErr))
	}

	log.Info("Successfully fetched and parsed OpenAPI schema.")
	return domain.APIDocument{
		Source:  cfg.URL,
		RawData: rawData,
		Parsed:  doc,
	}, nil
}

func (f *SchemaFetcher) fetchURL(ctx context.Context, src string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", src, err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching schema from URL %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("Received non-OK status code from schema URL.",
			slog.String("status", resp.Status), slog.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("fetching schema from URL %s: status %s", src, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading schema response from %s: %w", src, err)
	}
	return body, nil
}
