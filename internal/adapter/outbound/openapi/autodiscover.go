package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Schema endpoints probed when the configured source is a bare server URL.
// Sonarr-family servers publish under /api/v3; the rest cover the common
// framework defaults.
var commonSchemaPaths = []string{
	"/api/v3/openapi.json",
	"/openapi.json",
	"/docs/openapi.json",
	"/swagger.json",
	"/swagger/v1/swagger.json",
	"/v3/api-docs",
	"/api-docs",
}

const probeTimeout = 5 * time.Second

// AutoDiscoverer locates the OpenAPI document behind a base server URL by
// probing well-known schema paths.
type AutoDiscoverer struct {
	client *http.Client
	logger *slog.Logger
}

// NewAutoDiscoverer creates a new AutoDiscoverer.
func NewAutoDiscoverer(client *http.Client, logger *slog.Logger) *AutoDiscoverer {
	return &AutoDiscoverer{
		client: client,
		logger: logger.With("component", "openapi_autodiscoverer"),
	}
}

// Resolve maps a configured source to a concrete schema URL. Sources that
// already point at a schema document pass through untouched; bare server URLs
// are probed. Probe failures fall back to the original source so explicit
// configurations keep working.
func (d *AutoDiscoverer) Resolve(ctx context.Context, source string, headers map[string]string) (string, error) {
	log := d.logger.With(slog.String("source", source))

	lower := strings.ToLower(source)
	if strings.HasSuffix(lower, ".json") ||
		strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml") ||
		strings.Contains(lower, "openapi") ||
		strings.Contains(lower, "swagger") ||
		strings.Contains(lower, "api-docs") {
		log.Debug("Source appears to be a direct schema URL.")
		return source, nil
	}

	log.Info("Source appears to be a base URL, attempting auto-discovery.")
	discovered, err := d.discover(ctx, source, headers)
	if err != nil {
		log.Warn("Auto-discovery failed, using original source.", slog.Any("error", err))
		return source, nil
	}
	return discovered, nil
}

func (d *AutoDiscoverer) discover(ctx context.Context, baseURL string, headers map[string]string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("base URL must include scheme (http:// or https://)")
	}

	base := strings.TrimRight(baseURL, "/")
	for _, path := range commonSchemaPaths {
		probeURL := base + path
		d.logger.Debug("Probing schema path.", slog.String("url", probeURL))

		ok, err := d.probe(ctx, probeURL, headers)
		if err != nil {
			d.logger.Debug("Probe failed.", slog.String("url", probeURL), slog.Any("error", err))
			continue
		}
		if ok {
			d.logger.Info("Found OpenAPI schema.", slog.String("url", probeURL))
			return probeURL, nil
		}
	}
	return "", fmt.Errorf("no OpenAPI schema found at base URL %s", baseURL)
}

// probe checks whether the URL answers with a JSON document. Status and
// content type are enough; the fetcher parses properly afterwards.
func (d *AutoDiscoverer) probe(ctx context.Context, probeURL string, headers map[string]string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json, application/vnd.oai.openapi+json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	contentType := resp.Header.Get("Content-Type")
	return strings.Contains(contentType, "application/json") ||
		strings.Contains(contentType, "application/vnd.oai.openapi+json"), nil
}
