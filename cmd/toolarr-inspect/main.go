// Command toolarr-inspect builds the tool catalog from a schema source and
// prints what an agent would be able to discover. Useful for checking a
// server's generated tool names and categories before wiring up a client.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"

	"github.com/toolarr/toolarr/configs"
	"github.com/toolarr/toolarr/internal/adapter/outbound/openapi"
	"github.com/toolarr/toolarr/internal/domain"
	"github.com/toolarr/toolarr/internal/usecase"
)

func main() {
	var (
		source  = flag.String("source", "", "Schema URL or file path (default: from config)")
		verbose = flag.Bool("v", false, "Print every tool, not just the per-category counts")
	)
	flag.Parse()

	// Inspection output goes to stdout; logs stay out of the way.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("TOOLARR_LOG_LEVEL") == "debug" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	src := *source
	headers := cfg.SchemaHeaders()
	if src == "" {
		src = cfg.SchemaSourceURL()
	}

	fetcher := openapi.NewSchemaFetcher(&http.Client{Timeout: cfg.HTTPClientTimeout}, logger)
	builder := openapi.NewCatalogBuilder(logger)

	doc, err := fetcher.Fetch(context.Background(), usecase.SchemaSourceConfig{URL: src, Headers: headers})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch schema: %v\n", err)
		os.Exit(1)
	}
	catalog, err := builder.Build(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build catalog: %v\n", err)
		os.Exit(1)
	}

	printSummary(catalog, *verbose)
}

func printSummary(catalog *domain.Catalog, verbose bool) {
	fmt.Printf("Source:  %s\n", catalog.Source())
	fmt.Printf("Tools:   %d\n", catalog.Len())
	fmt.Printf("Tags:    %d\n\n", len(catalog.Tags()))

	for _, tag := range catalog.Tags() {
		names := catalog.NamesByTag(tag)
		fmt.Printf("%-20s %d\n", tag, len(names))
		if !verbose {
			continue
		}
		for _, name := range names {
			d, _ := catalog.Get(name)
			deprecated := ""
			if d.Deprecated {
				deprecated = " (deprecated)"
			}
			fmt.Printf("    %-40s %s %s%s\n", d.Name, d.Method, d.Path, deprecated)
		}
	}

	if verbose {
		fmt.Println()
		names := append([]string(nil), catalog.Names()...)
		sort.Strings(names)
		for _, name := range names {
			d, _ := catalog.Get(name)
			fmt.Printf("%s\n    %s\n", d.Name, d.Summary)
		}
	}
}
