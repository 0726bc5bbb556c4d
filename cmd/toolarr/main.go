package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/toolarr/toolarr/configs"
	"github.com/toolarr/toolarr/internal/adapter/inbound/mcphttp"
	"github.com/toolarr/toolarr/internal/adapter/outbound/catalogstore"
	"github.com/toolarr/toolarr/internal/adapter/outbound/httpinvoker"
	"github.com/toolarr/toolarr/internal/adapter/outbound/openapi"
	"github.com/toolarr/toolarr/internal/usecase"

	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serverName    = "toolarr"
	serverVersion = "0.1.0"
)

func main() {
	var transport string
	flag.StringVar(&transport, "transport", "stdio", "Transport mode: stdio or sse")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// === Logging ===
	logLevel := cfg.ParsedLogLevel()
	var logger *slog.Logger
	if transport == "stdio" {
		// The MCP transport owns stdout in stdio mode; logs go to a file or
		// nowhere, never the protocol stream.
		logPath := cfg.LogFile
		if logPath == "" {
			logPath = "/tmp/toolarr.log"
		}
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: logLevel}))
		} else {
			logger = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: logLevel}))
		}
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	}
	slog.SetDefault(logger)
	logger.Info("Logger initialized.",
		slog.String("level", logLevel.String()),
		slog.String("transport", transport))

	// === OpenTelemetry Initialization ===
	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry.", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === MCP Server ===
	mcpSrv := mcpGoServer.NewMCPServer(serverName, serverVersion)
	logger.Info("MCP server initialized.")

	// === Dependency Injection ===
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	fetcher := openapi.NewSchemaFetcher(httpClient, logger)
	builder := openapi.NewCatalogBuilder(logger)
	store := catalogstore.New(logger)

	toolInvoker, err := httpinvoker.New(cfg.ServerURL, cfg.APIKey, httpClient, logger)
	if err != nil {
		logger.Error("Failed to configure upstream invoker.", slog.Any("error", err))
		os.Exit(1)
	}

	simplifier := usecase.NewSimplifier(simplifyPolicies(cfg))
	core := usecase.NewCoreToolSet(cfg.CoreTools)

	discoverUC := usecase.NewDiscoverToolsUseCase(store, core, logger)
	resolveUC := usecase.NewResolveSchemaUseCase(store, core, logger)
	dispatchUC := usecase.NewDispatchToolUseCase(store, toolInvoker, simplifier, logger)
	syncUC := usecase.NewSyncCatalogUseCase(
		usecase.SchemaSourceConfig{URL: cfg.SchemaSourceURL(), Headers: cfg.SchemaHeaders()},
		fetcher,
		builder,
		store,
		mcpSrv,
		core,
		discoverUC,
		resolveUC,
		dispatchUC,
		logger,
	)

	// === Initial Catalog Build ===
	// Synchronous: the server must not accept tool calls with an empty
	// catalog when the upstream is reachable.
	logger.Info("Performing initial catalog build.")
	if err := syncUC.Execute(ctx); err != nil {
		logger.Error("Initial catalog build failed. Startup continuing; tools unavailable until a reload succeeds.",
			slog.Any("error", err))
	}

	// === Transport ===
	switch transport {
	case "stdio":
		logger.Info("Starting in STDIO mode.")
		stdioServer := mcpGoServer.NewStdioServer(mcpSrv)
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("STDIO server error.", slog.Any("error", err))
			os.Exit(1)
		}

	case "sse":
		logger.Info("Starting in SSE mode.")
		sseServer := mcpGoServer.NewSSEServer(mcpSrv, mcpGoServer.WithBaseURL("http://"+cfg.ListenAddr))

		adminMux := http.NewServeMux()
		mcphttp.NewHandlers(syncUC, store, logger).RegisterAdminRoutes(adminMux)
		adminServer := &http.Server{
			Addr:         ":8081",
			Handler:      adminMux,
			ReadTimeout:  cfg.ServerReadTimeout,
			WriteTimeout: cfg.ServerWriteTimeout,
			IdleTimeout:  cfg.ServerIdleTimeout,
		}
		go func() {
			logger.Info("Admin HTTP server starting.", slog.String("address", adminServer.Addr))
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Admin HTTP server failed.", slog.Any("error", err))
			}
		}()

		go func() {
			logger.Info("MCP SSE server starting.", slog.String("address", cfg.ListenAddr))
			if err := sseServer.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("MCP SSE server failed.", slog.Any("error", err))
				stop()
			}
		}()

		<-ctx.Done()

		logger.Info("Shutting down servers.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Admin HTTP server graceful shutdown failed.", slog.Any("error", err))
		}
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("MCP SSE server graceful shutdown failed.", slog.Any("error", err))
		}
		logger.Info("Servers shut down gracefully.")

	default:
		logger.Error("Invalid transport mode.", slog.String("transport", transport))
		os.Exit(1)
	}
}

func simplifyPolicies(cfg *configs.Config) map[string]usecase.SimplifyPolicy {
	if len(cfg.SimplifyFields) == 0 {
		return nil
	}
	policies := make(map[string]usecase.SimplifyPolicy, len(cfg.SimplifyFields))
	for category, fields := range cfg.SimplifyFields {
		policies[category] = usecase.SimplifyPolicy{Fields: fields}
	}
	return policies
}

// initOtelProvider initializes the OpenTelemetry SDK and the OTLP gRPC trace
// exporter. It returns a shutdown function to be called on exit.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry tracing disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serverName),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
