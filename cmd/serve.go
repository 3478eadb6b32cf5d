package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dataflywheel/chatgate/internal/agent"
	"github.com/dataflywheel/chatgate/internal/api"
	"github.com/dataflywheel/chatgate/internal/catalog"
	"github.com/dataflywheel/chatgate/internal/config"
	"github.com/dataflywheel/chatgate/internal/gateway"
	"github.com/dataflywheel/chatgate/internal/log"
	"github.com/dataflywheel/chatgate/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing := setupTracing(ctx, cfg, logger)
	defer shutdownTracing()

	logger.Info("starting gateway", "version", Version)

	// Discovery connection: fetch the tool catalog once so the runtime can
	// register every tool. It stays open afterwards to back the readiness
	// probe; per-client sessions dial their own connections.
	disco, err := catalog.Dial(ctx, cfg.ToolServer, Version, logger)
	if err != nil {
		return fmt.Errorf("dialing tool server: %w", err)
	}
	defer func() {
		if closeErr := disco.Close(); closeErr != nil {
			logger.Warn("closing discovery connection", "error", closeErr)
		}
	}()

	tools, err := disco.Tools(ctx)
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}
	logger.Info("discovered tools", "server", cfg.ToolServer.Name, "count", len(tools))

	rt, err := agent.NewRuntime(ctx, cfg, tools, logger)
	if err != nil {
		return fmt.Errorf("initializing agent runtime: %w", err)
	}

	registry := session.NewRegistry(sessionFactory(cfg, rt, logger), logger)
	defer registry.Shutdown()

	manager := gateway.NewManager(logger)
	loop := gateway.NewLoop(manager, registry, cfg, logger)

	srv := api.NewServer(api.ServerConfig{
		Registry: registry,
		WS:       gateway.NewWSHandler(loop, logger),
		Ready: func(ctx context.Context) error {
			_, err := disco.Tools(ctx)
			return err
		},
		Logger: logger,
	})

	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}

// sessionFactory builds one session per client. Each session gets its own
// tool server connection; the shared runtime only carries the model and the
// tool registrations.
func sessionFactory(cfg *config.Config, rt *agent.Runtime, logger log.Logger) session.Factory {
	return func(ctx context.Context, id string) (*session.Session, error) {
		client, err := catalog.Dial(ctx, cfg.ToolServer, Version, logger)
		if err != nil {
			return nil, &agent.InitializationError{Stage: "dial", Err: err}
		}

		systemPrompt := agent.SystemPrompt(ctx, client, cfg, logger)
		adapter := rt.NewAdapter(client)

		return session.New(id, systemPrompt, adapter, cfg.RespondTimeoutDuration(), logger), nil
	}
}

// setupTracing exports spans over OTLP HTTP when an endpoint is configured.
// Genkit owns the TracerProvider, so the exporter is registered there.
func setupTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	// Genkit's TracerProvider reads these at Init time.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)
	logger.Debug("tracing enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
