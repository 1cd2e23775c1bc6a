// opsbrief server — answers grounded plant-floor queries, generates
// scheduled briefings, and exposes the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/plantops/opsbrief/pkg/actions"
	"github.com/plantops/opsbrief/pkg/api"
	"github.com/plantops/opsbrief/pkg/briefing"
	"github.com/plantops/opsbrief/pkg/cache"
	"github.com/plantops/opsbrief/pkg/cleanup"
	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/database"
	"github.com/plantops/opsbrief/pkg/events"
	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/grounding"
	"github.com/plantops/opsbrief/pkg/llm"
	"github.com/plantops/opsbrief/pkg/memory"
	"github.com/plantops/opsbrief/pkg/scheduler"
	"github.com/plantops/opsbrief/pkg/tools"
	"github.com/plantops/opsbrief/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	slog.Info("Starting "+version.Full(), "http_port", httpPort, "config_dir", *configDir)

	ctx := context.Background()

	// 1. Configuration: plant areas, budgets, thresholds, schedule.
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Operational store. GATEWAY_MODE=stub runs without PostgreSQL
	// for local development.
	var (
		gw       gateway.Gateway
		dbClient *database.Client
	)
	if getEnv("GATEWAY_MODE", "postgres") == "stub" {
		gw = gateway.NewStubGateway(cfg.Location())
		slog.Warn("Running against the in-memory stub gateway; no data is seeded")
	} else {
		dbConfig, err := database.LoadConfigFromEnv()
		if err != nil {
			slog.Error("Failed to load database config", "error", err)
			os.Exit(1)
		}
		if err := database.RunMigrations(dbConfig.DSN()); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		dbClient, err = database.NewClient(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbClient.Close()

		gw, err = gateway.NewPostgresGateway(dbClient.Pool(), cfg.Location())
		if err != nil {
			slog.Error("Failed to build gateway", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected to PostgreSQL database")
	}

	// 3. Capability tools behind the tiered cache.
	deps := &tools.Deps{Gateway: gw, Config: cfg}
	engine := actions.NewEngine(gw, cfg)
	registry, err := tools.DefaultRegistry(deps, engine)
	if err != nil {
		slog.Error("Failed to build tool registry", "error", err)
		os.Exit(1)
	}
	exec := cache.NewExecutor(registry, cache.New(cfg.Cache))
	slog.Info("Tool registry initialized", "tools", registry.Len())

	// 4. Briefing orchestration, with retention on the record store.
	store := briefing.NewStore()
	orch := briefing.NewOrchestrator(exec, cfg, store)

	retention := cleanup.New(store, 0, 0)
	retention.Start(ctx)
	defer retention.Stop()

	// 5. Grounding. Without an API key the validator still runs, using
	// its whole-response fallback instead of LLM claim extraction.
	var llmClient llm.Client
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		client, err := llm.NewFromAPIKey(apiKey, getEnv("OPENAI_MODEL", "gpt-4o-mini"))
		if err != nil {
			slog.Error("Failed to initialize LLM client", "error", err)
			os.Exit(1)
		}
		llmClient = client
		slog.Info("LLM client initialized")
	} else {
		slog.Warn("OPENAI_API_KEY not set; claim extraction degrades to whole-response grounding")
	}
	validator := grounding.NewValidator(llmClient, cfg.Grounding)

	// 6. Ingestion events invalidate the caches.
	publisher := events.NewIngestionPublisher()
	publisher.Subscribe(events.CacheInvalidator(exec))
	publisher.Subscribe(events.ActionInvalidator(engine))

	// 7. Scheduled briefings for the configured recipients.
	var users []string
	for _, u := range strings.Split(getEnv("BRIEFING_USERS", ""), ",") {
		if u = strings.TrimSpace(u); u != "" {
			users = append(users, u)
		}
	}
	sched := scheduler.New(orch, cfg, users)
	if len(users) > 0 {
		if err := sched.Start(ctx); err != nil {
			slog.Error("Failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	} else {
		slog.Info("No BRIEFING_USERS configured; scheduled briefings disabled")
	}

	// 8. HTTP server.
	server := api.NewServer(api.Options{
		Config:    cfg,
		Executor:  exec,
		Engine:    engine,
		Briefings: orch,
		Store:     store,
		Validator: validator,
		Memories:  memory.NewStubStore(),
		Publisher: publisher,
		DB:        dbClient,
	})

	httpServer := &http.Server{
		Addr:    ":" + httpPort,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("opsbrief stopped")
}
