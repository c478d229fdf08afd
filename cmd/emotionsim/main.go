// EmotionSim server — serves the control API, runs simulation engines, and
// streams run events to WebSocket observers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/emotionsim/emotionsim/pkg/api"
	"github.com/emotionsim/emotionsim/pkg/config"
	"github.com/emotionsim/emotionsim/pkg/database"
	"github.com/emotionsim/emotionsim/pkg/events"
	"github.com/emotionsim/emotionsim/pkg/llm"
	"github.com/emotionsim/emotionsim/pkg/sim"
	"github.com/emotionsim/emotionsim/pkg/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML configuration file")
	memoryOnly := flag.Bool("memory", false, "run on the in-memory store without PostgreSQL")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Persistence: PostgreSQL in production, in-memory with -memory.
	var (
		st       store.Store
		dbClient *database.Client
	)
	if *memoryOnly {
		st = store.NewMemoryStore()
		logger.Info("using in-memory store, runs will not survive restarts")
	} else {
		dbCfg, err := database.LoadConfigFromEnv()
		if err != nil {
			logger.Error("failed to load database config", "error", err)
			os.Exit(1)
		}
		dbClient, err = database.NewClient(ctx, dbCfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbClient.Close()
		st = store.NewPostgresStore(dbClient.DB())
		logger.Info("connected to PostgreSQL", "host", dbCfg.Host, "database", dbCfg.Database)
	}

	// Runs left in running state by a previous process resume as paused.
	if n, err := st.ResetRunningRuns(ctx); err != nil {
		logger.Error("failed to reset interrupted runs", "error", err)
		os.Exit(1)
	} else if n > 0 {
		logger.Info("reset interrupted runs to paused", "count", n)
	}

	if err := seedBuiltinScenario(ctx, st); err != nil {
		logger.Error("failed to seed built-in scenario", "error", err)
		os.Exit(1)
	}

	oracle := llm.NewHTTPOracle(cfg.LLM.BaseURL, cfg.LLM.APIKey)
	logger.Info("llm oracle configured", "base_url", cfg.LLM.BaseURL, "model", cfg.LLM.Model)

	manager := sim.NewManager(ctx, st, oracle, cfg.Engine, cfg.LLM, logger)
	connManager := events.NewConnectionManager(manager, cfg.Server.WriteTimeout, logger)

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(st, manager, connManager, dbClient, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("http server listening", "addr", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		logger.Error("http server error", "error", err)
	}

	// Stop engines first so the final step of every run is persisted, then
	// close the listener.
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	manager.Shutdown(shutdownCtx)

	httpCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// seedBuiltinScenario makes the demonstration scenario available on a fresh
// deployment. Already-seeded stores are left untouched.
func seedBuiltinScenario(ctx context.Context, st store.Store) error {
	scenario := sim.RisingFlood()
	if _, err := st.GetScenario(ctx, scenario.ID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return st.CreateScenario(ctx, scenario)
}
