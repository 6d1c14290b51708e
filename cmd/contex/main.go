package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/common"
	"github.com/ternarybob/contex/internal/embeddings"
	"github.com/ternarybob/contex/internal/orchestrator"
	"github.com/ternarybob/contex/internal/server"
)

// configPaths is a custom flag type allowing multiple -config flags,
// later ones overriding earlier ones (mirrors cmd/quaero/main.go).
type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("contex version %s\n", common.GetVersion())
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("contex.toml"); err == nil {
			configFiles = append(configFiles, "contex.toml")
		}
	}

	// Startup sequence (required order): load config -> apply CLI
	// overrides -> initialize logger -> wire orchestrator -> start server.
	cfg, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Strs("paths", configFiles).Msg("failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(cfg, *serverPort, *serverHost)

	logger := common.SetupLogger(cfg)
	logger.Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Server.Port).
		Str("host", cfg.Server.Host).
		Float64("threshold", cfg.Matcher.Threshold).
		Msg("contex configuration loaded")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	embedder, err := embeddings.NewClient(ctx, &cfg.Embedding, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize embedding client")
	}

	engine := orchestrator.New(cfg, logger, embedder)
	stopSweep := engine.StartSweep()
	defer stopSweep()

	srv := server.New(engine, cfg, logger)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("server goroutine panicked")
			}
		}()
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("contex ready - press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down contex")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	common.Stop()
	logger.Info().Msg("contex stopped")
}
