// Command monitor runs the read-only translation dashboard: an HTTP+WS
// server that surfaces whatever translate_volume run is in flight in
// this process, plus run history from internal/storage. Grounded on
// the teacher's cmd/monitor-server/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"digital.vasic.lnmtl/internal/config"
	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/monitor"
	"digital.vasic.lnmtl/internal/orchestrator"
	"digital.vasic.lnmtl/internal/security"
	"digital.vasic.lnmtl/internal/storage"
)

func main() {
	var configFile, translateBin string
	var generateAPIKey bool
	flag.StringVar(&configFile, "config", "", "Configuration file path")
	flag.StringVar(&translateBin, "translate-bin", "translate", "Path to the translate CLI binary, used by the retry-volume action")
	flag.BoolVar(&generateAPIKey, "generate-api-key", false, "Print a fresh CI API key to add to security.ci_api_keys, then exit")
	flag.Parse()

	if generateAPIKey {
		key, err := security.GenerateAPIKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "monitor: generate api key: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(key)
		os.Exit(0)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor: load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Monitor.Enabled {
		fmt.Fprintln(os.Stderr, "monitor: monitor.enabled is false in configuration")
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputFile: cfg.Logging.OutputFile})

	ctx := context.Background()
	orch, err := orchestrator.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor: initialize orchestrator: %v\n", err)
		os.Exit(1)
	}
	defer orch.Close()

	store, err := openStorage(cfg)
	if err != nil {
		log.Warn("monitor: run history storage unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
		store = nil
	} else {
		defer store.Close()
	}

	server := monitor.NewServer(cfg, log, orch, store, translateBin)
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor: server stopped: %v\n", err)
		os.Exit(1)
	}
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	sc := &storage.Config{Database: cfg.Monitor.StorageDSN}
	switch cfg.Monitor.StorageKind {
	case "postgres":
		return storage.NewPostgreSQLStorage(sc)
	case "redis":
		return storage.NewRedisStorage(sc, 0)
	default:
		return storage.NewSQLiteStorage(sc)
	}
}
