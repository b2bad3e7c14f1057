// Command server runs the CryptoSanta bulletin-board API.
//
// The server is an untrusted coordinator: the Chair creates a room with
// ElGamal parameters, participants register encrypted keys, the Chair uploads
// the sorted key list, and participants exchange encrypted address blobs. The
// server only stores opaque strings and enforces the room lifecycle.
//
// # Configuration File
//
// Create a YAML file with server settings:
//
//	listen_addr: ":8080"
//	metrics_addr: ":9090"
//	store:
//	  backend: badger
//	  badger_path: /var/lib/cryptosanta
//
// # Usage
//
//	go run ./cmd/server --config=server.yaml
//	go run ./cmd/server --addr=:8080 --store=memory
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chi-feng/cryptosanta/api/httpserver"
	"github.com/chi-feng/cryptosanta/cmd/common"
	"github.com/chi-feng/cryptosanta/room"
	"github.com/chi-feng/cryptosanta/services"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		addr         = flag.String("addr", "", "HTTP listen address")
		metricsAddr  = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		storeBackend = flag.String("store", "", "Record store backend: memory, badger or postgres")
		badgerPath   = flag.String("badger-path", "", "Data directory for the badger backend")
		enablePprof  = flag.Bool("pprof", false, "Enable the pprof debugging API")
		logJSON      = flag.Bool("log-json", false, "Log in JSON format")
		logDebug     = flag.Bool("log-debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *storeBackend != "" {
		cfg.Store.Backend = *storeBackend
	}
	if *badgerPath != "" {
		cfg.Store.BadgerPath = *badgerPath
	}
	if *enablePprof {
		cfg.EnablePprof = true
	}
	if *logJSON {
		cfg.LogJSON = true
	}
	if *logDebug {
		cfg.LogDebug = true
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*common.Config, error) {
	if configPath != "" {
		return common.LoadConfig(configPath)
	}
	return common.DefaultConfig(), nil
}

func newLogger(cfg *common.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.LogDebug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *common.Config) error {
	log := newLogger(cfg)

	records, err := common.OpenRecordStore(&cfg.Store)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer records.Close()

	rooms := room.NewStore(room.Config{Records: records, Log: log})
	api := services.NewRoomAPI(rooms, log)

	srv, err := httpserver.New(&httpserver.Config{
		ListenAddr:               cfg.ListenAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            cfg.DrainDuration,
		GracefulShutdownDuration: cfg.GracefulShutdownDuration,
	}, api)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Shutdown()
	return nil
}
