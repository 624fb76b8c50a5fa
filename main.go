package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erhaops/workshop-core/config"
	"github.com/erhaops/workshop-core/journal"
	"github.com/erhaops/workshop-core/repository"
	"github.com/erhaops/workshop-core/server"
	"github.com/rs/zerolog"
)

var (
	configPath   string
	httpPort     string
	postgresHost string
	seedData     bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to an optional TOML config file")
	flag.StringVar(&httpPort, "http-port", "", "HTTP web server port (overrides config)")
	flag.StringVar(&postgresHost, "postgres-host", "", "DB host address (overrides config)")
	flag.BoolVar(&seedData, "seed", true, "Seed reference data on startup")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	if httpPort != "" {
		cfg.HTTPPort = httpPort
	}
	if postgresHost != "" {
		cfg.PostgresHost = postgresHost
		cfg.PostgresDSN = "postgresql://postgres:postgrespassword@" + cfg.PostgresHost + "/postgres"
	}
	if !seedData {
		cfg.SeedData = false
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	repo := repository.NewRepository()
	logger.Info().Str("dsn", cfg.PostgresDSN).Msg("Connecting to database")
	if err := repo.ConnectDB(cfg.PostgresDSN); err != nil {
		log.Fatalf("Connecting to database: %v", err)
	}
	if err := repo.Migrate(); err != nil {
		log.Fatalf("Migrating database: %v", err)
	}
	if cfg.SeedData {
		repo.Seed()
	}

	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Fatalf("Opening journal: %v", err)
	}
	defer func() {
		if err := jrnl.Close(); err != nil {
			logger.Error().Err(err).Msg("Closing journal")
		}
	}()
	repo.SetJournal(jrnl)

	webserver := server.NewWebServer(cfg.HTTPPort, logger, repo, jrnl, cfg.CORSOrigins)
	webserver.Start()

	// Wait for interrupt signal to gracefully shut down the server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := webserver.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Shutting down HTTP web server")
	}
	logger.Info().Msg("HTTP web server gracefully stopped")
}
