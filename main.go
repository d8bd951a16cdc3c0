package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/noxhaven/world-engine/worldengine"
	"github.com/noxhaven/world-engine/worldengine/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	seedDistricts := flag.String("seed-districts", "", "comma-separated district names to seed on startup")
	flag.Parse()

	cfg, err := worldengine.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	customHandler := logger.NewHandler(cfg.Log.Level)
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting Noxhaven world engine",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	dbStartTime := time.Now()
	world, err := worldengine.NewWorld(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("World initialization failed",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	slog.Info("World initialized",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	if *seedDistricts != "" {
		names := strings.Split(*seedDistricts, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		if err := world.Ecosystem.Seed(ctx, names); err != nil {
			slog.Error("District seeding failed", slog.Any("error", err))
			os.Exit(-1)
		}
	}

	world.StartJobs()

	go func() {
		if err := world.API.Start(); err != nil {
			slog.Error("API server failed", slog.Any("error", err))
			os.Exit(-1)
		}
	}()

	slog.Info("World engine is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	slog.Info("Shutting down world engine...")
	world.Shutdown(10 * time.Second)
}
