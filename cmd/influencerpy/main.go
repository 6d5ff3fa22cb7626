package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cristianleoo/influencerpy/internal/app"
	"github.com/cristianleoo/influencerpy/internal/config"
	"github.com/cristianleoo/influencerpy/internal/logging"
)

func main() {
	watch := flag.Bool("watch", false, "run scouts on the configured schedule instead of once")
	flag.Parse()

	// Local development keeps credentials in .env; absence is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *watch {
		err = application.Start(ctx)
	} else {
		err = application.Run(ctx)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
