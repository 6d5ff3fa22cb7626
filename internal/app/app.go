package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cristianleoo/influencerpy/internal/config"
	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/infrastructure/llm"
	"github.com/cristianleoo/influencerpy/internal/infrastructure/parser"
	"github.com/cristianleoo/influencerpy/internal/infrastructure/scheduler"
	"github.com/cristianleoo/influencerpy/internal/infrastructure/storage"
	"github.com/cristianleoo/influencerpy/internal/infrastructure/telegram"
	"github.com/cristianleoo/influencerpy/internal/logging"
	"github.com/cristianleoo/influencerpy/internal/ports"
	"github.com/cristianleoo/influencerpy/internal/source"
	"github.com/cristianleoo/influencerpy/internal/usecase"
)

// Application wires configuration to stores, adapters, and use cases.
type Application struct {
	cfg        config.Config
	runner     *usecase.Runner
	calibrator *usecase.Calibrator
	feedback   ports.FeedbackStore
	logger     *slog.Logger
	closers    []func() error
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	ledger, err := storage.NewLedger(db, baseLogger.With("component", "ledger"))
	if err != nil {
		db.Close()
		return nil, err
	}
	scouts := storage.NewScoutStore(db)
	feedback := storage.NewFeedbackStore(db)

	engine, err := llm.NewGeminiEngine(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model,
		baseLogger.With("component", "engine"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	registry := source.NewRegistry()
	registry.Register(parser.NewArxivAdapter(nil))
	registry.Register(parser.NewRedditAdapter(nil, ""))
	registry.Register(parser.NewHTTPAdapter(nil))
	registry.Register(parser.NewFeedAdapter(domain.SourceRSS))
	registry.RegisterAs(domain.SourceSubstack, parser.NewFeedAdapter(domain.SourceSubstack))
	if cfg.Search.Endpoint != "" {
		registry.Register(parser.NewSearchAdapter(nil, cfg.Search.Endpoint, cfg.Search.APIKey))
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:         registry,
		Ledger:           ledger,
		Engine:           engine,
		Scouts:           scouts,
		Logger:           baseLogger.With("component", "pipeline"),
		AdapterTimeout:   cfg.Pipeline.AdapterTimeout(),
		EngineTimeout:    cfg.Pipeline.EngineTimeout(),
		SourceRetries:    cfg.Pipeline.SourceRetries,
		EngineRetries:    cfg.Pipeline.EngineRetries,
		MaxScoutingItems: cfg.Pipeline.MaxScoutingItems,
	})

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
	runner := usecase.NewRunner(driver, pipeline, scouts, notifier, baseLogger.With("component", "runner"))

	calibrator := usecase.NewCalibrator(engine, scouts, baseLogger.With("component", "calibrator"),
		cfg.Pipeline.EngineRetries, cfg.Pipeline.EngineTimeout())

	return &Application{
		cfg:        cfg,
		runner:     runner,
		calibrator: calibrator,
		feedback:   feedback,
		logger:     baseLogger,
		closers:    []func() error{db.Close},
	}, nil
}

// Run executes all stored scouts once. Scheduled operation goes through
// Start/Stop instead.
func (a *Application) Run(ctx context.Context) error {
	return a.runner.RunAll(ctx)
}

// Start begins scheduled operation and blocks until the context is done.
func (a *Application) Start(ctx context.Context) error {
	if err := a.runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.runner.Stop(context.Background())
}

// Calibrate rewrites a scout's instructions from its accumulated feedback.
func (a *Application) Calibrate(ctx context.Context, scoutID string) (string, error) {
	records, err := a.feedback.ListForScout(ctx, scoutID)
	if err != nil {
		return "", err
	}
	return a.calibrator.Calibrate(ctx, scoutID, records)
}

// Close releases held resources.
func (a *Application) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
