package ports

import (
	"context"
	"time"

	"github.com/cristianleoo/influencerpy/internal/domain"
)

// SourceAdapter pulls candidate items from one kind of source. Adapters are
// pure from the pipeline's perspective: no shared mutable state.
type SourceAdapter interface {
	Kind() domain.SourceKind
	Fetch(ctx context.Context, src domain.SourceConfig) ([]domain.ContentItem, error)
}

// GenerationEngine is the opaque language-model capability used for
// selection, drafting, and calibration. Retries are the caller's
// responsibility, not the engine's.
type GenerationEngine interface {
	Invoke(ctx context.Context, prompt string, tools []domain.ToolSpec) (domain.EngineResponse, error)
}

// Ledger is the durable dedup record of which content keys a scout has
// already surfaced. MarkProcessed is an idempotent upsert; IsNew/FilterNew
// must never be used for exclusivity guarantees.
type Ledger interface {
	IsNew(ctx context.Context, scoutID string, key domain.LedgerKey) (bool, error)
	FilterNew(ctx context.Context, scoutID string, items []domain.ContentItem) ([]domain.ContentItem, error)
	MarkProcessed(ctx context.Context, scoutID string, keys []domain.LedgerKey) (int64, error)
	Reset(ctx context.Context, scoutID string, kind *domain.SourceKind) (int64, error)
}

// ScoutStore persists scout configurations. Create rejects meta scouts whose
// child graph is cyclic or references missing scouts.
type ScoutStore interface {
	Create(ctx context.Context, cfg domain.ScoutConfig) (domain.ScoutConfig, error)
	Get(ctx context.Context, id string) (domain.ScoutConfig, error)
	List(ctx context.Context) ([]domain.ScoutConfig, error)
	UpdateInstructions(ctx context.Context, id, instructions string) error
	TouchLastRun(ctx context.Context, id string, at time.Time) error
}

// FeedbackStore is the append-only feedback log read by calibration.
type FeedbackStore interface {
	Append(ctx context.Context, rec domain.FeedbackRecord) error
	ListForScout(ctx context.Context, scoutID string) ([]domain.FeedbackRecord, error)
}

// Notifier delivers finished pipeline results to a review channel.
type Notifier interface {
	PublishResult(ctx context.Context, result domain.PipelineResult) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
