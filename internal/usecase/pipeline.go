package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
	"github.com/cristianleoo/influencerpy/internal/source"
)

// State names the stages of a scout run.
type State string

const (
	StateInit        State = "INIT"
	StateDiscovering State = "DISCOVERING"
	StateFiltering   State = "FILTERING"
	StateSelecting   State = "SELECTING"
	StateDrafting    State = "DRAFTING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Registry *source.Registry
	Ledger   ports.Ledger
	Engine   ports.GenerationEngine
	Scouts   ports.ScoutStore
	Logger   *slog.Logger

	AdapterTimeout   time.Duration
	EngineTimeout    time.Duration
	SourceRetries    int
	EngineRetries    int
	MaxScoutingItems int
	Now              func() time.Time
}

// Pipeline is the state machine that turns a scout configuration into a
// finished report or draft: INIT -> DISCOVERING -> FILTERING -> SELECTING ->
// DRAFTING -> DONE, with FAILED reachable from any non-terminal state.
type Pipeline struct {
	registry *source.Registry
	ledger   ports.Ledger
	scouts   ports.ScoutStore
	selector *Selector
	drafter  *Drafter
	logger   *slog.Logger

	adapterTimeout time.Duration
	sourceRetries  int
	now            func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	adapterTimeout := deps.AdapterTimeout
	if adapterTimeout <= 0 {
		adapterTimeout = 30 * time.Second
	}
	engineTimeout := deps.EngineTimeout
	if engineTimeout <= 0 {
		engineTimeout = 2 * time.Minute
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		registry:       deps.Registry,
		ledger:         deps.Ledger,
		scouts:         deps.Scouts,
		selector:       NewSelector(deps.Engine, deps.Logger, deps.EngineRetries, engineTimeout, deps.MaxScoutingItems),
		drafter:        NewDrafter(deps.Engine, deps.Logger, deps.EngineRetries, engineTimeout),
		logger:         deps.Logger,
		adapterTimeout: adapterTimeout,
		sourceRetries:  deps.SourceRetries,
		now:            now,
	}
}

// Run executes one scout run to completion and returns its terminal result.
// Delivery is the caller's concern; the pipeline only return-values it.
func (p *Pipeline) Run(ctx context.Context, cfg domain.ScoutConfig) domain.PipelineResult {
	return p.run(ctx, cfg, nil, nil)
}

func (p *Pipeline) run(ctx context.Context, cfg domain.ScoutConfig, overrides *domain.RunOverrides, ancestry []string) domain.PipelineResult {
	cfg = domain.ApplyOverrides(cfg, overrides)
	res := domain.PipelineResult{
		RunID:     uuid.NewString(),
		ScoutID:   cfg.ID,
		ScoutName: cfg.Name,
		Intent:    cfg.Intent,
		StartedAt: p.now(),
	}
	logger := p.logger.With("scout", cfg.Name, "run", res.RunID)

	state := p.transition(logger, StateInit, StateDiscovering)

	// Defensive runtime cycle guard backing the creation-time invariant.
	// Checked before any adapter or child pipeline is invoked.
	if err := p.detectCycle(ctx, cfg, ancestry); err != nil {
		return p.fail(logger, res, state, err)
	}

	jobs := p.fetchJobs(cfg, ancestry)
	outcomes := p.runJobs(ctx, jobs)

	var discovered []domain.ContentItem
	for _, out := range outcomes {
		if out.err != nil {
			logger.Warn("source failed", "source", out.label, "error", out.err)
			res.FailedSources = append(res.FailedSources, out.label)
			continue
		}
		discovered = append(discovered, out.items...)
	}
	if len(jobs) > 0 && len(res.FailedSources) == len(jobs) {
		return p.fail(logger, res, state, fmt.Errorf("all sources failed: %s", strings.Join(res.FailedSources, ", ")))
	}

	state = p.transition(logger, state, StateFiltering)
	fresh, err := p.ledger.FilterNew(ctx, cfg.ID, discovered)
	if err != nil {
		return p.fail(logger, res, state, fmt.Errorf("filter new: %w", err))
	}
	logger.Debug("filtered candidates", "discovered", len(discovered), "fresh", len(fresh))

	if len(fresh) == 0 {
		// Normal terminal state, not a failure.
		res.NoNewContent = true
		res.Payload = domain.Payload{Report: &domain.Report{ScoutName: cfg.Name, GeneratedAt: p.now()}}
		return p.done(logger, res, state)
	}

	state = p.transition(logger, state, StateSelecting)
	switch cfg.Intent {
	case domain.IntentGeneration:
		sel, err := p.selector.SelectForGeneration(ctx, fresh, cfg.Instructions)
		if err != nil {
			return p.fail(logger, res, state, err)
		}

		state = p.transition(logger, state, StateDrafting)
		draft, err := p.drafter.Draft(ctx, *sel.Chosen, cfg.PlatformTargets, cfg.Instructions)
		if err != nil {
			return p.fail(logger, res, state, err)
		}
		res.Payload = domain.Payload{Draft: &draft}

	default: // scouting
		sel, err := p.selector.SelectForScouting(ctx, fresh, cfg.Instructions)
		if err != nil {
			return p.fail(logger, res, state, err)
		}
		res.Payload = domain.Payload{Report: &domain.Report{
			ScoutName:   cfg.Name,
			Items:       sel.Ranked,
			GeneratedAt: p.now(),
		}}
	}

	// Seen becomes durable only now, for every candidate shown to the
	// selector, so a crash mid-pipeline leaves items eligible for retry.
	if err := p.commit(ctx, cfg.ID, fresh); err != nil {
		return p.fail(logger, res, state, fmt.Errorf("persist processed markers: %w", err))
	}

	return p.done(logger, res, state)
}

func (p *Pipeline) commit(ctx context.Context, scoutID string, shown []domain.ContentItem) error {
	// A cancelled run must never mutate the ledger.
	if err := ctx.Err(); err != nil {
		return err
	}
	keys := make([]domain.LedgerKey, len(shown))
	for i, item := range shown {
		keys[i] = item.Key()
	}
	_, err := p.ledger.MarkProcessed(ctx, scoutID, keys)
	return err
}

func (p *Pipeline) done(logger *slog.Logger, res domain.PipelineResult, from State) domain.PipelineResult {
	p.transition(logger, from, StateDone)
	res.FinishedAt = p.now()
	if len(res.FailedSources) > 0 {
		res.Status = domain.StatusPartial
		res.Error = fmt.Sprintf("sources failed: %s", strings.Join(res.FailedSources, ", "))
	} else {
		res.Status = domain.StatusSuccess
	}
	logger.Info("pipeline done", "status", res.Status, "no_new_content", res.NoNewContent)
	return res
}

func (p *Pipeline) fail(logger *slog.Logger, res domain.PipelineResult, from State, err error) domain.PipelineResult {
	p.transition(logger, from, StateFailed)
	res.FinishedAt = p.now()
	res.Status = domain.StatusFailed
	res.Error = err.Error()
	logger.Error("pipeline failed", "state", from, "error", err)
	return res
}

func (p *Pipeline) transition(logger *slog.Logger, from, to State) State {
	logger.Debug("state transition", "from", from, "to", to)
	return to
}

// detectCycle rejects runs whose meta-scout child graph (transitively)
// reaches a scout already on the invocation path.
func (p *Pipeline) detectCycle(ctx context.Context, cfg domain.ScoutConfig, ancestry []string) error {
	for _, id := range ancestry {
		if id == cfg.ID {
			return &domain.CycleError{ScoutID: cfg.ID, Path: append(append([]string{}, ancestry...), cfg.ID)}
		}
	}
	if cfg.Kind != domain.ScoutMeta {
		return nil
	}

	onPath := make(map[string]bool, len(ancestry)+1)
	for _, id := range ancestry {
		onPath[id] = true
	}
	onPath[cfg.ID] = true

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		if onPath[id] {
			return &domain.CycleError{ScoutID: id, Path: append(append([]string{}, path...), id)}
		}
		child, err := p.scouts.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("resolve child scout %s: %w", id, err)
		}
		if child.Kind != domain.ScoutMeta {
			return nil
		}
		onPath[id] = true
		defer delete(onPath, id)
		for _, grandchild := range child.ChildScoutIDs {
			if err := visit(grandchild, append(path, id)); err != nil {
				return err
			}
		}
		return nil
	}

	for _, childID := range cfg.ChildScoutIDs {
		if err := visit(childID, []string{cfg.ID}); err != nil {
			return err
		}
	}
	return nil
}

type fetchJob struct {
	label string
	// child pipelines manage their own timeouts and retries
	isChild bool
	run     func(ctx context.Context) ([]domain.ContentItem, error)
}

type fetchOutcome struct {
	label string
	items []domain.ContentItem
	err   error
}

// fetchJobs builds the discovery fan-out in registration order: one job per
// configured source for leaf scouts, one child pipeline per child id for
// meta scouts.
func (p *Pipeline) fetchJobs(cfg domain.ScoutConfig, ancestry []string) []fetchJob {
	if cfg.Kind == domain.ScoutMeta {
		ov := childOverrides(cfg)
		jobs := make([]fetchJob, 0, len(cfg.ChildScoutIDs))
		childAncestry := append(append([]string{}, ancestry...), cfg.ID)
		for _, childID := range cfg.ChildScoutIDs {
			childID := childID
			jobs = append(jobs, fetchJob{
				label:   childID,
				isChild: true,
				run: func(ctx context.Context) ([]domain.ContentItem, error) {
					child, err := p.scouts.Get(ctx, childID)
					if err != nil {
						return nil, err
					}
					childRes := p.run(ctx, child, ov, childAncestry)
					if childRes.Status == domain.StatusFailed {
						return nil, fmt.Errorf("child scout %s: %s", child.Name, childRes.Error)
					}
					return itemsFromResult(childRes), nil
				},
			})
		}
		return jobs
	}

	jobs := make([]fetchJob, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		src := src
		label := src.Name
		if label == "" {
			label = string(src.Kind)
		}
		jobs = append(jobs, fetchJob{
			label: label,
			run: func(ctx context.Context) ([]domain.ContentItem, error) {
				adapter, err := p.registry.Resolve(src.Kind)
				if err != nil {
					return nil, err
				}
				items, err := adapter.Fetch(ctx, src)
				if err != nil {
					return nil, err
				}
				for i := range items {
					if items[i].OriginLabel == "" {
						items[i].OriginLabel = label
					}
				}
				return items, nil
			},
		})
	}
	return jobs
}

// runJobs fans out discovery concurrently and joins all results before
// filtering begins. Outcomes are indexed by registration order so the
// aggregate is deterministic regardless of arrival order.
func (p *Pipeline) runJobs(ctx context.Context, jobs []fetchJob) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job fetchJob) {
			defer wg.Done()
			outcomes[i] = p.runJob(ctx, job)
		}(i, job)
	}
	wg.Wait()
	return outcomes
}

func (p *Pipeline) runJob(ctx context.Context, job fetchJob) fetchOutcome {
	if job.isChild {
		items, err := job.run(ctx)
		if err != nil {
			return fetchOutcome{label: job.label, err: &domain.SourceError{Source: job.label, Err: err}}
		}
		return fetchOutcome{label: job.label, items: items}
	}

	var lastErr error
	for attempt := 0; attempt <= p.sourceRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fetchOutcome{label: job.label, err: &domain.SourceError{Source: job.label, Err: ctx.Err()}}
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		fetchCtx, cancel := context.WithTimeout(ctx, p.adapterTimeout)
		items, err := job.run(fetchCtx)
		cancel()
		if err == nil {
			return fetchOutcome{label: job.label, items: items}
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return fetchOutcome{label: job.label, err: &domain.SourceError{Source: job.label, Err: lastErr}}
}

// childOverrides derives the run-scoped overrides a meta scout applies to
// its children. They live only for this run and are never persisted.
func childOverrides(cfg domain.ScoutConfig) *domain.RunOverrides {
	for _, src := range cfg.Sources {
		if src.Query != "" || src.URL != "" {
			return &domain.RunOverrides{Query: src.Query, URL: src.URL}
		}
	}
	return nil
}

// itemsFromResult converts a child pipeline's payload into candidate items
// for the parent. Each node resolves its intent independently; a child draft
// becomes a single item whose body is the draft text.
func itemsFromResult(res domain.PipelineResult) []domain.ContentItem {
	if res.Payload.Report != nil {
		items := make([]domain.ContentItem, 0, len(res.Payload.Report.Items))
		for _, ranked := range res.Payload.Report.Items {
			item := ranked.Item
			if ranked.Summary != "" {
				item.BodyExcerpt = ranked.Summary
			}
			items = append(items, item)
		}
		return items
	}
	if res.Payload.Draft != nil {
		draft := res.Payload.Draft
		item := draft.Item
		item.BodyExcerpt = strings.Join(draft.Chunks, "\n")
		return []domain.ContentItem{item}
	}
	return nil
}
