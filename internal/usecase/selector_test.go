package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cristianleoo/influencerpy/internal/domain"
)

// scriptedEngine returns canned responses in call order.
type scriptedEngine struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (e *scriptedEngine) Invoke(ctx context.Context, prompt string, tools []domain.ToolSpec) (domain.EngineResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.calls
	e.calls++
	if idx < len(e.errs) && e.errs[idx] != nil {
		return domain.EngineResponse{}, e.errs[idx]
	}
	if idx >= len(e.responses) {
		return domain.EngineResponse{}, errors.New("no scripted response left")
	}
	return domain.EngineResponse{Text: e.responses[idx]}, nil
}

func (e *scriptedEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func candidateSet() []domain.ContentItem {
	return []domain.ContentItem{
		{SourceID: "a", Kind: domain.SourceRSS, Title: "First", URL: "https://a"},
		{SourceID: "b", Kind: domain.SourceRSS, Title: "Second", URL: "https://b"},
		{SourceID: "c", Kind: domain.SourceRSS, Title: "Third", URL: "https://c"},
	}
}

func TestSelectForGenerationPicksBest(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{responses: []string{
		`{"ranking":[
			{"choice":2,"scores":{"relevance":0.9,"engagement_potential":0.8,"quality":0.7}},
			{"choice":1,"scores":{"relevance":0.5,"engagement_potential":0.5,"quality":0.5}}
		]}`,
	}}
	sel := NewSelector(engine, nil, 0, time.Second, 0)

	res, err := sel.SelectForGeneration(context.Background(), candidateSet(), "")
	if err != nil {
		t.Fatalf("SelectForGeneration error: %v", err)
	}
	if res.Chosen == nil || res.Chosen.SourceID != "b" {
		t.Fatalf("expected candidate b, got %+v", res.Chosen)
	}
	if res.Scores.Relevance != 0.9 {
		t.Fatalf("unexpected relevance: %v", res.Scores.Relevance)
	}
}

func TestSelectForGenerationClampsScores(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{responses: []string{
		`{"ranking":[{"choice":1,"scores":{"relevance":1.5,"engagement_potential":-0.2,"quality":0.5}}]}`,
	}}
	sel := NewSelector(engine, nil, 0, time.Second, 0)

	res, err := sel.SelectForGeneration(context.Background(), candidateSet(), "")
	if err != nil {
		t.Fatalf("SelectForGeneration error: %v", err)
	}
	if res.Scores.Relevance != 1 || res.Scores.EngagementPotential != 0 {
		t.Fatalf("scores not clamped: %+v", res.Scores)
	}
}

func TestSelectForGenerationInvalidReference(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{responses: []string{
		`{"ranking":[{"choice":7,"scores":{"relevance":1,"engagement_potential":1,"quality":1}}]}`,
	}}
	sel := NewSelector(engine, nil, 0, time.Second, 0)

	_, err := sel.SelectForGeneration(context.Background(), candidateSet(), "")
	var selErr *domain.SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
	if selErr.Reason != domain.SelectionInvalidReference {
		t.Fatalf("unexpected reason: %s", selErr.Reason)
	}
}

func TestSelectForGenerationGarbageResponse(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{responses: []string{"I think option two is nice."}}
	sel := NewSelector(engine, nil, 0, time.Second, 0)

	_, err := sel.SelectForGeneration(context.Background(), candidateSet(), "")
	var selErr *domain.SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
}

func TestSelectForGenerationSingleCandidateSkipsEngine(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{}
	sel := NewSelector(engine, nil, 0, time.Second, 0)

	single := candidateSet()[:1]
	res, err := sel.SelectForGeneration(context.Background(), single, "")
	if err != nil {
		t.Fatalf("SelectForGeneration error: %v", err)
	}
	if res.Chosen == nil || res.Chosen.SourceID != "a" {
		t.Fatalf("expected the only candidate, got %+v", res.Chosen)
	}
	if engine.callCount() != 0 {
		t.Fatalf("engine should not be invoked for a single candidate")
	}
}

func TestSelectForGenerationTieBreakPrefersNewer(t *testing.T) {
	t.Parallel()

	older := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	candidates := []domain.ContentItem{
		{SourceID: "old", Kind: domain.SourceRSS, PublishedAt: older},
		{SourceID: "new", Kind: domain.SourceRSS, PublishedAt: newer},
	}

	engine := &scriptedEngine{responses: []string{
		`{"ranking":[
			{"choice":1,"scores":{"relevance":0.5,"engagement_potential":0.5,"quality":0.5}},
			{"choice":2,"scores":{"relevance":0.5,"engagement_potential":0.5,"quality":0.5}}
		]}`,
	}}
	sel := NewSelector(engine, nil, 0, time.Second, 0)

	res, err := sel.SelectForGeneration(context.Background(), candidates, "")
	if err != nil {
		t.Fatalf("SelectForGeneration error: %v", err)
	}
	if res.Chosen.SourceID != "new" {
		t.Fatalf("expected newer candidate to win tie, got %s", res.Chosen.SourceID)
	}
}

func TestSelectForGenerationTieBreakFallsBackToInputOrder(t *testing.T) {
	t.Parallel()

	candidates := []domain.ContentItem{
		{SourceID: "first", Kind: domain.SourceRSS},
		{SourceID: "second", Kind: domain.SourceRSS},
	}

	engine := &scriptedEngine{responses: []string{
		`{"ranking":[
			{"choice":2,"scores":{"relevance":0.5,"engagement_potential":0.5,"quality":0.5}},
			{"choice":1,"scores":{"relevance":0.5,"engagement_potential":0.5,"quality":0.5}}
		]}`,
	}}
	sel := NewSelector(engine, nil, 0, time.Second, 0)

	res, err := sel.SelectForGeneration(context.Background(), candidates, "")
	if err != nil {
		t.Fatalf("SelectForGeneration error: %v", err)
	}
	if res.Chosen.SourceID != "first" {
		t.Fatalf("expected earlier input position to win tie, got %s", res.Chosen.SourceID)
	}
}

func TestSelectForScoutingEmptyInput(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{}
	sel := NewSelector(engine, nil, 0, time.Second, 0)

	res, err := sel.SelectForScouting(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("empty input must not error: %v", err)
	}
	if len(res.Ranked) != 0 {
		t.Fatalf("expected empty result, got %d items", len(res.Ranked))
	}
	if engine.callCount() != 0 {
		t.Fatalf("engine should not be invoked for empty input")
	}
}

func TestSelectForScoutingCapsAndDedups(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{responses: []string{
		`{"items":[
			{"choice":1,"summary":"one"},
			{"choice":1,"summary":"dupe"},
			{"choice":2,"summary":"two"},
			{"choice":3,"summary":"three"}
		]}`,
	}}
	sel := NewSelector(engine, nil, 0, time.Second, 2)

	res, err := sel.SelectForScouting(context.Background(), candidateSet(), "")
	if err != nil {
		t.Fatalf("SelectForScouting error: %v", err)
	}
	if len(res.Ranked) != 2 {
		t.Fatalf("expected 2 ranked items, got %d", len(res.Ranked))
	}
	if res.Ranked[0].Item.SourceID != "a" || res.Ranked[1].Item.SourceID != "b" {
		t.Fatalf("unexpected ranking: %+v", res.Ranked)
	}
	if res.Ranked[0].Summary != "one" {
		t.Fatalf("unexpected summary: %s", res.Ranked[0].Summary)
	}
}

func TestSelectForScoutingAllReferencesInvalid(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{responses: []string{
		`{"items":[{"choice":9,"summary":"x"},{"choice":0,"summary":"y"}]}`,
	}}
	sel := NewSelector(engine, nil, 0, time.Second, 0)

	_, err := sel.SelectForScouting(context.Background(), candidateSet(), "")
	var selErr *domain.SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
}

func TestEngineCallerRetriesTransientOnly(t *testing.T) {
	t.Parallel()

	transient := &domain.EngineError{Transient: true, Err: errors.New("rate limited")}
	engine := &scriptedEngine{
		errs:      []error{transient, nil},
		responses: []string{"", "ok"},
	}
	caller := newEngineCaller(engine, nil, 1, time.Second)
	caller.backoff = time.Millisecond

	resp, err := caller.invoke(context.Background(), "p", nil)
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected response: %q", resp.Text)
	}
	if engine.callCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", engine.callCount())
	}

	permanent := &domain.EngineError{Transient: false, Err: errors.New("bad request")}
	engine = &scriptedEngine{errs: []error{permanent}}
	caller = newEngineCaller(engine, nil, 3, time.Second)
	caller.backoff = time.Millisecond

	if _, err := caller.invoke(context.Background(), "p", nil); err == nil {
		t.Fatalf("expected permanent error to propagate")
	}
	if engine.callCount() != 1 {
		t.Fatalf("permanent error must not be retried, got %d calls", engine.callCount())
	}
}
