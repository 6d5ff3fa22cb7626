package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cristianleoo/influencerpy/internal/domain"
)

func TestScoutCreateAndGetRoundtrip(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, domain.ScoutConfig{
		Name:   "ai-papers",
		Kind:   domain.ScoutArxiv,
		Intent: domain.IntentScouting,
		Sources: []domain.SourceConfig{{
			Kind:       domain.SourceArxiv,
			Name:       "cs-ai",
			Categories: []string{"https://arxiv.org/list/cs.AI/recent"},
		}},
		Instructions:    "Focus on agent systems.",
		PlatformTargets: []string{"x"},
		Schedule:        "0 6 * * *",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected a generated id")
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "ai-papers" || got.Kind != domain.ScoutArxiv || got.Intent != domain.IntentScouting {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if len(got.Sources) != 1 || got.Sources[0].Categories[0] != "https://arxiv.org/list/cs.AI/recent" {
		t.Fatalf("sources not preserved: %+v", got.Sources)
	}
	if got.Instructions != "Focus on agent systems." {
		t.Fatalf("instructions not preserved: %q", got.Instructions)
	}
}

func TestScoutCreateDefaultsIntent(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))

	created, err := store.Create(context.Background(), domain.ScoutConfig{
		Name: "bare",
		Kind: domain.ScoutRSS,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Intent != domain.IntentScouting {
		t.Fatalf("expected scouting default, got %s", created.Intent)
	}
}

func TestScoutCreateRejectsMetaWithoutChildren(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))

	_, err := store.Create(context.Background(), domain.ScoutConfig{
		Name: "empty-meta",
		Kind: domain.ScoutMeta,
	})
	if err == nil {
		t.Fatalf("expected an error for meta scout without children")
	}
}

func TestScoutCreateRejectsMissingChild(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))

	_, err := store.Create(context.Background(), domain.ScoutConfig{
		Name:          "dangling",
		Kind:          domain.ScoutMeta,
		ChildScoutIDs: []string{"nope"},
	})
	if err == nil {
		t.Fatalf("expected an error for missing child")
	}
}

func TestScoutCreateRejectsChildrenOnLeaf(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))

	_, err := store.Create(context.Background(), domain.ScoutConfig{
		Name:          "leaf",
		Kind:          domain.ScoutRSS,
		ChildScoutIDs: []string{"whatever"},
	})
	if err == nil {
		t.Fatalf("only meta scouts may have children")
	}
}

func TestScoutCreateRejectsSelfCycle(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))

	_, err := store.Create(context.Background(), domain.ScoutConfig{
		ID:            "m1",
		Name:          "ouroboros",
		Kind:          domain.ScoutMeta,
		ChildScoutIDs: []string{"m1"},
	})
	var cycleErr *domain.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}

func TestScoutCreateRejectsDeepCycle(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))
	ctx := context.Background()

	leaf, err := store.Create(ctx, domain.ScoutConfig{Name: "leaf", Kind: domain.ScoutRSS})
	if err != nil {
		t.Fatalf("create leaf: %v", err)
	}
	inner, err := store.Create(ctx, domain.ScoutConfig{
		Name: "inner", Kind: domain.ScoutMeta, ChildScoutIDs: []string{leaf.ID},
	})
	if err != nil {
		t.Fatalf("create inner: %v", err)
	}

	// A new meta listing inner twice via different paths is fine; a meta
	// listing itself through inner would not be constructible here, so the
	// guard is exercised through a direct self edge at depth one.
	_, err = store.Create(ctx, domain.ScoutConfig{
		ID:            "outer",
		Name:          "outer",
		Kind:          domain.ScoutMeta,
		ChildScoutIDs: []string{inner.ID, "outer"},
	})
	var cycleErr *domain.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}

func TestUpdateInstructions(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, domain.ScoutConfig{Name: "tuner", Kind: domain.ScoutRSS})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.UpdateInstructions(ctx, created.ID, "Be bolder."); err != nil {
		t.Fatalf("UpdateInstructions: %v", err)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Instructions != "Be bolder." {
		t.Fatalf("instructions not updated: %q", got.Instructions)
	}

	if err := store.UpdateInstructions(ctx, "missing", "x"); err == nil {
		t.Fatalf("expected an error for unknown scout")
	}
}

func TestTouchLastRun(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, domain.ScoutConfig{Name: "runner", Kind: domain.ScoutRSS})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Date(2026, time.August, 20, 6, 0, 0, 0, time.UTC)
	if err := store.TouchLastRun(ctx, created.ID, at); err != nil {
		t.Fatalf("TouchLastRun: %v", err)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.LastRunAt.Equal(at) {
		t.Fatalf("last run not recorded: %v", got.LastRunAt)
	}
}

func TestScoutListOrdersByCreation(t *testing.T) {
	t.Parallel()

	store := NewScoutStore(testDB(t))
	ctx := context.Background()

	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		_, err := store.Create(ctx, domain.ScoutConfig{
			Name:      name,
			Kind:      domain.ScoutRSS,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	scouts, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(scouts) != 3 {
		t.Fatalf("expected 3 scouts, got %d", len(scouts))
	}
	if scouts[0].Name != "first" || scouts[2].Name != "third" {
		t.Fatalf("unexpected order: %s, %s, %s", scouts[0].Name, scouts[1].Name, scouts[2].Name)
	}
}
