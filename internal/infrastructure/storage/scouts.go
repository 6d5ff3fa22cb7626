package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

// ScoutStore persists scout configurations in sqlite.
type ScoutStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.ScoutStore = (*ScoutStore)(nil)

// NewScoutStore wires a sql.DB handle.
func NewScoutStore(db *sql.DB) *ScoutStore {
	return &ScoutStore{db: db, now: time.Now}
}

// Create validates and stores a new scout. Meta scouts must reference
// existing children and the resulting child graph must stay acyclic; both
// are enforced here, at creation time.
func (s *ScoutStore) Create(ctx context.Context, cfg domain.ScoutConfig) (domain.ScoutConfig, error) {
	if cfg.Name == "" {
		return domain.ScoutConfig{}, fmt.Errorf("scout name is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Intent == "" {
		cfg.Intent = domain.IntentScouting
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = s.now().UTC()
	}

	if cfg.Kind == domain.ScoutMeta {
		if len(cfg.ChildScoutIDs) == 0 {
			return domain.ScoutConfig{}, fmt.Errorf("meta scout %s has no children", cfg.Name)
		}
		if err := s.validateChildGraph(ctx, cfg); err != nil {
			return domain.ScoutConfig{}, err
		}
	} else if len(cfg.ChildScoutIDs) > 0 {
		return domain.ScoutConfig{}, fmt.Errorf("scout %s: only meta scouts may have children", cfg.Name)
	}

	sourcesJSON, err := json.Marshal(cfg.Sources)
	if err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("marshal sources: %w", err)
	}
	platformsJSON, err := json.Marshal(cfg.PlatformTargets)
	if err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("marshal platforms: %w", err)
	}
	childrenJSON, err := json.Marshal(cfg.ChildScoutIDs)
	if err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("marshal children: %w", err)
	}

	query, args, err := sq.Insert("scouts").
		Columns("id", "name", "kind", "intent", "sources_json", "instructions",
			"platforms_json", "schedule", "children_json", "created_at").
		Values(cfg.ID, cfg.Name, string(cfg.Kind), string(cfg.Intent), string(sourcesJSON),
			cfg.Instructions, string(platformsJSON), cfg.Schedule, string(childrenJSON),
			cfg.CreatedAt.Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("build scout insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("insert scout %s: %w", cfg.Name, err)
	}
	return cfg, nil
}

// validateChildGraph checks that every child exists and that following
// child edges from the new scout never returns to a scout on the path.
func (s *ScoutStore) validateChildGraph(ctx context.Context, cfg domain.ScoutConfig) error {
	onPath := map[string]bool{cfg.ID: true}

	var visit func(id string) error
	visit = func(id string) error {
		if onPath[id] {
			return &domain.CycleError{ScoutID: id, Path: []string{cfg.ID, id}}
		}
		child, err := s.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("meta scout %s: child %s: %w", cfg.Name, id, err)
		}
		if child.Kind != domain.ScoutMeta {
			return nil
		}
		onPath[id] = true
		defer delete(onPath, id)
		for _, grandchild := range child.ChildScoutIDs {
			if err := visit(grandchild); err != nil {
				return err
			}
		}
		return nil
	}

	for _, childID := range cfg.ChildScoutIDs {
		if err := visit(childID); err != nil {
			return err
		}
	}
	return nil
}

// Get loads one scout by id.
func (s *ScoutStore) Get(ctx context.Context, id string) (domain.ScoutConfig, error) {
	query, args, err := scoutSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("build scout query: %w", err)
	}
	cfg, err := scanScout(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ScoutConfig{}, fmt.Errorf("scout %s not found", id)
		}
		return domain.ScoutConfig{}, err
	}
	return cfg, nil
}

// List returns all scouts in creation order.
func (s *ScoutStore) List(ctx context.Context) ([]domain.ScoutConfig, error) {
	query, args, err := scoutSelect().OrderBy("created_at").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build scout list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scouts: %w", err)
	}
	defer rows.Close()

	var scouts []domain.ScoutConfig
	for rows.Next() {
		cfg, err := scanScout(rows)
		if err != nil {
			return nil, err
		}
		scouts = append(scouts, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scouts: %w", err)
	}
	return scouts, nil
}

// UpdateInstructions atomically replaces the scout's instruction text. This
// is the only mutation calibration performs.
func (s *ScoutStore) UpdateInstructions(ctx context.Context, id, instructions string) error {
	query, args, err := sq.Update("scouts").
		Set("instructions", instructions).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build instructions update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update instructions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scout %s not found", id)
	}
	return nil
}

// TouchLastRun records when the scout last completed a run.
func (s *ScoutStore) TouchLastRun(ctx context.Context, id string, at time.Time) error {
	query, args, err := sq.Update("scouts").
		Set("last_run_at", at.UTC().Format(time.RFC3339Nano)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build last-run update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update last run: %w", err)
	}
	return nil
}

func scoutSelect() sq.SelectBuilder {
	return sq.Select("id", "name", "kind", "intent", "sources_json", "instructions",
		"platforms_json", "schedule", "children_json", "created_at", "last_run_at").
		From("scouts")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScout(row rowScanner) (domain.ScoutConfig, error) {
	var (
		cfg           domain.ScoutConfig
		kind, intent  string
		sourcesJSON   string
		platformsJSON string
		childrenJSON  string
		createdAt     string
		lastRunAt     sql.NullString
	)
	if err := row.Scan(&cfg.ID, &cfg.Name, &kind, &intent, &sourcesJSON, &cfg.Instructions,
		&platformsJSON, &cfg.Schedule, &childrenJSON, &createdAt, &lastRunAt); err != nil {
		return domain.ScoutConfig{}, err
	}

	cfg.Kind = domain.ScoutKind(kind)
	cfg.Intent = domain.Intent(intent)

	if err := json.Unmarshal([]byte(sourcesJSON), &cfg.Sources); err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("decode sources for %s: %w", cfg.Name, err)
	}
	if err := json.Unmarshal([]byte(platformsJSON), &cfg.PlatformTargets); err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("decode platforms for %s: %w", cfg.Name, err)
	}
	if err := json.Unmarshal([]byte(childrenJSON), &cfg.ChildScoutIDs); err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("decode children for %s: %w", cfg.Name, err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.ScoutConfig{}, fmt.Errorf("parse created_at for %s: %w", cfg.Name, err)
	}
	cfg.CreatedAt = parsed

	if lastRunAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastRunAt.String); err == nil {
			cfg.LastRunAt = t
		}
	}
	return cfg, nil
}
