package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

const ledgerCacheSize = 4096

// Ledger is the sqlite-backed entry ledger. A small LRU of known-processed
// keys sits in front of point lookups; it only ever caches positive
// "processed" answers, so a stale miss just falls through to the database.
type Ledger struct {
	db     *sql.DB
	cache  *lru.Cache[string, struct{}]
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.Ledger = (*Ledger)(nil)

// NewLedger wires a sql.DB handle.
func NewLedger(db *sql.DB, logger *slog.Logger) (*Ledger, error) {
	cache, err := lru.New[string, struct{}](ledgerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("ledger cache: %w", err)
	}
	return &Ledger{db: db, cache: cache, logger: logger, now: time.Now}, nil
}

func cacheKey(scoutID string, key domain.LedgerKey) string {
	return scoutID + "\x00" + string(key.Kind) + "\x00" + key.SourceID
}

// IsNew reports whether the key has not yet been marked processed for this
// scout. First sightings are not recorded here; that happens in FilterNew.
func (l *Ledger) IsNew(ctx context.Context, scoutID string, key domain.LedgerKey) (bool, error) {
	if _, ok := l.cache.Get(cacheKey(scoutID, key)); ok {
		return false, nil
	}

	query, args, err := sq.Select("processed").
		From("ledger_records").
		Where(sq.Eq{"scout_id": scoutID, "source_kind": string(key.Kind), "source_id": key.SourceID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build is_new query: %w", err)
	}

	var processed bool
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&processed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("query ledger: %w", err)
	}

	if processed {
		l.cache.Add(cacheKey(scoutID, key), struct{}{})
	}
	return !processed, nil
}

// FilterNew returns only items whose key is not yet processed, preserving
// input order, and records first sightings as unprocessed ledger rows.
func (l *Ledger) FilterNew(ctx context.Context, scoutID string, items []domain.ContentItem) ([]domain.ContentItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.SourceID)
	}

	query, args, err := sq.Select("source_kind", "source_id").
		From("ledger_records").
		Where(sq.Eq{"scout_id": scoutID, "processed": true, "source_id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build filter query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed keys: %w", err)
	}
	defer rows.Close()

	processed := map[domain.LedgerKey]bool{}
	for rows.Next() {
		var kind, id string
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, fmt.Errorf("scan processed key: %w", err)
		}
		processed[domain.LedgerKey{Kind: domain.SourceKind(kind), SourceID: id}] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processed keys: %w", err)
	}

	fresh := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		if !processed[item.Key()] {
			fresh = append(fresh, item)
		}
	}

	if err := l.recordSightings(ctx, scoutID, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// recordSightings inserts unseen keys as processed=false rows. Existing rows
// are left untouched.
func (l *Ledger) recordSightings(ctx context.Context, scoutID string, items []domain.ContentItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sightings tx: %w", err)
	}
	defer tx.Rollback()

	seenAt := l.now().UTC().Format(time.RFC3339Nano)
	for _, item := range items {
		query, args, err := sq.Insert("ledger_records").
			Options("OR IGNORE").
			Columns("scout_id", "source_kind", "source_id", "processed", "first_seen_at").
			Values(scoutID, string(item.Kind), item.SourceID, false, seenAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build sighting insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert sighting: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sightings: %w", err)
	}
	return nil
}

// MarkProcessed upserts the keys as processed and returns how many were
// newly marked. Marking an already-processed key is a no-op, so concurrent
// calls for overlapping key sets converge to the same final state.
func (l *Ledger) MarkProcessed(ctx context.Context, scoutID string, keys []domain.LedgerKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin mark tx: %w", err)
	}
	defer tx.Rollback()

	processedAt := l.now().UTC().Format(time.RFC3339Nano)
	var marked int64
	for _, key := range keys {
		query, args, err := sq.Insert("ledger_records").
			Columns("scout_id", "source_kind", "source_id", "processed", "first_seen_at", "processed_at").
			Values(scoutID, string(key.Kind), key.SourceID, true, processedAt, processedAt).
			Suffix(`ON CONFLICT (scout_id, source_kind, source_id) DO UPDATE
				SET processed = 1, processed_at = excluded.processed_at
				WHERE ledger_records.processed = 0`).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build mark upsert: %w", err)
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("mark key %s/%s: %w", key.Kind, key.SourceID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		marked += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit marks: %w", err)
	}

	for _, key := range keys {
		l.cache.Add(cacheKey(scoutID, key), struct{}{})
	}

	if l.logger != nil {
		l.logger.Debug("marked processed", "scout", scoutID, "keys", len(keys), "newly_marked", marked)
	}
	return marked, nil
}

// Reset clears processed flags for a scout, optionally restricted to one
// source kind, and returns the number of records cleared. Records are never
// deleted; history of first sightings is preserved.
func (l *Ledger) Reset(ctx context.Context, scoutID string, kind *domain.SourceKind) (int64, error) {
	update := sq.Update("ledger_records").
		Set("processed", false).
		Set("processed_at", nil).
		Where(sq.Eq{"scout_id": scoutID, "processed": true})
	if kind != nil {
		update = update.Where(sq.Eq{"source_kind": string(*kind)})
	}

	query, args, err := update.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reset query: %w", err)
	}

	result, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset ledger: %w", err)
	}
	cleared, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	// Cheaper to drop the whole cache than to enumerate affected keys.
	l.cache.Purge()

	if l.logger != nil {
		l.logger.Info("ledger reset", "scout", scoutID, "cleared", cleared)
	}
	return cleared, nil
}
