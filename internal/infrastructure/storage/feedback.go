package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

// FeedbackStore is the append-only log of user verdicts on delivered
// results. Records are never mutated after creation.
type FeedbackStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.FeedbackStore = (*FeedbackStore)(nil)

// NewFeedbackStore wires a sql.DB handle.
func NewFeedbackStore(db *sql.DB) *FeedbackStore {
	return &FeedbackStore{db: db, now: time.Now}
}

// Append stores one feedback record. Reject verdicts require a reason so
// calibration has something to work with.
func (f *FeedbackStore) Append(ctx context.Context, rec domain.FeedbackRecord) error {
	switch rec.Verdict {
	case domain.VerdictAccept, domain.VerdictEdit:
	case domain.VerdictReject:
		if rec.Reason == "" {
			return fmt.Errorf("reject feedback for scout %s requires a reason", rec.ScoutID)
		}
	default:
		return fmt.Errorf("unknown verdict %q", rec.Verdict)
	}

	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = f.now()
	}

	query, args, err := sq.Insert("scout_feedback").
		Columns("scout_id", "draft_ref", "verdict", "reason", "recorded_at").
		Values(rec.ScoutID, rec.DraftRef, string(rec.Verdict), rec.Reason,
			recordedAt.UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build feedback insert: %w", err)
	}
	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// ListForScout returns a scout's feedback in recording order.
func (f *FeedbackStore) ListForScout(ctx context.Context, scoutID string) ([]domain.FeedbackRecord, error) {
	query, args, err := sq.Select("id", "scout_id", "draft_ref", "verdict", "reason", "recorded_at").
		From("scout_feedback").
		Where(sq.Eq{"scout_id": scoutID}).
		OrderBy("recorded_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build feedback query: %w", err)
	}

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var records []domain.FeedbackRecord
	for rows.Next() {
		var (
			rec        domain.FeedbackRecord
			verdict    string
			recordedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.ScoutID, &rec.DraftRef, &verdict, &rec.Reason, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		rec.Verdict = domain.Verdict(verdict)
		if t, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			rec.RecordedAt = t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return records, nil
}
