package store

import (
	"context"
	"fmt"
	"time"

	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/stats"
)

// InsertUsage appends one usage record. The table is append-only; there
// is no update or delete path.
func (s *Store) InsertUsage(ctx context.Context, rec *model.UsageRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	const q = `INSERT INTO usage_records
		(credential_id, endpoint, method, status, latency_ms, timestamp)
		VALUES
		(:credential_id, :endpoint, :method, :status, :latency_ms, :timestamp)`

	result, err := s.db.NamedExecContext(ctx, q, rec)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get usage record id: %w", err)
	}
	rec.ID = id
	return nil
}

// ListUsage returns the usage records of one credential, newest first.
func (s *Store) ListUsage(ctx context.Context, credentialID string, limit int) ([]model.UsageRecord, error) {
	var recs []model.UsageRecord
	const q = `SELECT * FROM usage_records WHERE credential_id = ?
		ORDER BY timestamp DESC, id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &recs, q, credentialID, limit); err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	return recs, nil
}

// CredentialUsageStats summarizes a credential's usage records over a
// trailing window of days evaluated at now. days must be non-negative;
// a zero-day window yields zero counts, matching the analytics window
// semantics. No requests counts as a 100% success rate.
func (s *Store) CredentialUsageStats(ctx context.Context, credentialID string, days int, now time.Time) (*model.UsageStats, error) {
	if days < 0 {
		return nil, fmt.Errorf("days must be non-negative, got %d", days)
	}

	st := &model.UsageStats{PeriodDays: days, SuccessRate: 100.0}
	w := stats.NewWindow(now, days)
	if w.Empty() {
		return st, nil
	}

	const totalQ = `SELECT COUNT(*) FROM usage_records
		WHERE credential_id = ? AND timestamp >= ? AND timestamp <= ?`
	if err := s.db.GetContext(ctx, &st.TotalRequests, totalQ, credentialID, w.Start, w.End); err != nil {
		return nil, fmt.Errorf("count usage: %w", err)
	}

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	const todayQ = `SELECT COUNT(*) FROM usage_records
		WHERE credential_id = ? AND timestamp >= ? AND timestamp <= ?`
	if err := s.db.GetContext(ctx, &st.RequestsToday, todayQ, credentialID, todayStart, now); err != nil {
		return nil, fmt.Errorf("count usage today: %w", err)
	}

	const errorQ = `SELECT COUNT(*) FROM usage_records
		WHERE credential_id = ? AND timestamp >= ? AND timestamp <= ? AND status >= 400`
	if err := s.db.GetContext(ctx, &st.ErrorRequests, errorQ, credentialID, w.Start, w.End); err != nil {
		return nil, fmt.Errorf("count usage errors: %w", err)
	}

	if st.TotalRequests > 0 {
		st.SuccessRate = float64(st.TotalRequests-st.ErrorRequests) / float64(st.TotalRequests) * 100
	}
	return st, nil
}
