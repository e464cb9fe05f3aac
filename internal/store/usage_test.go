package store

import (
	"context"
	"testing"
	"time"

	"github.com/guildsight/guildsight/internal/model"
)

func seedUsage(t *testing.T, s *Store, credID string, ts time.Time, status int) {
	t.Helper()
	rec := &model.UsageRecord{
		CredentialID: credID,
		Endpoint:     "/api/v1/server/stats",
		Method:       "GET",
		Status:       status,
		LatencyMs:    3.5,
		Timestamp:    ts,
	}
	if err := s.InsertUsage(context.Background(), rec); err != nil {
		t.Fatalf("InsertUsage: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected non-zero usage record id")
	}
}

func TestCredentialUsageStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred, _, err := s.IssueCredential(ctx, "reader", model.RoleRead)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}

	now := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)
	seedUsage(t, s, cred.ID, now.Add(-1*time.Hour), 200)    // today, in window
	seedUsage(t, s, cred.ID, now.AddDate(0, 0, -3), 500)    // in window, error
	seedUsage(t, s, cred.ID, now.AddDate(0, 0, -7), 200)    // on the boundary
	seedUsage(t, s, cred.ID, now.AddDate(0, 0, -8), 200)    // outside window
	seedUsage(t, s, "other-cred", now.Add(-time.Hour), 200) // different credential

	st, err := s.CredentialUsageStats(ctx, cred.ID, 7, now)
	if err != nil {
		t.Fatalf("CredentialUsageStats: %v", err)
	}
	if st.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", st.TotalRequests)
	}
	if st.RequestsToday != 1 {
		t.Errorf("RequestsToday = %d, want 1", st.RequestsToday)
	}
	if st.ErrorRequests != 1 {
		t.Errorf("ErrorRequests = %d, want 1", st.ErrorRequests)
	}
	want := float64(2) / 3 * 100
	if st.SuccessRate < want-0.01 || st.SuccessRate > want+0.01 {
		t.Errorf("SuccessRate = %v, want ~%v", st.SuccessRate, want)
	}
	if st.PeriodDays != 7 {
		t.Errorf("PeriodDays = %d, want 7", st.PeriodDays)
	}
}

func TestCredentialUsageStatsZeroWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred, _, err := s.IssueCredential(ctx, "reader", model.RoleRead)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	now := time.Now().UTC()
	seedUsage(t, s, cred.ID, now.Add(-time.Minute), 200)

	st, err := s.CredentialUsageStats(ctx, cred.ID, 0, now)
	if err != nil {
		t.Fatalf("CredentialUsageStats: %v", err)
	}
	if st.TotalRequests != 0 || st.RequestsToday != 0 || st.ErrorRequests != 0 {
		t.Errorf("zero-day window should report zero counts, got %+v", st)
	}
	if st.SuccessRate != 100.0 {
		t.Errorf("SuccessRate = %v, want 100 for no requests", st.SuccessRate)
	}
}

func TestCredentialUsageStatsNegativeDays(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CredentialUsageStats(context.Background(), "any", -1, time.Now().UTC()); err == nil {
		t.Error("negative days should fail")
	}
}

func TestListUsage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred, _, err := s.IssueCredential(ctx, "reader", model.RoleRead)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	now := time.Now().UTC()
	seedUsage(t, s, cred.ID, now.Add(-2*time.Hour), 200)
	seedUsage(t, s, cred.ID, now.Add(-1*time.Hour), 200)

	recs, err := s.ListUsage(ctx, cred.ID, 10)
	if err != nil {
		t.Fatalf("ListUsage: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].Timestamp.Before(recs[1].Timestamp) {
		t.Error("records should be newest first")
	}
}
