package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/guildsight/guildsight/internal/model"
)

type memWriter struct {
	mu      sync.Mutex
	records []model.UsageRecord
	err     error
	gate    chan struct{} // when non-nil, writes block until the gate closes
}

func (m *memWriter) InsertUsage(ctx context.Context, rec *model.UsageRecord) error {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *memWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorderPersistsRecords(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w, discardLogger(), 16)

	r.Record("cred-1", "/api/v1/server/stats", "GET", 200, 12*time.Millisecond)
	r.Record("cred-1", "/api/v1/server/stats", "GET", 200, 8*time.Millisecond)
	r.Close()

	if got := w.count(); got != 2 {
		t.Fatalf("persisted %d records, want 2", got)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	rec := w.records[0]
	if rec.CredentialID != "cred-1" || rec.Method != "GET" || rec.Status != 200 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.LatencyMs != 12.0 {
		t.Errorf("LatencyMs = %v, want 12.0", rec.LatencyMs)
	}
}

func TestRecorderDropsOnOverflow(t *testing.T) {
	gate := make(chan struct{})
	w := &memWriter{gate: gate}
	r := NewRecorder(w, discardLogger(), 1)

	// The writer is blocked, so beyond one in-flight and one queued
	// record everything must be dropped without blocking the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			r.Record("cred-1", "/x", "GET", 200, time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked the caller")
	}

	close(gate)
	r.Close()

	if r.Dropped() == 0 {
		t.Error("expected dropped records under overflow")
	}
	if r.Dropped()+int64(w.count()) != 50 {
		t.Errorf("dropped %d + written %d != 50", r.Dropped(), w.count())
	}
}

func TestRecorderSwallowsWriteFailures(t *testing.T) {
	w := &memWriter{err: errors.New("storage down")}
	r := NewRecorder(w, discardLogger(), 4)

	r.Record("cred-1", "/x", "GET", 500, time.Millisecond)
	r.Close() // must not panic or surface the failure

	if got := w.count(); got != 0 {
		t.Errorf("persisted %d records, want 0", got)
	}
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	r := NewRecorder(&memWriter{}, discardLogger(), 4)
	r.Close()
	r.Close()
}

func TestRecorderRecordAfterClose(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w, discardLogger(), 4)

	r.Record("cred-1", "/x", "GET", 200, time.Millisecond)
	r.Close()

	// Late records must drop silently, never panic or persist.
	r.Record("cred-1", "/x", "GET", 200, time.Millisecond)

	if got := w.count(); got != 1 {
		t.Errorf("persisted %d records, want 1", got)
	}
	if r.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", r.Dropped())
	}
}

func TestRecorderCloseRacesRecord(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w, discardLogger(), 64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Record("cred-1", "/x", "GET", 200, time.Millisecond)
			}
		}()
	}

	// Closing while recorders are live must never panic; records that
	// arrive after the close are dropped.
	r.Close()
	wg.Wait()
}
