package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guildsight/guildsight/internal/model"
)

// UsageWriter is what the recorder needs from the control store.
type UsageWriter interface {
	InsertUsage(ctx context.Context, rec *model.UsageRecord) error
}

// Recorder appends audit records of authenticated calls through a
// bounded queue and a single background writer. Recording never blocks
// or fails the request path: when the queue is full the record is
// dropped and counted, and write failures are logged and swallowed.
type Recorder struct {
	writer UsageWriter
	logger *slog.Logger

	queue   chan model.UsageRecord
	dropped atomic.Int64
	closed  atomic.Bool

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// DefaultQueueSize bounds the usage queue when the config does not say
// otherwise.
const DefaultQueueSize = 1024

// NewRecorder creates a Recorder and starts its writer goroutine.
func NewRecorder(w UsageWriter, logger *slog.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &Recorder{
		writer: w,
		logger: logger,
		queue:  make(chan model.UsageRecord, queueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues one usage record. It returns immediately: under
// sustained overload records are dropped rather than backpressuring the
// authenticated request.
func (r *Recorder) Record(credentialID, endpoint, method string, status int, latency time.Duration) {
	if r.closed.Load() {
		r.dropped.Add(1)
		return
	}
	rec := model.UsageRecord{
		CredentialID: credentialID,
		Endpoint:     endpoint,
		Method:       method,
		Status:       status,
		LatencyMs:    float64(latency.Microseconds()) / 1000.0,
		Timestamp:    time.Now().UTC(),
	}
	select {
	case r.queue <- rec:
	default:
		n := r.dropped.Add(1)
		if n%100 == 1 {
			r.logger.Warn("usage queue full, dropping records", "dropped_total", n)
		}
	}
}

// Dropped reports how many records have been discarded due to a full
// queue since startup.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records, drains the queue, and waits for the
// writer to finish. The queue channel itself is never closed, so a
// Record racing Close drops the record instead of panicking.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.stop)
		<-r.done
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		case <-r.stop:
			// Drain whatever is already queued, then exit.
			for {
				select {
				case rec := <-r.queue:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec model.UsageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.writer.InsertUsage(ctx, &rec); err != nil {
		r.logger.Warn("usage record write failed", "credential", rec.CredentialID, "error", err)
	}
}
