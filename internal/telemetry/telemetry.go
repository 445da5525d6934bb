// Package telemetry batches per-request records and flushes them to the
// structured log in the background, keeping the request path free of
// sink latency.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hlsgate/hlsgate/internal/log"
)

// RequestRecord is one served request as seen by the telemetry sink.
type RequestRecord struct {
	Route     string
	Upstream  string
	Method    string // decryption method, "" for manifests
	Format    string // segment format, "" for manifests
	Status    int
	Bytes     int
	Duration  time.Duration
	Timestamp time.Time
}

const (
	defaultBatchSize     = 64
	defaultFlushInterval = 10 * time.Second
	queueCapacity        = 1024
)

// Sink collects records on a buffered channel and flushes them in
// batches. Records are dropped rather than blocking a request when the
// queue is full.
type Sink struct {
	ch     chan RequestRecord
	log    zerolog.Logger
	wg     sync.WaitGroup
	cancel context.CancelFunc

	batchSize     int
	flushInterval time.Duration
}

// NewSink starts the background flusher. Close releases it.
func NewSink() *Sink {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		ch:            make(chan RequestRecord, queueCapacity),
		log:           log.WithComponent("telemetry"),
		cancel:        cancel,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
	s.wg.Add(1)
	go s.run(ctx)
	return s
}

// Record enqueues one request record, dropping it if the sink is behind.
func (s *Sink) Record(rec RequestRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	select {
	case s.ch <- rec:
	default:
	}
}

// Close flushes pending records and stops the background goroutine.
func (s *Sink) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Sink) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]RequestRecord, 0, s.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-s.ch:
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case rec := <-s.ch:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (s *Sink) flush(batch []RequestRecord) {
	var bytes int
	for _, rec := range batch {
		bytes += rec.Bytes
	}
	s.log.Info().
		Int("records", len(batch)).
		Int("bytes", bytes).
		Time("oldest", batch[0].Timestamp).
		Msg("telemetry flush")

	for _, rec := range batch {
		s.log.Debug().
			Str("route", rec.Route).
			Str(log.FieldUpstream, rec.Upstream).
			Str(log.FieldDRMMethod, rec.Method).
			Str(log.FieldFormat, rec.Format).
			Int(log.FieldStatus, rec.Status).
			Int("bytes", rec.Bytes).
			Dur(log.FieldDuration, rec.Duration).
			Msg("request")
	}
}
