// Package pipeline moves captured media segments from local disk to remote
// storage.
//
// A capture loop records fixed-duration segments named by their start time
// and hands each finished path to an upload queue. A single worker drains the
// queue in FIFO order, writes each file to the remote store with exponential
// backoff and deletes the local copy only after the write succeeded. On
// start, segments left behind by a previous run are queued before capture
// begins, so delivery is at least once. Capture stops on its own when free
// disk space would not hold two more segments.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"hatcam/internal/platform/metrics"
)

// Config holds the pipeline settings.
type Config struct {
	Dir             string // local segment directory
	Extension       string // segment file extension, including the dot
	SegmentDuration time.Duration
	QueueSize       int // 0 means unbounded
	Backoff         Backoff
	HistorySize     int              // uploaded records kept in the ledger
	Clock           func() time.Time // nil uses time.Now
}

// Service wires the capture loop, upload worker and startup reconciler.
type Service struct {
	cfg      Config
	queue    *Queue
	ledger   *InMemoryLedger
	capturer *Capturer
	uploader *Uploader
	worker   *Worker
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewService returns a pipeline recording with rec, writing to store and
// watching free space through space. Metrics may be nil.
func NewService(cfg Config, rec Recorder, store ObjectWriter, space SpaceReporter, log *slog.Logger, m *metrics.Metrics) *Service {
	if cfg.Backoff == (Backoff{}) {
		cfg.Backoff = DefaultBackoff()
	}

	queue := NewQueue(cfg.QueueSize)
	ledger := NewInMemoryLedger(cfg.HistorySize)
	namer := NewNamer(cfg.Dir, cfg.Extension, cfg.Clock)
	guard := NewDiskGuard(cfg.Dir, space, log, m)
	uploader := NewUploader(store, cfg.Backoff, ledger, log, m)

	return &Service{
		cfg:      cfg,
		queue:    queue,
		ledger:   ledger,
		capturer: NewCapturer(rec, namer.Names(), cfg.SegmentDuration, queue, guard, ledger, log, m),
		uploader: uploader,
		worker:   NewWorker(queue, uploader, log),
		log:      log,
		metrics:  m,
	}
}

// Run starts the upload worker, queues leftovers from a previous run and then
// starts capturing. It keeps uploading after capture stops and returns once
// ctx is done and both loops have exited. Only setup failures are returned.
func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("creating segment directory: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.worker.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("upload worker stopped", slog.String("error", err.Error()))
		}
	}()

	n, err := Reconcile(ctx, s.cfg.Dir, s.cfg.Extension, s.queue, s.ledger, s.log, s.metrics)
	if err != nil && ctx.Err() == nil {
		s.log.Error("startup reconcile failed", slog.String("error", err.Error()))
	}
	s.log.Info("startup reconcile done", slog.Int("queued", n))

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := s.capturer.Run(ctx)
		switch {
		case ctx.Err() != nil:
		case err != nil:
			s.log.Error("capture stopped", slog.String("error", err.Error()))
		default:
			s.log.Info("capture finished")
		}
	}()

	<-ctx.Done()
	wg.Wait()
	s.log.Info("pipeline stopped", slog.Int("queued", s.queue.Len()))
	return nil
}

// Capturing reports whether the capture loop is running.
func (s *Service) Capturing() bool {
	return s.capturer.Capturing()
}

// QueueDepth returns the number of segments waiting for upload.
func (s *Service) QueueDepth() int {
	return s.queue.Len()
}

// Ledger returns the segment ledger.
func (s *Service) Ledger() Ledger {
	return s.ledger
}
