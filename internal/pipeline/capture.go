package pipeline

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"hatcam/internal/platform/metrics"
)

// Recorder is a capture source that writes one segment at a time.
type Recorder interface {
	// StartSegment begins recording d worth of media into path.
	StartSegment(ctx context.Context, path string, d time.Duration) error

	// AwaitSegment blocks until the segment started last is complete.
	AwaitSegment(ctx context.Context) error
}

// Capturer is the capture loop. It records segments back to back, queues each
// finished one for upload and stops when the disk guard says so.
type Capturer struct {
	recorder Recorder
	names    iter.Seq[string]
	duration time.Duration
	queue    *Queue
	guard    *DiskGuard
	ledger   Ledger
	log      *slog.Logger
	metrics  *metrics.Metrics

	capturing atomic.Bool
}

// NewCapturer returns a capture loop recording segments of duration d named by names.
func NewCapturer(rec Recorder, names iter.Seq[string], d time.Duration, q *Queue, guard *DiskGuard, ledger Ledger, log *slog.Logger, m *metrics.Metrics) *Capturer {
	return &Capturer{
		recorder: rec,
		names:    names,
		duration: d,
		queue:    q,
		guard:    guard,
		ledger:   ledger,
		log:      log,
		metrics:  m,
	}
}

// Capturing reports whether the loop is running.
func (c *Capturer) Capturing() bool {
	return c.capturing.Load()
}

// Run captures until the disk guard stops it (nil), the recorder fails or ctx
// is cancelled. Recorder errors are not retried.
func (c *Capturer) Run(ctx context.Context) error {
	c.capturing.Store(true)
	defer c.capturing.Store(false)

	for path := range c.names {
		if err := ctx.Err(); err != nil {
			return err
		}

		size, err := c.record(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.ledger.Failed(path, err)
			return err
		}

		// Record the queued state first so the worker never sees it regress.
		c.ledger.Queued(path, size, false)
		if err := c.queue.Put(ctx, path); err != nil {
			return err
		}
		c.metrics.IncSegmentsCaptured()
		c.log.Info("segment queued",
			slog.String("path", path),
			slog.Int64("size_bytes", size))

		if c.guard.Check(size) {
			c.log.Info("capture stopped, disk nearly full")
			return nil
		}
	}
	return nil
}

// record captures one segment and returns its size.
func (c *Capturer) record(ctx context.Context, path string) (int64, error) {
	c.ledger.Recording(path)
	c.log.Debug("recording segment", slog.String("path", path))

	if err := c.recorder.StartSegment(ctx, path, c.duration); err != nil {
		return 0, fmt.Errorf("starting segment %s: %w", path, err)
	}
	if err := c.recorder.AwaitSegment(ctx); err != nil {
		return 0, fmt.Errorf("recording segment %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("reading segment size: %w", err)
	}
	return info.Size(), nil
}
