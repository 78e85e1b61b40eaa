package pipeline

import (
	"context"
	"log/slog"
)

// Worker drains the queue, uploading one segment at a time. A failed item is
// logged and skipped; only ctx ends the loop.
type Worker struct {
	queue    *Queue
	uploader *Uploader
	log      *slog.Logger
}

// NewWorker returns a worker feeding q into u.
func NewWorker(q *Queue, u *Uploader, log *slog.Logger) *Worker {
	return &Worker{queue: q, uploader: u, log: log}
}

// Run processes queued segments until ctx is done and returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	for {
		path, err := w.queue.Get(ctx)
		if err != nil {
			return err
		}
		if err := w.uploader.Upload(ctx, path); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error("segment upload failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
}
