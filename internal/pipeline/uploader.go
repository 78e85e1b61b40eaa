package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"hatcam/internal/platform/metrics"
	"hatcam/internal/storage"
)

// ErrSegmentMissing is returned when a queued segment no longer exists
// locally. There is nothing to upload, so it is not retried.
var ErrSegmentMissing = errors.New("segment file missing")

// ObjectWriter is the part of a remote store the uploader needs.
type ObjectWriter interface {
	Put(ctx context.Context, name string, r io.Reader) error
}

// Uploader relocates one segment at a time to remote storage. Every store
// failure is retried with backoff until it succeeds or ctx is done;
// authentication and connectivity errors are treated alike. A vanished local
// file or a name no store accepts fails at once, since waiting cannot help.
type Uploader struct {
	store   ObjectWriter
	backoff Backoff
	sleep   SleepFunc
	remove  func(path string) error
	ledger  Ledger
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewUploader returns an uploader writing to store.
func NewUploader(store ObjectWriter, backoff Backoff, ledger Ledger, log *slog.Logger, m *metrics.Metrics) *Uploader {
	return &Uploader{
		store:   store,
		backoff: backoff,
		sleep:   Sleep,
		remove:  os.Remove,
		ledger:  ledger,
		log:     log,
		metrics: m,
	}
}

// Upload writes the file at path to the object named by its base name and
// deletes the local file once the write succeeded.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	name := ObjectName(path)
	delay := u.backoff.Initial

	for attempt := 1; ; attempt++ {
		u.ledger.Uploading(path, attempt)
		err := u.put(ctx, path, name)
		if err == nil {
			break
		}
		if errors.Is(err, ErrSegmentMissing) || errors.Is(err, storage.ErrInvalidName) {
			u.ledger.Failed(path, err)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		u.ledger.AttemptFailed(path, err)
		u.metrics.IncUploadRetries()
		u.log.Warn("upload failed, retrying",
			slog.String("path", path),
			slog.String("object", name),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		if err := u.sleep(ctx, delay); err != nil {
			return err
		}
		delay = u.backoff.Next(delay)
	}

	u.ledger.Uploaded(path)
	u.metrics.IncSegmentsUploaded()
	u.log.Info("segment uploaded",
		slog.String("path", path),
		slog.String("object", name))

	if err := u.remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		u.metrics.IncLocalDeleteErrors()
		return fmt.Errorf("removing uploaded segment: %w", err)
	}
	return nil
}

func (u *Uploader) put(ctx context.Context, path, name string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSegmentMissing, path)
	}
	if err != nil {
		return fmt.Errorf("opening segment: %w", err)
	}
	defer f.Close()

	if err := u.store.Put(ctx, name, f); err != nil {
		return fmt.Errorf("writing object %s: %w", name, err)
	}
	return nil
}
