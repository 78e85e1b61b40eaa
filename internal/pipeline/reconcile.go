package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hatcam/internal/platform/metrics"
	"hatcam/internal/storage"
)

// Reconcile queues every segment left in dir by a previous run. Only regular
// files ending in ext are considered, and files whose names no store accepts
// (hidden ones, for example) are logged and left alone. They are queued in name order, which is
// capture order, and the number queued is returned.
func Reconcile(ctx context.Context, dir, ext string, q *Queue, ledger Ledger, log *slog.Logger, m *metrics.Metrics) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scanning segment directory: %w", err)
	}

	n := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := storage.ValidateName(e.Name()); err != nil {
			log.Warn("leftover segment skipped",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}

		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}

		ledger.Queued(path, size, true)
		if err := q.Put(ctx, path); err != nil {
			return n, err
		}
		m.IncSegmentsReconciled()
		log.Info("leftover segment queued",
			slog.String("path", path),
			slog.Int64("size_bytes", size))
		n++
	}
	return n, nil
}
