package pipeline

import (
	"log/slog"

	"hatcam/internal/platform/metrics"
)

// SpaceReporter reports free bytes on the volume holding path.
type SpaceReporter interface {
	FreeBytes(path string) (int64, error)
}

// ShouldStop is the disk-space policy: stop when free space would not hold two
// more segments the size of the last one. One is the segment just written,
// which may not be uploaded yet; the other is the next one.
func ShouldStop(freeBytes, lastSegmentBytes int64) bool {
	return freeBytes-2*lastSegmentBytes < 0
}

// DiskGuard applies ShouldStop to the capture volume.
type DiskGuard struct {
	dir     string
	space   SpaceReporter
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewDiskGuard returns a guard for the volume holding dir.
func NewDiskGuard(dir string, space SpaceReporter, log *slog.Logger, m *metrics.Metrics) *DiskGuard {
	return &DiskGuard{dir: dir, space: space, log: log, metrics: m}
}

// Check reports whether capture should stop after a segment of lastSegmentBytes.
// When free space cannot be read capture goes on; the failure is logged.
func (g *DiskGuard) Check(lastSegmentBytes int64) bool {
	free, err := g.space.FreeBytes(g.dir)
	if err != nil {
		g.log.Warn("free space unavailable",
			slog.String("dir", g.dir),
			slog.String("error", err.Error()))
		return false
	}
	g.metrics.SetFreeDiskBytes(free)

	if ShouldStop(free, lastSegmentBytes) {
		g.log.Warn("not enough free space for another segment",
			slog.Int64("free_bytes", free),
			slog.Int64("last_segment_bytes", lastSegmentBytes))
		return true
	}
	return false
}
