package camera

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"
)

// annexBStartCode prefixes every synthetic frame, like NAL units in raw H.264.
var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// SyntheticRecorder produces placeholder segments without a camera. It is used
// for dry runs and tests: every segment waits out its duration and then holds
// BytesPerSecond bytes of numbered frames.
type SyntheticRecorder struct {
	BytesPerSecond int

	mu       sync.Mutex
	path     string
	duration time.Duration
	started  bool
	frame    uint32
}

// NewSyntheticRecorder returns a recorder writing bytesPerSecond per second of
// segment duration.
func NewSyntheticRecorder(bytesPerSecond int) *SyntheticRecorder {
	return &SyntheticRecorder{BytesPerSecond: bytesPerSecond}
}

// StartSegment creates the segment file.
func (r *SyntheticRecorder) StartSegment(ctx context.Context, path string, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("segment %s still recording", r.path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating segment: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	r.path, r.duration, r.started = path, d, true
	return nil
}

// AwaitSegment waits for the segment duration and fills the file.
func (r *SyntheticRecorder) AwaitSegment(ctx context.Context) error {
	r.mu.Lock()
	path, d, started := r.path, r.duration, r.started
	r.mu.Unlock()
	if !started {
		return ErrNoSegment
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	err := r.fill(path, r.segmentSize(d))

	r.mu.Lock()
	r.path, r.started = "", false
	r.mu.Unlock()
	return err
}

func (r *SyntheticRecorder) segmentSize(d time.Duration) int {
	n := int(float64(r.BytesPerSecond) * d.Seconds())
	if n < len(annexBStartCode)+4 {
		n = len(annexBStartCode) + 4
	}
	return n
}

func (r *SyntheticRecorder) fill(path string, size int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening segment: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 0, size)
	for len(buf) < size {
		r.frame++
		buf = append(buf, annexBStartCode...)
		buf = binary.BigEndian.AppendUint32(buf, r.frame)
	}
	if _, err := f.Write(buf[:size]); err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}
	return f.Close()
}
