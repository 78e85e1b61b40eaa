package camera

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/xfrr/goffmpeg/transcoder"
)

const (
	ffmpegCodec  = "libx264"
	ffmpegFormat = "h264"
	ffmpegPreset = "ultrafast"
)

// FFmpegRecorder records raw H.264 segments from a video device with ffmpeg.
// Each segment is a separate ffmpeg run bounded by -t, with the quality
// setting used as the x264 constant rate factor. Starting a run probes and
// reopens the device, so a short stretch of footage between segments is not
// recorded.
type FFmpegRecorder struct {
	settings Settings
	log      *slog.Logger

	mu   sync.Mutex
	path string
	done <-chan error
}

// NewFFmpegRecorder returns a recorder for the given settings.
func NewFFmpegRecorder(settings Settings, log *slog.Logger) *FFmpegRecorder {
	return &FFmpegRecorder{settings: settings, log: log}
}

// StartSegment launches ffmpeg writing d worth of video to path.
func (r *FFmpegRecorder) StartSegment(ctx context.Context, path string, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return fmt.Errorf("segment %s still recording", r.path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(r.settings.Device, path); err != nil {
		return fmt.Errorf("initializing ffmpeg for %s: %w", r.settings.Device, err)
	}

	media := trans.MediaFile()
	media.SetVideoCodec(ffmpegCodec)
	media.SetOutputFormat(ffmpegFormat)
	media.SetPreset(ffmpegPreset)
	media.SetCRF(uint32(r.settings.Quality))
	media.SetSkipAudio(true)
	media.SetDuration(ffmpegDuration(d))
	media.SetVideoFilter(videoFilter(r.settings))

	r.log.Debug("ffmpeg segment started",
		slog.String("device", r.settings.Device),
		slog.String("path", path),
		slog.Duration("duration", d))

	r.path = path
	r.done = trans.Run(false)
	return nil
}

// AwaitSegment blocks until ffmpeg exits for the current segment.
func (r *FFmpegRecorder) AwaitSegment(ctx context.Context) error {
	r.mu.Lock()
	done, path := r.done, r.path
	r.mu.Unlock()
	if done == nil {
		return ErrNoSegment
	}

	select {
	case err := <-done:
		r.mu.Lock()
		r.done, r.path = nil, ""
		r.mu.Unlock()
		if err != nil {
			return fmt.Errorf("recording %s: %w", path, err)
		}
		return nil
	case <-ctx.Done():
		// ffmpeg stops on its own once -t elapses; the partial file is
		// picked up by the reconciler on the next start.
		return ctx.Err()
	}
}

// videoFilter scales to the configured resolution and flips the image for a
// camera mounted upside down.
func videoFilter(s Settings) string {
	f := fmt.Sprintf("scale=%d:%d", s.Width, s.Height)
	if s.Rotation == 180 {
		f += ",hflip,vflip"
	}
	return f
}

// ffmpegDuration renders d as the seconds value accepted by -t.
func ffmpegDuration(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
