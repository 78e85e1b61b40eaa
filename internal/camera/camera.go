// Package camera drives capture sources that record one fixed-duration
// segment at a time into a named file.
//
// A recorder is used in two steps: StartSegment begins writing a segment of
// the given duration to a path, AwaitSegment blocks until that file is
// complete. Only the capture goroutine calls AwaitSegment, so the wait never
// holds up uploads.
package camera

import (
	"errors"
)

// ErrNoSegment is returned by AwaitSegment when no segment was started.
var ErrNoSegment = errors.New("no segment in progress")

// Settings are the capture parameters the pipeline cares about.
type Settings struct {
	Device   string // ffmpeg input, e.g. /dev/video0
	Width    int
	Height   int
	Quality  int // 1 (best) to 40 (worst)
	Rotation int // 0 or 180
}
