package pipeline

import (
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"
)

// NameLayout formats segment timestamps. Fixed width and most significant
// field first, so names sort lexicographically in creation order. Colons are
// avoided to keep names valid on every filesystem and object store.
const NameLayout = "2006-01-02T15-04-05"

// Namer labels new segments from the wall clock at the moment each name is
// produced. Resolution is one second: two names taken within the same second
// collide.
type Namer struct {
	dir string
	ext string
	now func() time.Time
}

// NewNamer returns a Namer producing paths in dir ending in ext.
// A nil now uses time.Now.
func NewNamer(dir, ext string, now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{dir: dir, ext: ext, now: now}
}

// Next reads the clock and returns the path for a segment starting now.
func (n *Namer) Next() string {
	return filepath.Join(n.dir, n.now().UTC().Format(NameLayout)+n.ext)
}

// Names is an infinite, lazily evaluated sequence of segment paths. The clock
// is read when each value is pulled, never ahead of time.
func (n *Namer) Names() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			if !yield(n.Next()) {
				return
			}
		}
	}
}

// CreatedAt recovers the creation time embedded in a segment path.
func CreatedAt(path string) (time.Time, error) {
	base := filepath.Base(path)
	stamp := strings.TrimSuffix(base, filepath.Ext(base))
	t, err := time.ParseInLocation(NameLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("segment name %q has no timestamp: %w", base, err)
	}
	return t, nil
}
