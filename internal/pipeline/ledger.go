package pipeline

import (
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DefaultHistorySize is the number of uploaded records kept for the status surface.
const DefaultHistorySize = 256

// ErrSegmentNotFound is returned when the ledger has no record for a name.
var ErrSegmentNotFound = errors.New("segment not found")

// Ledger defines the concurrency-safe contract for tracking where each
// segment is in its lifecycle. It is observational only: nothing in the
// pipeline orders or schedules work from it.
type Ledger interface {
	// Recording notes that capture of path has started.
	Recording(path string)

	// Queued notes that path was handed to the upload queue with the given size.
	// reconciled is true for leftovers found at startup.
	Queued(path string, sizeBytes int64, reconciled bool)

	// Uploading notes the start of upload attempt number attempt.
	Uploading(path string, attempt int)

	// AttemptFailed records the error of the latest upload attempt.
	AttemptFailed(path string, err error)

	// Uploaded notes that the remote copy of path has been written.
	Uploaded(path string)

	// Failed notes that path was given up on.
	Failed(path string, err error)

	// Get returns the record for the object name.
	Get(name string) (Segment, error)

	// Snapshot returns copies of all records in state (all records when state
	// is empty), sorted by name.
	Snapshot(state SegmentState) []Segment

	// Counts returns the number of records per state.
	Counts() map[SegmentState]int
}

// InMemoryLedger is a concurrency-safe in-memory implementation of Ledger.
// It keeps every segment that is still in flight and at most historySize
// uploaded ones.
type InMemoryLedger struct {
	mu          sync.RWMutex
	store       RecordStore
	historySize int
	now         func() time.Time
}

// NewInMemoryLedger constructs a ledger with a default in-memory store.
// If historySize <= 0, DefaultHistorySize is used.
func NewInMemoryLedger(historySize int) *InMemoryLedger {
	return NewInMemoryLedgerWithStore(NewInMemoryRecordStore(), historySize)
}

// NewInMemoryLedgerWithStore constructs a ledger that uses the given RecordStore.
func NewInMemoryLedgerWithStore(store RecordStore, historySize int) *InMemoryLedger {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &InMemoryLedger{store: store, historySize: historySize, now: time.Now}
}

// Recording implements Ledger.Recording.
func (l *InMemoryLedger) Recording(path string) {
	l.update(path, func(seg *Segment) {
		seg.State = StateRecording
	})
}

// Queued implements Ledger.Queued.
func (l *InMemoryLedger) Queued(path string, sizeBytes int64, reconciled bool) {
	l.update(path, func(seg *Segment) {
		seg.State = StateQueued
		seg.SizeBytes = sizeBytes
		seg.Reconciled = reconciled
	})
}

// Uploading implements Ledger.Uploading.
func (l *InMemoryLedger) Uploading(path string, attempt int) {
	l.update(path, func(seg *Segment) {
		seg.State = StateUploading
		seg.Attempts = attempt
	})
}

// AttemptFailed implements Ledger.AttemptFailed.
func (l *InMemoryLedger) AttemptFailed(path string, err error) {
	l.update(path, func(seg *Segment) {
		seg.LastError = errString(err)
	})
}

// Uploaded implements Ledger.Uploaded.
func (l *InMemoryLedger) Uploaded(path string) {
	l.update(path, func(seg *Segment) {
		seg.State = StateUploaded
		seg.LastError = ""
	})
}

// Failed implements Ledger.Failed.
func (l *InMemoryLedger) Failed(path string, err error) {
	l.update(path, func(seg *Segment) {
		seg.State = StateFailed
		seg.LastError = errString(err)
	})
}

// Get implements Ledger.Get.
func (l *InMemoryLedger) Get(name string) (Segment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seg, ok := l.store.GetSegment(name)
	if !ok {
		return Segment{}, ErrSegmentNotFound
	}
	return *seg, nil
}

// Snapshot implements Ledger.Snapshot.
func (l *InMemoryLedger) Snapshot(state SegmentState) []Segment {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := l.store.ListSegmentNames()
	sort.Strings(names)

	out := make([]Segment, 0, len(names))
	for _, name := range names {
		seg, ok := l.store.GetSegment(name)
		if !ok || (state != "" && seg.State != state) {
			continue
		}
		out = append(out, *seg)
	}
	return out
}

// Counts implements Ledger.Counts.
func (l *InMemoryLedger) Counts() map[SegmentState]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[SegmentState]int, len(States))
	for _, st := range States {
		counts[st] = 0
	}
	for _, name := range l.store.ListSegmentNames() {
		if seg, ok := l.store.GetSegment(name); ok {
			counts[seg.State]++
		}
	}
	return counts
}

// update applies fn to the record for path, creating it if needed.
func (l *InMemoryLedger) update(path string, fn func(*Segment)) {
	name := ObjectName(path)

	l.mu.Lock()
	defer l.mu.Unlock()

	seg, ok := l.store.GetSegment(name)
	if !ok {
		seg = &Segment{Name: name}
		if t, err := CreatedAt(path); err == nil {
			seg.CreatedAt = t
		}
		l.store.SetSegment(seg)
	}
	seg.Path = path
	fn(seg)
	seg.UpdatedAt = l.now().UTC()

	if seg.State == StateUploaded {
		l.pruneUploadedLocked()
	}
}

// pruneUploadedLocked drops the oldest uploaded records beyond historySize.
// Names sort in capture order, so the oldest come first.
// Caller must hold l.mu in write mode.
func (l *InMemoryLedger) pruneUploadedLocked() {
	var uploaded []string
	for _, name := range l.store.ListSegmentNames() {
		if seg, ok := l.store.GetSegment(name); ok && seg.State == StateUploaded {
			uploaded = append(uploaded, name)
		}
	}
	if len(uploaded) <= l.historySize {
		return
	}
	sort.Strings(uploaded)
	for _, name := range uploaded[:len(uploaded)-l.historySize] {
		l.store.DeleteSegment(name)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ObjectName is the remote object name of a local segment path: the file
// name with the directory stripped.
func ObjectName(path string) string {
	return filepath.Base(path)
}
