package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryLedger_lifecycle(t *testing.T) {
	l := NewInMemoryLedger(0)
	path := "videos/2024-05-01T10-00-00.h264"

	l.Recording(path)
	seg, err := l.Get("2024-05-01T10-00-00.h264")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if seg.State != StateRecording || seg.Path != path {
		t.Errorf("after Recording: got %+v", seg)
	}
	if want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC); !seg.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt: got %v want %v", seg.CreatedAt, want)
	}

	l.Queued(path, 512, false)
	l.Uploading(path, 1)
	l.AttemptFailed(path, errors.New("dial tcp: timeout"))
	l.Uploading(path, 2)

	seg, _ = l.Get("2024-05-01T10-00-00.h264")
	if seg.State != StateUploading || seg.Attempts != 2 || seg.SizeBytes != 512 {
		t.Errorf("while uploading: got %+v", seg)
	}
	if seg.LastError != "dial tcp: timeout" {
		t.Errorf("LastError: got %q", seg.LastError)
	}

	l.Uploaded(path)
	seg, _ = l.Get("2024-05-01T10-00-00.h264")
	if seg.State != StateUploaded || seg.LastError != "" {
		t.Errorf("after Uploaded: got %+v", seg)
	}
}

func TestInMemoryLedger_Get_not_found(t *testing.T) {
	l := NewInMemoryLedger(0)
	if _, err := l.Get("missing.h264"); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("expected ErrSegmentNotFound, got %v", err)
	}
}

func TestInMemoryLedger_foreign_name_has_no_created_at(t *testing.T) {
	l := NewInMemoryLedger(0)
	l.Queued("videos/holiday.h264", 1, true)
	seg, err := l.Get("holiday.h264")
	if err != nil {
		t.Fatal(err)
	}
	if !seg.CreatedAt.IsZero() || !seg.Reconciled {
		t.Errorf("got %+v", seg)
	}
}

func TestInMemoryLedger_Snapshot_sorted_and_filtered(t *testing.T) {
	l := NewInMemoryLedger(0)
	l.Queued("videos/c.h264", 1, false)
	l.Queued("videos/a.h264", 1, false)
	l.Failed("videos/b.h264", ErrSegmentMissing)

	all := l.Snapshot("")
	if len(all) != 3 || all[0].Name != "a.h264" || all[1].Name != "b.h264" || all[2].Name != "c.h264" {
		t.Errorf("Snapshot: got %+v", all)
	}

	failed := l.Snapshot(StateFailed)
	if len(failed) != 1 || failed[0].Name != "b.h264" {
		t.Errorf("Snapshot(failed): got %+v", failed)
	}

	counts := l.Counts()
	if counts[StateQueued] != 2 || counts[StateFailed] != 1 || counts[StateUploaded] != 0 {
		t.Errorf("Counts: got %v", counts)
	}
}

func TestInMemoryLedger_bounded_uploaded_history(t *testing.T) {
	l := NewInMemoryLedger(2)
	for i := 0; i < 4; i++ {
		l.Uploaded(fmt.Sprintf("videos/%d.h264", i))
	}
	l.Queued("videos/9.h264", 1, false)

	uploaded := l.Snapshot(StateUploaded)
	if len(uploaded) != 2 || uploaded[0].Name != "2.h264" || uploaded[1].Name != "3.h264" {
		t.Errorf("expected the two newest uploads, got %+v", uploaded)
	}
	if _, err := l.Get("9.h264"); err != nil {
		t.Errorf("in-flight record must be kept: %v", err)
	}
}

func TestObjectName(t *testing.T) {
	if got := ObjectName("./videos/2024-05-01T10-00-00.h264"); got != "2024-05-01T10-00-00.h264" {
		t.Errorf("got %q", got)
	}
}
