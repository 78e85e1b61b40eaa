package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hatcam/internal/camera"
	"hatcam/internal/storage"
)

func listLocal(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.h264"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestService_Run_end_to_end_with_flaky_network(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")
	store := storage.NewMemoryStore()
	store.FailNextPuts(2, errors.New("network is unreachable"))
	log, buf := newTestLogger()

	svc := NewService(Config{
		Dir:             dir,
		Extension:       ".h264",
		SegmentDuration: 20 * time.Millisecond,
		Clock:           func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) },
	},
		camera.NewSyntheticRecorder(1000),
		store,
		// No free space: the guard stops capture after the first segment.
		fakeSpace{free: 0},
		log, nil)
	sleeps := &sleepRecorder{}
	svc.uploader.sleep = sleeps.sleep

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	eventually(t, "upload to finish", func() bool {
		seg, err := svc.Ledger().Get("2024-05-01T10-00-00.h264")
		return err == nil && seg.State == StateUploaded && len(listLocal(t, dir)) == 0
	})
	eventually(t, "capture to stop", func() bool { return !svc.Capturing() })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.Len() != 1 {
		t.Errorf("expected exactly one remote object, got %d", store.Len())
	}
	if _, ok := store.Object("2024-05-01T10-00-00.h264"); !ok {
		t.Error("remote object missing")
	}
	if local := listLocal(t, dir); len(local) != 0 {
		t.Errorf("expected no local segments, got %v", local)
	}

	retries := buf.records(t, "upload failed, retrying")
	if len(retries) != 2 {
		t.Fatalf("expected 2 retry events, got %d", len(retries))
	}
	if retries[0]["delay"] != float64(time.Second) || retries[1]["delay"] != float64(2*time.Second) {
		t.Errorf("retry delays: got %v then %v", retries[0]["delay"], retries[1]["delay"])
	}
	if got := sleeps.recorded(); len(got) != 2 || got[0] != time.Second || got[1] != 2*time.Second {
		t.Errorf("waits: got %v", got)
	}
}

func TestService_Run_uploads_leftovers_before_new_segments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeSegment(t, dir, "2024-04-30T23-59-50.h264", "leftover")

	w := &orderWriter{}
	svc := NewService(Config{
		Dir:             dir,
		Extension:       ".h264",
		SegmentDuration: 10 * time.Millisecond,
		Clock:           func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) },
	}, camera.NewSyntheticRecorder(100), w, fakeSpace{free: 0}, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	eventually(t, "both uploads", func() bool { return len(w.seen()) == 2 })
	cancel()
	<-done

	got := w.seen()
	if got[0] != "2024-04-30T23-59-50.h264" || got[1] != "2024-05-01T10-00-00.h264" {
		t.Errorf("upload order: got %v", got)
	}
	seg, err := svc.Ledger().Get("2024-04-30T23-59-50.h264")
	if err != nil || !seg.Reconciled {
		t.Errorf("leftover should be marked reconciled: %+v %v", seg, err)
	}
}

func TestService_Run_keeps_draining_after_capture_error(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeSegment(t, dir, "2024-04-30T23-59-50.h264", "leftover")

	store := storage.NewMemoryStore()
	log, buf := newTestLogger()
	svc := NewService(Config{Dir: dir, Extension: ".h264", SegmentDuration: time.Millisecond},
		&fakeRecorder{failAt: 1}, store, fakeSpace{free: 1 << 30}, log, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	eventually(t, "leftover upload", func() bool { return store.Len() == 1 })
	eventually(t, "capture error", func() bool { return len(buf.records(t, "capture stopped")) == 1 })
	cancel()
	<-done
}

func TestService_Run_hidden_leftover_does_not_block_queue(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeSegment(t, dir, ".partial.h264", "hidden")
	writeSegment(t, dir, "2024-05-01T09-00-00.h264", "leftover")

	store := storage.NewMemoryStore()
	svc := NewService(Config{Dir: dir, Extension: ".h264", SegmentDuration: time.Millisecond},
		&fakeRecorder{failAt: 1}, store, fakeSpace{free: 1 << 30}, quietLogger(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	eventually(t, "the valid leftover", func() bool { return store.Len() == 1 })
	cancel()
	<-done

	if _, ok := store.Object("2024-05-01T09-00-00.h264"); !ok {
		t.Error("valid leftover missing from the store")
	}
	if svc.QueueDepth() != 0 {
		t.Errorf("queue should be drained, %d left", svc.QueueDepth())
	}
}

func TestService_Run_deadline_is_a_clean_stop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")
	log, buf := newTestLogger()
	svc := NewService(Config{Dir: dir, Extension: ".h264", SegmentDuration: time.Hour},
		camera.NewSyntheticRecorder(1), storage.NewMemoryStore(), fakeSpace{free: 1 << 30}, log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, msg := range []string{"upload worker stopped", "capture stopped"} {
		if n := len(buf.records(t, msg)); n != 0 {
			t.Errorf("%q logged %d times on deadline", msg, n)
		}
	}
}
