package pipeline

import (
	"sort"
	"testing"
)

func TestInMemoryRecordStore_GetSetSegment(t *testing.T) {
	store := NewInMemoryRecordStore()

	if _, ok := store.GetSegment("a.h264"); ok {
		t.Error("expected not found for empty store")
	}

	seg := &Segment{Name: "a.h264", State: StateQueued}
	store.SetSegment(seg)

	got, ok := store.GetSegment("a.h264")
	if !ok || got != seg {
		t.Errorf("GetSegment: ok=%v, got %p want %p", ok, got, seg)
	}
}

func TestInMemoryRecordStore_Delete_and_List(t *testing.T) {
	store := NewInMemoryRecordStore()
	store.SetSegment(&Segment{Name: "b.h264"})
	store.SetSegment(&Segment{Name: "a.h264"})
	store.DeleteSegment("b.h264")
	store.DeleteSegment("missing.h264")

	names := store.ListSegmentNames()
	sort.Strings(names)
	if len(names) != 1 || names[0] != "a.h264" {
		t.Errorf("ListSegmentNames: got %v", names)
	}
}
