package pipeline

// RecordStore is the persistence abstraction for segment records.
// The ledger uses it for all reads and writes and serializes access itself,
// so implementations need not be safe for concurrent use.
type RecordStore interface {
	GetSegment(name string) (*Segment, bool)
	SetSegment(seg *Segment)
	DeleteSegment(name string)
	ListSegmentNames() []string
}

// InMemoryRecordStore is an in-memory implementation of RecordStore.
type InMemoryRecordStore struct {
	segments map[string]*Segment
}

// NewInMemoryRecordStore returns a new empty in-memory store.
func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		segments: make(map[string]*Segment),
	}
}

// GetSegment implements RecordStore.GetSegment.
func (s *InMemoryRecordStore) GetSegment(name string) (*Segment, bool) {
	seg, ok := s.segments[name]
	return seg, ok
}

// SetSegment implements RecordStore.SetSegment.
func (s *InMemoryRecordStore) SetSegment(seg *Segment) {
	s.segments[seg.Name] = seg
}

// DeleteSegment implements RecordStore.DeleteSegment.
func (s *InMemoryRecordStore) DeleteSegment(name string) {
	delete(s.segments, name)
}

// ListSegmentNames implements RecordStore.ListSegmentNames.
func (s *InMemoryRecordStore) ListSegmentNames() []string {
	names := make([]string, 0, len(s.segments))
	for name := range s.segments {
		names = append(names, name)
	}
	return names
}
