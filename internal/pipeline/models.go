package pipeline

import "time"

// SegmentState is the lifecycle stage of a segment.
type SegmentState string

const (
	StateRecording SegmentState = "recording"
	StateQueued    SegmentState = "queued"
	StateUploading SegmentState = "uploading"
	StateUploaded  SegmentState = "uploaded"
	StateFailed    SegmentState = "failed"
)

// States lists every state in lifecycle order.
var States = []SegmentState{StateRecording, StateQueued, StateUploading, StateUploaded, StateFailed}

// Valid reports whether s is a known state.
func (s SegmentState) Valid() bool {
	for _, st := range States {
		if s == st {
			return true
		}
	}
	return false
}

// Segment is the ledger record of one captured media file.
type Segment struct {
	Name       string       `json:"name"`
	Path       string       `json:"path"`
	State      SegmentState `json:"state"`
	SizeBytes  int64        `json:"size_bytes"`
	CreatedAt  time.Time    `json:"created_at,omitzero"`
	Attempts   int          `json:"attempts"`
	LastError  string       `json:"last_error,omitempty"`
	Reconciled bool         `json:"reconciled"`

	// Metadata managed by the ledger.
	UpdatedAt time.Time `json:"updated_at"`
}
