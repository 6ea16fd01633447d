package checkpoint

import (
	"time"
)

// Phase identifies which pipeline stage a session is currently driving.
type Phase string

const (
	PhaseImageGeneration Phase = "image_generation"
	PhaseVideoGeneration Phase = "video_generation"
)

// Failure records the point at which a stage aborted. It is cleared by the
// next successful item commit.
type Failure struct {
	Index     int       `json:"index"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Checkpoint is the durable progress record for one session. Results is a
// fixed-length array addressed by item index: slot i holds the artifact path
// produced for input item i, or "" until that item completes. Items may
// finish out of order inside a batch, so CompletedIndices preserves
// completion order while Results preserves input order.
type Checkpoint struct {
	SessionID        string    `json:"session_id"`
	Phase            Phase     `json:"phase"`
	Completed        bool      `json:"completed"`
	TotalItems       int       `json:"total_items"`
	Prompts          []string  `json:"prompts,omitempty"`
	SourceItems      []string  `json:"source_items,omitempty"`
	CompletedIndices []int     `json:"completed_indices"`
	Results          []string  `json:"results"`
	FailedAt         *Failure  `json:"failed_at,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	LastUpdate       time.Time `json:"last_update"`
	TotalSeconds     int       `json:"total_seconds,omitempty"`
}

// Summary is the operator-facing view of a checkpoint used by listings and
// progress endpoints.
type Summary struct {
	SessionID      string    `json:"session_id"`
	Phase          Phase     `json:"phase"`
	Completed      bool      `json:"completed"`
	TotalItems     int       `json:"total_items"`
	CompletedItems int       `json:"completed_items"`
	FailedAt       *Failure  `json:"failed_at,omitempty"`
	LastUpdate     time.Time `json:"last_update"`
}

// New initializes a fresh checkpoint for a stage. The ordered inputs are
// retained so a resumed run can verify it is replaying the same work.
func New(sessionID string, phase Phase, items []string) *Checkpoint {
	cp := &Checkpoint{
		SessionID:        sessionID,
		Phase:            phase,
		TotalItems:       len(items),
		CompletedIndices: []int{},
		Results:          make([]string, len(items)),
		StartedAt:        time.Now().UTC(),
		LastUpdate:       time.Now().UTC(),
	}
	retained := append([]string(nil), items...)
	switch phase {
	case PhaseVideoGeneration:
		cp.SourceItems = retained
	default:
		cp.Prompts = retained
	}
	return cp
}

// RecordResult commits item index's artifact path. The slot is addressed by
// the item's original index, never by append position, so index i always
// corresponds to input item i regardless of completion order.
func (c *Checkpoint) RecordResult(index int, path string) {
	if index < 0 || index >= len(c.Results) {
		return
	}
	c.Results[index] = path
	c.CompletedIndices = append(c.CompletedIndices, index)
	c.FailedAt = nil
	c.LastUpdate = time.Now().UTC()
}

// RecordFailure marks the stage as aborted at the given index.
func (c *Checkpoint) RecordFailure(index int, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	c.FailedAt = &Failure{
		Index:     index,
		Error:     msg,
		Timestamp: time.Now().UTC(),
	}
	c.LastUpdate = time.Now().UTC()
}

// MarkCompleted finalizes the checkpoint with aggregate timing.
func (c *Checkpoint) MarkCompleted() {
	c.Completed = true
	c.FailedAt = nil
	c.LastUpdate = time.Now().UTC()
	c.TotalSeconds = int(c.LastUpdate.Sub(c.StartedAt) / time.Second)
}

// CompletedSet returns the committed indices as a set for resume checks.
func (c *Checkpoint) CompletedSet() map[int]struct{} {
	set := make(map[int]struct{}, len(c.CompletedIndices))
	for _, idx := range c.CompletedIndices {
		set[idx] = struct{}{}
	}
	return set
}

// Items returns the ordered inputs for the checkpoint's phase.
func (c *Checkpoint) Items() []string {
	if c.Phase == PhaseVideoGeneration {
		return c.SourceItems
	}
	return c.Prompts
}

// Summarize reduces the checkpoint to its listing form.
func (c *Checkpoint) Summarize() Summary {
	return Summary{
		SessionID:      c.SessionID,
		Phase:          c.Phase,
		Completed:      c.Completed,
		TotalItems:     c.TotalItems,
		CompletedItems: len(c.CompletedIndices),
		FailedAt:       c.FailedAt,
		LastUpdate:     c.LastUpdate,
	}
}
