package monitor

import (
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/firewatch/pkg/nn"
)

const DefaultHistorySize = 100

// ConfirmedEvent is recorded every time the stabilizer confirms fire or smoke
// SYNC-CONFIRMED-EVENT
type ConfirmedEvent struct {
	Time       time.Time `json:"time"`
	Class      nn.Class  `json:"class"`
	Confidence float32   `json:"confidence"`
	SubjectID  int64     `json:"subjectID"`
	Subject    string    `json:"subject"` // Name of the subject
}

// History holds the most recent confirmed events. Older events are evicted.
type History struct {
	limit int
	ring  ringbuffer.RingP[ConfirmedEvent]
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{
		limit: limit,
		ring:  ringbuffer.NewRingP[ConfirmedEvent](nextPowerOf2(limit)),
	}
}

func (h *History) Add(ev ConfirmedEvent) {
	h.ring.Add(ev)
}

func (h *History) Len() int {
	return min(h.ring.Len(), h.limit)
}

// Events returns a copy of the history, oldest first
func (h *History) Events() []ConfirmedEvent {
	n := h.ring.Len()
	start := max(0, n-h.limit)
	out := make([]ConfirmedEvent, 0, n-start)
	for i := start; i < n; i++ {
		out = append(out, h.ring.Peek(i))
	}
	return out
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
