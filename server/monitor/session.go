package monitor

import (
	"errors"
	"sync"

	"github.com/cyclopcam/firewatch/server/configdb"
	"gocv.io/x/gocv"
)

// Action is a command to SetActivation
type Action string

const (
	ActionStart Action = "start" // Start detecting, and bind to a subject
	ActionStop  Action = "stop"  // Stop detecting, and unbind the subject
	ActionReset Action = "reset" // Zero the confirmed event counter
)

var ErrUnknownAction = errors.New("Unknown action. Expected start, stop or reset")

// Session is all of the mutable state of the pipeline.
// Everything in here is guarded by lock, which is only ever held for bookkeeping.
// The expensive work (decoding, inference, delivery) happens outside the lock.
type Session struct {
	lock           sync.Mutex
	active         bool
	subject        *configdb.Subject
	totalConfirmed int64
	previous       *gocv.Mat // Previous decoded frame, for the motion gate. Dropped on stop.
	stabilizer     *Stabilizer
	history        *History
}

// SYNC-MONITOR-STATUS
type Status struct {
	Active         bool              `json:"active"`
	TotalConfirmed int64             `json:"totalConfirmed"`
	Subject        *configdb.Subject `json:"subject"`
	FireStreak     int               `json:"fireStreak"`
	SmokeStreak    int               `json:"smokeStreak"`
}

func NewSession(settings Settings) *Session {
	return &Session{
		stabilizer: NewStabilizer(settings.FireFrames, settings.SmokeFrames),
		history:    NewHistory(settings.HistorySize),
	}
}

// Release the previous frame
func (s *Session) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.clearPrevious()
}

// You must be holding lock
func (s *Session) clearPrevious() {
	if s.previous != nil {
		s.previous.Close()
		s.previous = nil
	}
}

// You must be holding lock
func (s *Session) status() *Status {
	fire, smoke := s.stabilizer.Streaks()
	st := &Status{
		Active:         s.active,
		TotalConfirmed: s.totalConfirmed,
		FireStreak:     fire,
		SmokeStreak:    smoke,
	}
	if s.subject != nil {
		subject := *s.subject
		st.Subject = &subject
	}
	return st
}

// swapPrevious stores cur as the previous frame, and returns the frame it replaced (which may be nil).
// The caller owns the returned frame, and must close it.
// If the session is no longer running, nothing is stored, and ok is false.
func (s *Session) swapPrevious(cur gocv.Mat) (old *gocv.Mat, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.active || s.subject == nil {
		return nil, false
	}
	clone := cur.Clone()
	old = s.previous
	s.previous = &clone
	return old, true
}

// Status returns a snapshot of the activation state. It has no side effects.
func (m *Monitor) Status() *Status {
	s := m.session
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.status()
}

// History returns the recent confirmed events, oldest first
func (m *Monitor) History() []ConfirmedEvent {
	s := m.session
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.history.Events()
}

// SetActivation starts, stops, or resets the session.
// On start, subjectID is looked up, and bound if it exists. If it doesn't, any previously bound
// subject remains. A session with no subject ignores frames, even while active.
func (m *Monitor) SetActivation(action Action, subjectID int64) (*Status, error) {
	var subject *configdb.Subject
	if action == ActionStart && subjectID != 0 && m.subjects != nil {
		subject = m.subjects.ResolveSubject(subjectID)
		if subject == nil {
			m.Log.Warnf("Subject %v not found", subjectID)
		}
	}

	s := m.session
	s.lock.Lock()
	defer s.lock.Unlock()

	switch action {
	case ActionStart:
		s.active = true
		if subject != nil {
			s.subject = subject
		}
	case ActionStop:
		s.active = false
		s.subject = nil
		// The next start compares against a fresh frame, not whatever was in view when we stopped
		s.clearPrevious()
	case ActionReset:
		s.totalConfirmed = 0
	default:
		return nil, ErrUnknownAction
	}

	st := s.status()
	subjectName := "<none>"
	if st.Subject != nil {
		subjectName = st.Subject.Name
	}
	m.Log.Infof("Activation %v: active=%v, subject=%v, total=%v", action, st.Active, subjectName, st.TotalConfirmed)
	return st, nil
}
