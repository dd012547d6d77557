package monitor

import "github.com/cyclopcam/firewatch/pkg/nn"

// Defaults for Stabilizer
const (
	DefaultFireFrames  = 4
	DefaultSmokeFrames = 6
)

// Stabilizer turns noisy per-frame verdicts into confirmed events.
// Each class has a streak counter. A win for one class increments its streak and zeroes the other.
// A frame with no winner decays both streaks by one.
// When a streak reaches its frame count, the class is confirmed and the streak restarts from zero.
// At most one streak is ever positive.
type Stabilizer struct {
	FireFrames  int
	SmokeFrames int

	fireStreak  int
	smokeStreak int
}

func NewStabilizer(fireFrames, smokeFrames int) *Stabilizer {
	return &Stabilizer{
		FireFrames:  fireFrames,
		SmokeFrames: smokeFrames,
	}
}

// Observe feeds one frame's winning class into the state machine.
// Returns the confirmed class, or nn.None.
func (s *Stabilizer) Observe(winner nn.Class) nn.Class {
	switch winner {
	case nn.Fire:
		s.fireStreak++
		s.smokeStreak = 0
		if s.fireStreak >= s.FireFrames {
			s.fireStreak = 0
			return nn.Fire
		}
	case nn.Smoke:
		s.smokeStreak++
		s.fireStreak = 0
		if s.smokeStreak >= s.SmokeFrames {
			s.smokeStreak = 0
			return nn.Smoke
		}
	default:
		s.fireStreak = max(0, s.fireStreak-1)
		s.smokeStreak = max(0, s.smokeStreak-1)
	}
	return nn.None
}

// Streaks returns (fireStreak, smokeStreak)
func (s *Stabilizer) Streaks() (int, int) {
	return s.fireStreak, s.smokeStreak
}
