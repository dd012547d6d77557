package monitor

import "github.com/cyclopcam/firewatch/pkg/nn"

// Verdict is the single winning class of a frame
type Verdict struct {
	Class      nn.Class `json:"class"`
	Confidence float32  `json:"confidence"`
	Box        nn.Rect  `json:"box"`
}

// Arbitrate picks the winner of a frame.
// Fire always beats smoke, no matter how confident the smoke is.
// Within a class, the most confident candidate wins.
func Arbitrate(fire, smoke []Candidate) Verdict {
	if best := mostConfident(fire); best != nil {
		return Verdict{Class: nn.Fire, Confidence: best.Confidence, Box: best.Box}
	}
	if best := mostConfident(smoke); best != nil {
		return Verdict{Class: nn.Smoke, Confidence: best.Confidence, Box: best.Box}
	}
	return Verdict{Class: nn.None}
}

func mostConfident(cands []Candidate) *Candidate {
	var best *Candidate
	for i := range cands {
		if best == nil || cands[i].Confidence > best.Confidence {
			best = &cands[i]
		}
	}
	return best
}
