package monitor

import (
	"github.com/cyclopcam/firewatch/pkg/nn"
)

// Candidate is a model detection that survived the per-class filters
type Candidate struct {
	Class      nn.Class `json:"class"`
	Confidence float32  `json:"confidence"`
	Area       float32  `json:"area"`
	Box        nn.Rect  `json:"box"`
}

// ClassThreshold is the per-class filter applied to raw model output
type ClassThreshold struct {
	Confidence float32 `json:"confidence"` // Minimum confidence, inclusive
	MinArea    int     `json:"minArea"`    // Minimum box area in pixels, inclusive
}

// ExtractCandidates keeps detections of the given class that meet the threshold.
// Detections of any other class (including background) are ignored.
// The result is never nil.
func ExtractCandidates(dets []nn.ObjectDetection, class nn.Class, th ClassThreshold) []Candidate {
	out := []Candidate{}
	if class == nn.None {
		return out
	}
	for _, d := range dets {
		if nn.ClassFromID(d.Class) != class {
			continue
		}
		area := d.BoxArea()
		if d.Confidence >= th.Confidence && area >= float32(th.MinArea) {
			out = append(out, Candidate{
				Class:      class,
				Confidence: d.Confidence,
				Area:       area,
				Box:        d.Box,
			})
		}
	}
	return out
}
