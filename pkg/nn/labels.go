package nn

import "fmt"

// Class is the label of a detection that survived filtering
type Class string

const (
	Fire  Class = "Fire"
	Smoke Class = "Smoke"
	None  Class = "None"
)

// ClassFromID maps a model class ID to a target class.
// Anything other than fire or smoke is background, and returns None.
func ClassFromID(id int) Class {
	switch id {
	case ClassFire:
		return Fire
	case ClassSmoke:
		return Smoke
	}
	return None
}

func (c Class) String() string {
	return string(c)
}

// ObjectDetection is an object that a neural network has found in an image
type ObjectDetection struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        Rect    `json:"box"`
	Area       float32 `json:"area,omitempty"` // Area of the box before it was rounded to whole pixels
}

// BoxArea is the unrounded area if the classifier supplied one, otherwise the area of Box
func (d ObjectDetection) BoxArea() float32 {
	if d.Area > 0 {
		return d.Area
	}
	return float32(d.Box.Area())
}

func (d ObjectDetection) String() string {
	return fmt.Sprintf("class %v, conf %.2f, box %v,%v %vx%v", d.Class, d.Confidence, d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height)
}
