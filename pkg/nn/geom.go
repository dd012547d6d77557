package nn

import (
	"image"

	"github.com/chewxy/math32"
)

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RectFromCorners builds a Rect from the (x1,y1,x2,y2) corner form that YOLO emits.
// Coordinates are rounded to the nearest pixel, and inverted corners produce an empty rect.
func RectFromCorners(x1, y1, x2, y2 float32) Rect {
	ix1 := int(math32.Round(x1))
	iy1 := int(math32.Round(y1))
	ix2 := int(math32.Round(x2))
	iy2 := int(math32.Round(y2))
	return Rect{
		X:      ix1,
		Y:      iy1,
		Width:  max(0, ix2-ix1),
		Height: max(0, iy2-iy1),
	}
}

// CornerArea is the area of the (x1,y1,x2,y2) box, without rounding to whole pixels.
// Inverted corners have zero area.
func CornerArea(x1, y1, x2, y2 float32) float32 {
	return max(0, x2-x1) * max(0, y2-y1)
}

func (r Rect) Area() int {
	return r.Width * r.Height
}

func (r Rect) X2() int {
	return r.X + r.Width
}

func (r Rect) Y2() int {
	return r.Y + r.Height
}

func (r Rect) Intersection(b Rect) Rect {
	x1 := max(r.X, b.X)
	y1 := max(r.Y, b.Y)
	x2 := min(r.X2(), b.X2())
	y2 := min(r.Y2(), b.Y2())
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

// Clip the rect so that it lies inside an image of the given size
func (r Rect) Clip(width, height int) Rect {
	return r.Intersection(Rect{Width: width, Height: height})
}

func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X2(), r.Y2())
}
