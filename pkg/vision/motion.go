package vision

import (
	"gocv.io/x/gocv"
)

// Defaults for MotionGate
const (
	DefaultMotionNoiseFloor       = 25
	DefaultMotionMinChangedPixels = 500
)

// MotionGate decides whether anything in the scene changed between two consecutive frames.
// A pixel has changed if its grayscale intensity moved by more than NoiseFloor.
// There is motion if more than MinChangedPixels pixels changed.
type MotionGate struct {
	NoiseFloor       uint8
	MinChangedPixels int
}

func NewMotionGate(noiseFloor uint8, minChangedPixels int) *MotionGate {
	return &MotionGate{
		NoiseFloor:       noiseFloor,
		MinChangedPixels: minChangedPixels,
	}
}

// HasMotion compares cur against prev.
// With no previous frame, or frames of different sizes, we can't tell, so we report motion.
// The returned count is the number of changed pixels, or -1 if no comparison was possible.
func (g *MotionGate) HasMotion(prev *gocv.Mat, cur gocv.Mat) (bool, int) {
	if prev == nil || prev.Empty() {
		return true, -1
	}
	if prev.Rows() != cur.Rows() || prev.Cols() != cur.Cols() {
		return true, -1
	}
	changed := g.CountChangedPixels(*prev, cur)
	return changed > g.MinChangedPixels, changed
}

// CountChangedPixels returns the number of pixels whose grayscale difference exceeds NoiseFloor.
// a and b must have the same dimensions.
func (g *MotionGate) CountChangedPixels(a, b gocv.Mat) int {
	grayA := toGray(a)
	defer grayA.Close()
	grayB := toGray(b)
	defer grayB.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(grayA, grayB, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, float32(g.NoiseFloor), 255, gocv.ThresholdBinary)

	return gocv.CountNonZero(mask)
}
