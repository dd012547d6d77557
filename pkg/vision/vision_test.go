package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solidImage(width, height int, v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), height, width, gocv.MatTypeCV8UC3)
}

func TestMotionGate(t *testing.T) {
	gate := NewMotionGate(DefaultMotionNoiseFloor, DefaultMotionMinChangedPixels)

	a := solidImage(320, 240, 80)
	defer a.Close()
	b := solidImage(320, 240, 80)
	defer b.Close()

	// First frame
	motion, n := gate.HasMotion(nil, a)
	require.True(t, motion)
	require.Equal(t, -1, n)

	// Identical frames
	motion, n = gate.HasMotion(&a, b)
	require.False(t, motion)
	require.Equal(t, 0, n)

	// Small brightness drift below the noise floor
	c := solidImage(320, 240, 80+DefaultMotionNoiseFloor)
	defer c.Close()
	motion, n = gate.HasMotion(&a, c)
	require.False(t, motion)
	require.Equal(t, 0, n)

	// A 10x10 change is below the minimum pixel count
	d := a.Clone()
	defer d.Close()
	gocv.Rectangle(&d, image.Rect(0, 0, 10, 10), color.RGBA{255, 255, 255, 255}, -1)
	motion, n = gate.HasMotion(&a, d)
	require.False(t, motion)
	require.Equal(t, 100, n)

	// A 50x50 change is well above it
	e := a.Clone()
	defer e.Close()
	gocv.Rectangle(&e, image.Rect(100, 100, 150, 150), color.RGBA{255, 255, 255, 255}, -1)
	motion, n = gate.HasMotion(&a, e)
	require.True(t, motion)
	require.Equal(t, 2500, n)

	// Size change
	f := solidImage(640, 480, 80)
	defer f.Close()
	motion, n = gate.HasMotion(&a, f)
	require.True(t, motion)
	require.Equal(t, -1, n)
}

func TestDualView(t *testing.T) {
	raw := solidImage(64, 48, 120)
	defer raw.Close()
	gocv.Rectangle(&raw, image.Rect(10, 10, 30, 30), color.RGBA{0, 0, 255, 255}, -1)
	before := raw.Clone()
	defer before.Close()

	p := NewPreprocessor()
	fire, smoke := p.DualView(raw)
	defer fire.Close()
	defer smoke.Close()

	require.Equal(t, raw.Rows(), fire.Rows())
	require.Equal(t, raw.Cols(), fire.Cols())
	require.Equal(t, raw.Rows(), smoke.Rows())
	require.Equal(t, raw.Cols(), smoke.Cols())
	require.Equal(t, 3, smoke.Channels())

	// The fire view is an exact copy, and raw is untouched
	gate := NewMotionGate(0, 0)
	require.Equal(t, 0, gate.CountChangedPixels(raw, fire))
	require.Equal(t, 0, gate.CountChangedPixels(raw, before))

	// The smoke view is gray, so all three channels are equal
	px := smoke.GetVecbAt(20, 20)
	require.Equal(t, px[0], px[1])
	require.Equal(t, px[1], px[2])
}

func TestDecodeEncode(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, ErrEmptyImage)

	_, err = Decode([]byte("this is not a jpeg"))
	require.Error(t, err)

	raw := solidImage(64, 48, 50)
	defer raw.Close()
	jpg, err := RenderSnapshot(raw, nn.Fire, 0.9, nn.Rect{X: 5, Y: 5, Width: 20, Height: 20}, 90)
	require.NoError(t, err)
	require.Greater(t, len(jpg), 100)

	img, err := Decode(jpg)
	require.NoError(t, err)
	defer img.Close()
	require.Equal(t, 64, img.Cols())
	require.Equal(t, 48, img.Rows())
	require.Equal(t, 3, img.Channels())
}
