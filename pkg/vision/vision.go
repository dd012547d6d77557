// Package vision holds the OpenCV side of frame handling: decoding, the motion gate,
// the fire/smoke dual views, and snapshot rendering.
//
// Every gocv.Mat returned by this package is owned by the caller, who must Close() it.
package vision

import (
	"errors"
	"fmt"

	"github.com/cyclopcam/firewatch/pkg/gen"
	"gocv.io/x/gocv"
)

var ErrEmptyImage = errors.New("Image is empty")

// Decode a compressed image (JPEG, PNG, etc) into a 3 channel BGR image
func Decode(buf []byte) (gocv.Mat, error) {
	if len(buf) == 0 {
		return gocv.NewMat(), ErrEmptyImage
	}
	img, err := gocv.IMDecode(buf, gocv.IMReadColor)
	if err != nil {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("Failed to decode image: %w", err)
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), ErrEmptyImage
	}
	return img, nil
}

// EncodeJPEG compresses img into a JPEG
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	quality = gen.Clamp(quality, 1, 100)
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("Failed to encode JPEG: %w", err)
	}
	defer buf.Close()
	// GetBytes references native memory, so copy it out before the buffer is released
	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Convert a BGR (or already single channel) image to grayscale
func toGray(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
	} else {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}
	return gray
}
