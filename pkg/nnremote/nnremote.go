// Package nnremote runs fire/smoke inference on a model server over HTTP.
//
// The server accepts a JPEG body on POST /detect, with query parameters "conf" and "imgsz",
// and responds with a JSON list of boxes in (x1,y1,x2,y2) pixel coordinates of the image it was sent.
package nnremote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"github.com/cyclopcam/firewatch/pkg/vision"
	"github.com/cyclopcam/www"
	"gocv.io/x/gocv"
)

// SYNC-DETECT-RESPONSE
type detectResponse struct {
	Detections []detectBox `json:"detections"`
}

type detectBox struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	X1         float32 `json:"x1"`
	Y1         float32 `json:"y1"`
	X2         float32 `json:"x2"`
	Y2         float32 `json:"y2"`
}

// Client is an nn.Classifier that delegates to a model server
type Client struct {
	baseUrl     string
	config      *nn.ModelConfig
	threshold   float32
	jpegQuality int
}

func NewClient(baseUrl string, config *nn.ModelConfig) *Client {
	if config == nil {
		config = nn.FireSmokeModelConfig()
	}
	return &Client{
		baseUrl:     strings.TrimSuffix(baseUrl, "/"),
		config:      config,
		threshold:   nn.DefaultProbabilityThreshold,
		jpegQuality: 90,
	}
}

func (c *Client) Config() *nn.ModelConfig {
	return c.config
}

func (c *Client) DetectObjects(ctx context.Context, img gocv.Mat) ([]nn.ObjectDetection, error) {
	jpg, err := vision.EncodeJPEG(img, c.jpegQuality)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("conf", strconv.FormatFloat(float64(c.threshold), 'f', 2, 32))
	query.Set("imgsz", strconv.Itoa(c.config.Width))
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseUrl+"/detect?"+query.Encode(), bytes.NewReader(jpg))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")
	resp := detectResponse{}
	if err := www.FetchJSON(req, &resp); err != nil {
		return nil, fmt.Errorf("Model server request failed: %w", err)
	}
	return toDetections(resp, img.Cols(), img.Rows()), nil
}

func toDetections(resp detectResponse, width, height int) []nn.ObjectDetection {
	dets := make([]nn.ObjectDetection, 0, len(resp.Detections))
	for _, b := range resp.Detections {
		dets = append(dets, nn.ObjectDetection{
			Class:      b.Class,
			Confidence: b.Confidence,
			Box:        nn.RectFromCorners(b.X1, b.Y1, b.X2, b.Y2).Clip(width, height),
			Area:       nn.CornerArea(b.X1, b.Y1, b.X2, b.Y2),
		})
	}
	return dets
}
