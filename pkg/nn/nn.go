package nn

import (
	"context"
	"encoding/json"
	"os"

	"gocv.io/x/gocv"
)

// Package nn is the interface between the detection pipeline and the fire/smoke model.
// The model itself is a black box. We only see boxes, class IDs and confidences.

// Class IDs emitted by the fire/smoke model
const (
	ClassFire  = 0
	ClassSmoke = 1
)

// Low model-side confidence. Real filtering happens in the candidate extractor.
const DefaultProbabilityThreshold = 0.10

// Square input size of the model
const DefaultImageSize = 640

// Classifier is given an image, and returns zero or more detected objects.
// Implementations must be safe for concurrent use.
type Classifier interface {
	// DetectObjects returns every box the model produced for the image.
	// img is a 3 channel BGR image. The classifier must not retain or close img.
	DetectObjects(ctx context.Context, img gocv.Mat) ([]ObjectDetection, error)

	// Model Config.
	// Callers assume that ModelConfig will remain constant.
	Config() *ModelConfig
}

// ModelConfig is saved in a JSON file along with the weights of the NN model
type ModelConfig struct {
	Architecture string   `json:"architecture"` // eg "yolov8"
	Width        int      `json:"width"`        // eg 640
	Height       int      `json:"height"`       // eg 640
	Classes      []string `json:"classes"`      // eg ["Fire", "Smoke"]
}

// The configuration of the stock fire/smoke model
func FireSmokeModelConfig() *ModelConfig {
	return &ModelConfig{
		Architecture: "yolov8",
		Width:        DefaultImageSize,
		Height:       DefaultImageSize,
		Classes:      []string{"Fire", "Smoke"},
	}
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	return config, nil
}
