package engine

import (
	"context"
	"image"

	"facecam/internal/entity"
)

type Backend string

const (
	BackendAccelerated Backend = "accelerated"
	BackendPortable    Backend = "portable"
)

const (
	TinyFaceDetector      = "tiny_face_detector"
	defaultInputSize      = 416
	defaultScoreThreshold = 0.5
)

// DetectOptions describes one annotated detection request.
type DetectOptions struct {
	Detector        string  `json:"detector"`
	InputSize       int     `json:"input_size"`
	ScoreThreshold  float64 `json:"score_threshold"`
	WithLandmarks   bool    `json:"with_landmarks"`
	WithExpressions bool    `json:"with_expressions"`
	WithAgeGender   bool    `json:"with_age_gender"`
}

// TinyDetectOptions is the speed oriented detector with every annotation requested.
func TinyDetectOptions() DetectOptions {
	return DetectOptions{
		Detector:        TinyFaceDetector,
		InputSize:       defaultInputSize,
		ScoreThreshold:  defaultScoreThreshold,
		WithLandmarks:   true,
		WithExpressions: true,
		WithAgeGender:   true,
	}
}

// Runtime is the external inference engine hosting the pretrained models.
type Runtime interface {
	LoadModel(ctx context.Context, bundle *ModelBundle) error
	SetBackend(ctx context.Context, backend Backend) error
	Ready(ctx context.Context) error
	Detect(ctx context.Context, img image.Image, opts DetectOptions) ([]entity.Detection, error)
}
