package detection

import (
	"facecam/internal/engine"
	"facecam/internal/entity"
)

type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StateDetecting State = "detecting"
	StateRendered  State = "rendered"
	StateErrored   State = "errored"
	// StateDiscarded marks a cycle overtaken by a newer one before it could draw.
	StateDiscarded State = "discarded"
)

type Source string

const (
	SourceWebcam Source = "webcam"
	SourceImage  Source = "image"
)

type SurfaceSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type CycleResult struct {
	ID         uint64             `json:"id"`
	Source     Source             `json:"source"`
	State      State              `json:"state"`
	Rendered   bool               `json:"rendered"`
	Detections []entity.Detection `json:"detections"`
	Surface    SurfaceSize        `json:"surface"`
	Error      string             `json:"error,omitempty"`
}

type StatusResponse struct {
	Ready   bool           `json:"ready"`
	Backend engine.Backend `json:"backend,omitempty"`
	Models  []string       `json:"models,omitempty"`
	Webcam  bool           `json:"webcam"`
	State   State          `json:"state"`
	Cycle   uint64         `json:"cycle"`
	Surface SurfaceSize    `json:"surface"`
	Last    *CycleResult   `json:"last,omitempty"`
}

type WebcamResponse struct {
	Active bool `json:"active"`
}

// ImageRequest carries an image as a data URL or bare base64.
type ImageRequest struct {
	Image string `json:"image" validate:"required"`
}
