package detectionService

import (
	"context"
	"image"
	"sync"

	"facecam/internal/api/detection"
	"facecam/internal/engine"
	"facecam/internal/entity"
	"facecam/internal/overlay"
	"facecam/internal/surface"
	"github.com/sirupsen/logrus"
)

type IDetectionService interface {
	StartWebcam(ctx context.Context) error
	StopWebcam(ctx context.Context)
	WebcamFrame(ctx context.Context) ([]byte, error)
	CaptureWebcam(ctx context.Context) (*detection.CycleResult, error)
	DetectImage(ctx context.Context, img image.Image) (*detection.CycleResult, error)
	Status() detection.StatusResponse
	SurfacePNG() ([]byte, error)
	Subscribe() (<-chan []byte, func())
	Shutdown()
}

// Detector is the part of *engine.Engine the controller needs.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]entity.Detection, error)
	Readiness() (engine.Readiness, bool)
}

// Webcam is the part of *media.Adapter the controller needs.
type Webcam interface {
	Start(ctx context.Context) error
	Stop()
	Active() bool
	Frame() (image.Image, error)
}

type detectionService struct {
	log      *logrus.Logger
	detector Detector
	webcam   Webcam
	renderer *overlay.Renderer
	hub      *hub

	// mu guards the surface and the cycle bookkeeping below
	mu      sync.Mutex
	surface *surface.Surface
	cycle   uint64
	state   detection.State
	last    *detection.CycleResult
}

func NewDetectionService(
	log *logrus.Logger,
	detector Detector,
	webcam Webcam,
	renderer *overlay.Renderer,
	s *surface.Surface,
) IDetectionService {
	return &detectionService{
		log:      log,
		detector: detector,
		webcam:   webcam,
		renderer: renderer,
		hub:      newHub(),
		surface:  s,
		state:    detection.StateIdle,
	}
}
