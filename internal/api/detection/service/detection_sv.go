package detectionService

import (
	"bytes"
	"context"
	"image"

	"facecam/internal/api/detection"
	"facecam/internal/capture"
	"facecam/internal/entity"
	"facecam/internal/surface"
	contextPkg "facecam/pkg/context"
	"facecam/pkg/log"
	"github.com/disintegration/imaging"
)

func (s *detectionService) StartWebcam(ctx context.Context) error {
	if err := s.webcam.Start(ctx); err != nil {
		return err
	}

	s.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
	}).Debug("Webcam start requested")

	return nil
}

func (s *detectionService) StopWebcam(ctx context.Context) {
	s.webcam.Stop()

	s.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
	}).Debug("Webcam stop requested")
}

// WebcamFrame encodes the live frame without touching the surface.
func (s *detectionService) WebcamFrame(ctx context.Context) ([]byte, error) {
	frame, err := s.webcam.Frame()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.PNG); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *detectionService) CaptureWebcam(ctx context.Context) (*detection.CycleResult, error) {
	frame, err := s.webcam.Frame()
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Warn("No webcam frame to capture")
		return nil, err
	}

	id, img := s.begin(func(sf *surface.Surface) {
		capture.Live(sf, frame, s.renderer)
	})

	return s.detect(ctx, id, detection.SourceWebcam, img)
}

func (s *detectionService) DetectImage(ctx context.Context, img image.Image) (*detection.CycleResult, error) {
	id, snapshot := s.begin(func(sf *surface.Surface) {
		capture.Static(sf, img)
	})

	return s.detect(ctx, id, detection.SourceImage, snapshot)
}

// begin opens a new cycle and runs the capture step under the surface lock.
// The returned snapshot is what detection runs on.
func (s *detectionService) begin(draw func(*surface.Surface)) (uint64, image.Image) {
	s.mu.Lock()
	s.cycle++
	id := s.cycle
	s.state = detection.StateCapturing

	draw(s.surface)
	snapshot := s.surface.Snapshot()

	s.state = detection.StateDetecting
	frame := s.encodeLocked()
	s.mu.Unlock()

	s.publish(frame)
	return id, snapshot
}

func (s *detectionService) detect(ctx context.Context, id uint64, source detection.Source, img image.Image) (*detection.CycleResult, error) {
	ctx = contextPkg.WithCycleID(ctx, id)
	fields := log.Fields{
		log.RequestIDKey: contextPkg.GetRequestID(ctx),
		log.CycleIDKey:   id,
		"source":         source,
	}

	s.log.WithFields(fields).Debug("Running face detection")
	detections, err := s.detector.Detect(ctx, img)

	result := &detection.CycleResult{
		ID:         id,
		Source:     source,
		Detections: []entity.Detection{},
	}

	s.mu.Lock()
	if id != s.cycle {
		s.mu.Unlock()

		result.State = detection.StateDiscarded
		if err != nil {
			result.Error = err.Error()
		}
		s.log.WithFields(fields).Info("Discarding result of a superseded cycle")
		return result, nil
	}

	if err != nil {
		s.renderer.Error(s.surface)
		result.State = detection.StateErrored
		result.Error = err.Error()
	} else {
		s.renderer.Render(s.surface, detections)
		result.State = detection.StateRendered
		result.Rendered = true
		if detections != nil {
			result.Detections = detections
		}
	}

	result.Surface = detection.SurfaceSize{Width: s.surface.Width(), Height: s.surface.Height()}
	s.state = result.State
	s.last = result
	frame := s.encodeLocked()
	s.mu.Unlock()

	s.publish(frame)

	if err != nil {
		fields["error"] = err.Error()
		s.log.WithFields(fields).Error("Face detection failed")
		return result, err
	}

	fields["faces"] = len(result.Detections)
	s.log.WithFields(fields).Info("Face detection rendered")
	return result, nil
}

func (s *detectionService) Status() detection.StatusResponse {
	readiness, ready := s.detector.Readiness()

	s.mu.Lock()
	defer s.mu.Unlock()

	status := detection.StatusResponse{
		Ready:   ready,
		Webcam:  s.webcam.Active(),
		State:   s.state,
		Cycle:   s.cycle,
		Surface: detection.SurfaceSize{Width: s.surface.Width(), Height: s.surface.Height()},
		Last:    s.last,
	}
	if ready {
		status.Backend = readiness.Backend
		status.Models = readiness.Models
	}

	return status
}

func (s *detectionService) SurfacePNG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.EncodePNG()
}

func (s *detectionService) Subscribe() (<-chan []byte, func()) {
	return s.hub.subscribe()
}

func (s *detectionService) Shutdown() {
	s.webcam.Stop()
	s.hub.closeAll()
}

func (s *detectionService) encodeLocked() []byte {
	if s.hub.len() == 0 {
		return nil
	}

	data, err := s.surface.EncodePNG()
	if err != nil {
		s.log.Warnf("Failed to encode surface for subscribers: %v", err)
		return nil
	}
	return data
}

func (s *detectionService) publish(frame []byte) {
	if frame != nil {
		s.hub.publish(frame)
	}
}
