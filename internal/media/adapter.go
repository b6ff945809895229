package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device found")
	ErrNoActiveStream   = errors.New("webcam is not started")
	ErrNoFrame          = errors.New("webcam has not produced a frame yet")
)

// Track is one constituent of a stream; closing it releases the hardware.
type Track interface {
	Close() error
}

// Stream is an open camera handle.
type Stream interface {
	Tracks() []Track
	// ReadFrame blocks until the next video frame. The returned image is
	// owned by the caller.
	ReadFrame() (image.Image, error)
}

// Provider opens video-only capture streams.
type Provider interface {
	Open(ctx context.Context) (Stream, error)
}

// Adapter holds at most one stream and keeps its latest frame for capture.
type Adapter struct {
	provider Provider
	log      *logrus.Logger

	startMu sync.Mutex
	mu      sync.Mutex
	stream  Stream
	display *display
}

func NewAdapter(provider Provider, log *logrus.Logger) *Adapter {
	return &Adapter{
		provider: provider,
		log:      log,
	}
}

// Start opens a new stream, stopping any stream already held.
func (a *Adapter) Start(ctx context.Context) error {
	a.startMu.Lock()
	defer a.startMu.Unlock()

	a.Stop()

	stream, err := a.provider.Open(ctx)
	if err != nil {
		a.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to access webcam")

		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNoDevice) {
			return err
		}
		return fmt.Errorf("open webcam: %w", err)
	}

	d := newDisplay(stream, a.log)

	a.mu.Lock()
	a.stream = stream
	a.display = d
	a.mu.Unlock()

	d.play()

	a.log.WithFields(logrus.Fields{
		"tracks": len(stream.Tracks()),
	}).Info("Webcam started")

	return nil
}

// Stop releases every track of the held stream. It is a no-op when nothing is held.
func (a *Adapter) Stop() {
	a.mu.Lock()
	stream, d := a.stream, a.display
	a.stream = nil
	a.display = nil
	a.mu.Unlock()

	if stream == nil {
		return
	}

	release(stream, d, a.log)
	a.log.Info("Webcam stopped")
}

func release(stream Stream, d *display, log *logrus.Logger) {
	for _, track := range stream.Tracks() {
		if err := track.Close(); err != nil {
			log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Warn("Failed to stop webcam track")
		}
	}

	if d != nil {
		d.detach()
	}
}

func (a *Adapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream != nil
}

// Frame returns the current live frame at its native resolution.
func (a *Adapter) Frame() (image.Image, error) {
	a.mu.Lock()
	d := a.display
	a.mu.Unlock()

	if d == nil {
		return nil, ErrNoActiveStream
	}

	return d.frame()
}
