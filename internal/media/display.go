package media

import (
	"image"
	"sync"

	"github.com/sirupsen/logrus"
)

// display plays a stream by pumping its frames and keeping the latest one.
type display struct {
	stream Stream
	log    *logrus.Logger

	mu     sync.RWMutex
	latest image.Image
	done   chan struct{}
	once   sync.Once
}

func newDisplay(stream Stream, log *logrus.Logger) *display {
	return &display{
		stream: stream,
		log:    log,
		done:   make(chan struct{}),
	}
}

func (d *display) play() {
	go d.pump()
}

func (d *display) pump() {
	first := true
	for {
		img, err := d.stream.ReadFrame()

		select {
		case <-d.done:
			return
		default:
		}

		if err != nil {
			if first {
				d.log.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Error("Failed to start webcam playback")
			} else {
				d.log.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Warn("Webcam playback interrupted")
			}
			return
		}
		first = false

		d.mu.Lock()
		d.latest = img
		d.mu.Unlock()
	}
}

func (d *display) frame() (image.Image, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.latest == nil {
		return nil, ErrNoFrame
	}
	return d.latest, nil
}

func (d *display) detach() {
	d.once.Do(func() {
		close(d.done)
	})

	d.mu.Lock()
	d.latest = nil
	d.mu.Unlock()
}
