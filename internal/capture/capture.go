package capture

import (
	"image"

	"facecam/internal/surface"
)

// Placeholder paints the transient state shown while a frame is analysed.
type Placeholder interface {
	Loading(s *surface.Surface)
}

// Live snapshots a video frame onto the surface at the frame's resolution.
// The loading placeholder is painted first and ends up under the frame.
func Live(s *surface.Surface, frame image.Image, p Placeholder) {
	b := frame.Bounds()
	s.Resize(b.Dx(), b.Dy())

	p.Loading(s)
	s.DrawImage(frame)
}

// Static puts a decoded still image onto the surface at its own resolution.
func Static(s *surface.Surface, img image.Image) {
	b := img.Bounds()
	s.Resize(b.Dx(), b.Dy())

	s.Clear()
	s.DrawImage(img)
}
