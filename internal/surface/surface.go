package surface

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/fogleman/gg"
)

// Surface is the shared drawing buffer captures and overlays are painted on.
// It is not safe for concurrent use.
type Surface struct {
	img *image.RGBA
	dc  *gg.Context
}

func New(width, height int) *Surface {
	s := &Surface{}
	s.Resize(width, height)
	return s
}

// Resize replaces the buffer with a transparent one of the given size.
func (s *Surface) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	s.dc = gg.NewContextForRGBA(s.img)
}

func (s *Surface) Width() int {
	return s.img.Bounds().Dx()
}

func (s *Surface) Height() int {
	return s.img.Bounds().Dy()
}

func (s *Surface) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Context returns the drawing context bound to the current buffer. It is
// invalidated by Resize.
func (s *Surface) Context() *gg.Context {
	return s.dc
}

func (s *Surface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// Fill composites c over the whole surface.
func (s *Surface) Fill(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Over)
}

// DrawImage paints img at the origin at its native size.
func (s *Surface) DrawImage(img image.Image) {
	b := img.Bounds()
	draw.Draw(s.img, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Over)
}

func (s *Surface) At(x, y int) color.RGBA {
	return s.img.RGBAAt(x, y)
}

// Snapshot returns a copy of the current pixels.
func (s *Surface) Snapshot() *image.RGBA {
	cp := image.NewRGBA(s.img.Bounds())
	copy(cp.Pix, s.img.Pix)
	return cp
}

func (s *Surface) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
