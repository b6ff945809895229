package overlay

import (
	"image/color"

	"facecam/internal/entity"
	"github.com/fogleman/gg"
)

type LandmarkOptions struct {
	DrawLines  bool
	DrawPoints bool
	LineWidth  float64
	LineColor  color.Color
	PointSize  float64
	PointColor color.Color
}

func DefaultLandmarkOptions() LandmarkOptions {
	return LandmarkOptions{
		DrawLines:  true,
		DrawPoints: true,
		LineWidth:  1,
		LineColor:  color.RGBA{G: 255, B: 255, A: 255},
		PointSize:  2,
		PointColor: color.RGBA{R: 255, B: 255, A: 255},
	}
}

type contour struct {
	from, to int
	closed   bool
}

// contours68 indexes the regions of the 68 point landmark layout.
var contours68 = []contour{
	{0, 17, false},  // jaw
	{17, 22, false}, // left brow
	{22, 27, false}, // right brow
	{27, 36, false}, // nose
	{36, 42, true},  // left eye
	{42, 48, true},  // right eye
	{48, 68, true},  // mouth
}

func drawLandmarks(dc *gg.Context, points []entity.Point, opts LandmarkOptions) {
	if len(points) == 0 {
		return
	}

	if opts.DrawLines && len(points) == 68 {
		dc.SetColor(opts.LineColor)
		dc.SetLineWidth(opts.LineWidth)
		for _, c := range contours68 {
			drawContour(dc, points[c.from:c.to], c.closed)
		}
	}

	if opts.DrawPoints {
		dc.SetColor(opts.PointColor)
		for _, p := range points {
			dc.DrawCircle(p.X, p.Y, opts.PointSize/2)
			dc.Fill()
		}
	}
}

func drawContour(dc *gg.Context, points []entity.Point, closed bool) {
	if len(points) < 2 {
		return
	}

	dc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		dc.LineTo(p.X, p.Y)
	}
	if closed {
		dc.ClosePath()
	}
	dc.Stroke()
}
