package overlay

import (
	"fmt"
	"image/color"
	"strings"

	"facecam/internal/entity"
	"facecam/internal/surface"
)

const (
	LoadingText = "Loading..."
	ErrorText   = "Error processing the image"
)

type Options struct {
	BoxColor         color.Color
	LineWidth        float64
	MinConfidence    float64
	PlaceholderSize  float64
	LoadingShade     color.Color
	ErrorShade       color.Color
	ErrorColor       color.Color
	Landmarks        LandmarkOptions
	ExpressionFields TextFieldOptions
}

func DefaultOptions() Options {
	return Options{
		BoxColor:         color.RGBA{B: 255, A: 255},
		LineWidth:        2,
		MinConfidence:    0.5,
		PlaceholderSize:  20,
		LoadingShade:     color.NRGBA{A: 128},
		ErrorShade:       color.NRGBA{A: 179},
		ErrorColor:       color.RGBA{R: 255, A: 255},
		Landmarks:        DefaultLandmarkOptions(),
		ExpressionFields: DefaultTextFieldOptions(),
	}
}

// Renderer paints detection results and placeholders onto a surface.
type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

func NewDefault() *Renderer {
	return New(DefaultOptions())
}

// Label is the text attached to a detection's box, e.g. "30 years male (0.87)".
func Label(d entity.Detection) string {
	return strings.Join([]string{
		fmt.Sprintf("%s years", FormatNumber(d.Age, 0)),
		fmt.Sprintf("%s (%s)", d.Gender, FormatNumber(d.GenderProbability, 2)),
	}, " ")
}

// ExpressionLines lists the expressions above min, most probable first.
func ExpressionLines(d entity.Detection, min float64) []string {
	var lines []string
	for _, expr := range d.Expressions.Above(min) {
		lines = append(lines, fmt.Sprintf("%s (%s)", expr.Name, FormatNumber(expr.Probability, 2)))
	}
	return lines
}

// Render draws, per detection, the labelled box, the landmarks and then the
// expressions of every detection in the list. Expression fields therefore
// always sit above every box drawn so far.
func (r *Renderer) Render(s *surface.Surface, detections []entity.Detection) {
	for _, d := range detections {
		r.drawBox(s, d)
		drawLandmarks(s.Context(), d.Landmarks, r.opts.Landmarks)
		r.drawExpressions(s, detections)
	}
}

func (r *Renderer) drawBox(s *surface.Surface, d entity.Detection) {
	dc := s.Context()
	b := d.Box

	dc.SetColor(r.opts.BoxColor)
	dc.SetLineWidth(r.opts.LineWidth)
	dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
	dc.Stroke()

	label := DefaultTextFieldOptions()
	label.Anchor = BottomLeft
	label.Background = r.opts.BoxColor

	textField{
		lines:  []string{Label(d)},
		anchor: entity.Point{X: b.X - r.opts.LineWidth/2, Y: b.Y},
		opts:   label,
	}.draw(dc)
}

func (r *Renderer) drawExpressions(s *surface.Surface, detections []entity.Detection) {
	for _, d := range detections {
		textField{
			lines:  ExpressionLines(d, r.opts.MinConfidence),
			anchor: d.Box.BottomLeft(),
			opts:   r.opts.ExpressionFields,
		}.draw(s.Context())
	}
}

// Loading shades the surface and writes the loading label in the middle.
func (r *Renderer) Loading(s *surface.Surface) {
	r.placeholder(s, r.opts.LoadingShade, color.White, LoadingText)
}

// Error replaces whatever is on the surface with the error placeholder.
func (r *Renderer) Error(s *surface.Surface) {
	r.placeholder(s, r.opts.ErrorShade, r.opts.ErrorColor, ErrorText)
}

func (r *Renderer) placeholder(s *surface.Surface, shade, textColor color.Color, text string) {
	s.Fill(shade)

	dc := s.Context()
	dc.SetFontFace(fontFace(r.opts.PlaceholderSize))
	dc.SetColor(textColor)
	dc.DrawStringAnchored(text, float64(s.Width())/2, float64(s.Height())/2, 0.5, 0.5)
}
