package overlay

import (
	"image/color"
	"math"
	"strconv"
	"sync"

	"facecam/internal/entity"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	ttf   *truetype.Font
	faces sync.Map
)

func init() {
	var err error
	ttf, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

func fontFace(size float64) font.Face {
	if f, ok := faces.Load(size); ok {
		return f.(font.Face)
	}
	f, _ := faces.LoadOrStore(size, truetype.NewFace(ttf, &truetype.Options{Size: size}))
	return f.(font.Face)
}

type Anchor int

const (
	TopLeft Anchor = iota
	TopRight
	BottomLeft
	BottomRight
)

type TextFieldOptions struct {
	Anchor     Anchor
	Background color.Color
	FontColor  color.Color
	FontSize   float64
	Padding    float64
}

func DefaultTextFieldOptions() TextFieldOptions {
	return TextFieldOptions{
		Anchor:     TopLeft,
		Background: color.NRGBA{A: 128},
		FontColor:  color.White,
		FontSize:   14,
		Padding:    4,
	}
}

// textField is a block of lines on a filled background.
type textField struct {
	lines  []string
	anchor entity.Point
	opts   TextFieldOptions
}

func (t textField) size(dc *gg.Context) (float64, float64) {
	var widest float64
	for _, line := range t.lines {
		w, _ := dc.MeasureString(line)
		widest = math.Max(widest, w)
	}
	return widest + 2*t.opts.Padding, float64(len(t.lines))*t.opts.FontSize + 2*t.opts.Padding
}

// upperLeft places the field relative to its anchor and keeps it inside the surface.
func (t textField) upperLeft(w, h, surfaceW, surfaceH float64) (float64, float64) {
	x, y := t.anchor.X, t.anchor.Y
	if t.opts.Anchor == TopRight || t.opts.Anchor == BottomRight {
		x -= w
	}
	if t.opts.Anchor == BottomLeft || t.opts.Anchor == BottomRight {
		y -= h
	}

	x = math.Max(math.Min(x, surfaceW-w), 0)
	y = math.Max(math.Min(y, surfaceH-h), 0)
	return x, y
}

func (t textField) draw(dc *gg.Context) {
	if len(t.lines) == 0 {
		return
	}

	dc.SetFontFace(fontFace(t.opts.FontSize))
	w, h := t.size(dc)
	x, y := t.upperLeft(w, h, float64(dc.Width()), float64(dc.Height()))

	dc.SetColor(t.opts.Background)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	dc.SetColor(t.opts.FontColor)
	for i, line := range t.lines {
		dc.DrawString(line, x+t.opts.Padding, y+t.opts.Padding+t.opts.FontSize*float64(i+1))
	}
}

// Round rounds half away from zero to prec decimal places.
func Round(v float64, prec int) float64 {
	f := math.Pow(10, float64(prec))
	return math.Round(v*f) / f
}

// FormatNumber prints a rounded value without trailing zeros.
func FormatNumber(v float64, prec int) string {
	return strconv.FormatFloat(Round(v, prec), 'f', -1, 64)
}
