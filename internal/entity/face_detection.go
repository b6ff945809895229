package entity

import (
	"math"
	"sort"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

const (
	ExpressionNeutral   = "neutral"
	ExpressionHappy     = "happy"
	ExpressionSad       = "sad"
	ExpressionAngry     = "angry"
	ExpressionFearful   = "fearful"
	ExpressionDisgusted = "disgusted"
	ExpressionSurprised = "surprised"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is a face bounding box in pixel units of the analysed image.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Box) Right() float64 {
	return b.X + b.Width
}

func (b Box) Bottom() float64 {
	return b.Y + b.Height
}

func (b Box) BottomLeft() Point {
	return Point{X: b.X, Y: b.Bottom()}
}

func (b Box) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// IoU returns the intersection over union of two boxes.
func (b Box) IoU(o Box) float64 {
	w := math.Min(b.Right(), o.Right()) - math.Max(b.X, o.X)
	h := math.Min(b.Bottom(), o.Bottom()) - math.Max(b.Y, o.Y)
	if w <= 0 || h <= 0 {
		return 0
	}

	inter := w * h
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

type Expression struct {
	Name        string
	Probability float64
}

// Expressions maps an expression name to its probability.
type Expressions map[string]float64

// Sorted returns the expressions ordered by descending probability, ties by name.
func (e Expressions) Sorted() []Expression {
	out := make([]Expression, 0, len(e))
	for name, p := range e {
		out = append(out, Expression{Name: name, Probability: p})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Probability == out[j].Probability {
			return out[i].Name < out[j].Name
		}
		return out[i].Probability > out[j].Probability
	})

	return out
}

// Above returns the sorted expressions whose probability is strictly greater than min.
func (e Expressions) Above(min float64) []Expression {
	var out []Expression
	for _, expr := range e.Sorted() {
		if expr.Probability > min {
			out = append(out, expr)
		}
	}
	return out
}

type Detection struct {
	Box               Box         `json:"box"`
	Score             float64     `json:"score"`
	Landmarks         []Point     `json:"landmarks"`
	Expressions       Expressions `json:"expressions"`
	Age               float64     `json:"age"`
	Gender            Gender      `json:"gender"`
	GenderProbability float64     `json:"gender_probability"`
}
