package surface

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeClears(t *testing.T) {
	s := New(4, 4)
	s.Fill(color.RGBA{R: 255, A: 255})
	assert.Equal(t, color.RGBA{R: 255, A: 255}, s.At(1, 1))

	s.Resize(10, 6)
	assert.Equal(t, 10, s.Width())
	assert.Equal(t, 6, s.Height())
	assert.Equal(t, color.RGBA{}, s.At(1, 1))
}

func TestDrawImageUsesNativeSize(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 8, 7))
	for y := 5; y < 7; y++ {
		for x := 5; x < 8; x++ {
			src.SetRGBA(x, y, color.RGBA{G: 200, A: 255})
		}
	}

	s := New(6, 6)
	s.DrawImage(src)

	assert.Equal(t, color.RGBA{G: 200, A: 255}, s.At(0, 0))
	assert.Equal(t, color.RGBA{G: 200, A: 255}, s.At(2, 1))
	assert.Equal(t, color.RGBA{}, s.At(3, 0))
	assert.Equal(t, color.RGBA{}, s.At(0, 2))
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := New(2, 2)
	snap := s.Snapshot()

	s.Fill(color.RGBA{B: 255, A: 255})
	assert.Equal(t, color.RGBA{}, snap.RGBAAt(0, 0))

	s.Clear()
	assert.Equal(t, color.RGBA{}, s.At(0, 0))
}

func TestEncodePNG(t *testing.T) {
	s := New(3, 2)
	data, err := s.EncodePNG()
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}
