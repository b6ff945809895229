package capture

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"facecam/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlaceholder struct {
	calls  int
	width  int
	height int
}

func (p *recordingPlaceholder) Loading(s *surface.Surface) {
	p.calls++
	p.width, p.height = s.Width(), s.Height()
	s.Fill(color.RGBA{R: 255, A: 255})
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestLiveMatchesFrameSizeAndCoversPlaceholder(t *testing.T) {
	s := surface.New(640, 480)
	p := &recordingPlaceholder{}

	Live(s, solid(320, 180, color.RGBA{G: 255, A: 255}), p)

	assert.Equal(t, 320, s.Width())
	assert.Equal(t, 180, s.Height())
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 320, p.width)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, s.At(160, 90))
}

func TestStaticMatchesImageSize(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"landscape", 800, 600},
		{"portrait", 90, 160},
		{"single pixel", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := surface.New(640, 480)
			s.Fill(color.RGBA{R: 255, A: 255})

			Static(s, solid(tt.w, tt.h, color.RGBA{B: 128, A: 128}))

			assert.Equal(t, tt.w, s.Width())
			assert.Equal(t, tt.h, s.Height())
			assert.Equal(t, uint8(0), s.At(0, 0).R)
		})
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	raw := encodePNG(t, solid(12, 7, color.RGBA{R: 10, A: 255}))

	img, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 7, img.Bounds().Dy())

	_, err = Decode(bytes.NewReader([]byte("definitely not an image")))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestDecodeDataURL(t *testing.T) {
	raw := encodePNG(t, solid(4, 3, color.RGBA{G: 10, A: 255}))
	b64 := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"data url", "data:image/png;base64," + b64, false},
		{"bare base64", b64, false},
		{"not base64 encoded", "data:image/png," + b64, true},
		{"generic mime", "data:application/octet-stream;base64," + b64, false},
		{"text mime over image bytes", "data:text/plain;base64," + b64, false},
		{"text payload", "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")), true},
		{"garbage", "data:image/png;base64,@@@", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeDataURL(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
		})
	}
}

// pngHeader is a PNG signature plus an IHDR chunk declaring w x h, with no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	var buf bytes.Buffer
	buf.Write([]byte("\x89PNG\r\n\x1a\n"))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeRejectsOversizedImages(t *testing.T) {
	tests := []struct {
		name string
		w, h uint32
	}{
		{"huge square", 30000, 30000},
		{"too wide", MaxDimension + 1, 10},
		{"too tall", 10, MaxDimension + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(pngHeader(tt.w, tt.h)))
			assert.ErrorIs(t, err, ErrInvalidImage)
			assert.ErrorContains(t, err, "exceeds")
		})
	}

	payload := base64.StdEncoding.EncodeToString(pngHeader(30000, 30000))
	_, err := DecodeDataURL("data:image/png;base64," + payload)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestDecodeWithLimit(t *testing.T) {
	raw := encodePNG(t, solid(20, 10, color.RGBA{R: 10, A: 255}))

	_, err := DecodeWithLimit(bytes.NewReader(raw), 16)
	assert.ErrorIs(t, err, ErrInvalidImage)

	img, err := DecodeWithLimit(bytes.NewReader(raw), 20)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
}
