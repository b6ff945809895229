package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrInvalidImage = errors.New("file is not a decodable image")

// MaxDimension bounds either side of a decoded image, matching the largest
// surface the service can be configured with.
const MaxDimension = 8192

// Decode reads an image the way a browser would show it, EXIF orientation applied.
func Decode(r io.Reader) (image.Image, error) {
	return DecodeWithLimit(r, MaxDimension)
}

// DecodeWithLimit checks the declared size from the header before any pixel
// buffer is allocated.
func DecodeWithLimit(r io.Reader, maxSide int) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width > maxSide || cfg.Height > maxSide {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels per side", ErrInvalidImage, cfg.Width, cfg.Height, maxSide)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrInvalidImage
	}

	return img, nil
}

// DecodeDataURL decodes "data:<mime>;base64,<payload>" or a bare base64 payload.
// The declared mime type is ignored; the decoder decides.
func DecodeDataURL(s string) (image.Image, error) {
	payload := strings.TrimSpace(s)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, fmt.Errorf("%w: unsupported data URL", ErrInvalidImage)
		}
		payload = payload[comma+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return Decode(bytes.NewReader(raw))
}
