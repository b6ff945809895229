package media

import (
	"context"
	"errors"
	"image"
	"io/fs"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/io/video"
)

type pionProvider struct{}

// NewPionProvider opens the first camera through pion/mediadevices.
func NewPionProvider() Provider {
	return &pionProvider{}
}

func (p *pionProvider) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !hasVideoInput() {
		return nil, ErrNoDevice
	}

	ms, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {},
	})
	if err != nil {
		return nil, classify(err)
	}

	tracks := ms.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, ErrNoDevice
	}

	vt, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		for _, t := range ms.GetTracks() {
			_ = t.Close()
		}
		return nil, errors.New("camera track does not carry raw video")
	}

	return &pionStream{
		stream: ms,
		reader: vt.NewReader(false),
	}, nil
}

func hasVideoInput() bool {
	for _, info := range mediadevices.EnumerateDevices() {
		if info.Kind == mediadevices.VideoInput {
			return true
		}
	}
	return false
}

func classify(err error) error {
	if errors.Is(err, fs.ErrPermission) || strings.Contains(strings.ToLower(err.Error()), "permission denied") {
		return errors.Join(ErrPermissionDenied, err)
	}
	if strings.Contains(err.Error(), "failed to find") {
		return errors.Join(ErrNoDevice, err)
	}
	return err
}

type pionStream struct {
	stream mediadevices.MediaStream
	reader video.Reader
}

func (s *pionStream) Tracks() []Track {
	var out []Track
	for _, t := range s.stream.GetTracks() {
		out = append(out, t)
	}
	return out
}

func (s *pionStream) ReadFrame() (image.Image, error) {
	img, release, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	defer release()

	return imaging.Clone(img), nil
}
