package media

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrack struct {
	closed atomic.Int32
}

func (t *fakeTrack) Close() error {
	t.closed.Add(1)
	return nil
}

type fakeStream struct {
	tracks []*fakeTrack
	frames chan image.Image
	once   sync.Once
	ended  chan struct{}
}

func newFakeStream(n int) *fakeStream {
	s := &fakeStream{frames: make(chan image.Image, 4), ended: make(chan struct{})}
	for i := 0; i < n; i++ {
		s.tracks = append(s.tracks, &fakeTrack{})
	}
	return s
}

func (s *fakeStream) Tracks() []Track {
	var out []Track
	for _, t := range s.tracks {
		out = append(out, t)
	}
	return out
}

func (s *fakeStream) ReadFrame() (image.Image, error) {
	select {
	case img := <-s.frames:
		return img, nil
	case <-s.ended:
		return nil, io.EOF
	}
}

func (s *fakeStream) end() {
	s.once.Do(func() { close(s.ended) })
}

func (s *fakeStream) released() bool {
	for _, t := range s.tracks {
		if t.closed.Load() == 0 {
			return false
		}
	}
	return true
}

type fakeProvider struct {
	streams []*fakeStream
	err     error
	opened  int
}

func (p *fakeProvider) Open(context.Context) (Stream, error) {
	if p.err != nil {
		return nil, p.err
	}
	s := p.streams[p.opened]
	p.opened++
	return s, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestStopIsIdempotent(t *testing.T) {
	stream := newFakeStream(2)
	defer stream.end()
	a := NewAdapter(&fakeProvider{streams: []*fakeStream{stream}}, quietLogger())

	a.Stop()
	assert.False(t, a.Active())

	require.NoError(t, a.Start(context.Background()))
	assert.True(t, a.Active())

	a.Stop()
	a.Stop()

	assert.False(t, a.Active())
	for _, tr := range stream.tracks {
		assert.EqualValues(t, 1, tr.closed.Load())
	}

	_, err := a.Frame()
	assert.ErrorIs(t, err, ErrNoActiveStream)
}

func TestStartReleasesPreviousStream(t *testing.T) {
	first, second := newFakeStream(1), newFakeStream(1)
	defer first.end()
	defer second.end()
	a := NewAdapter(&fakeProvider{streams: []*fakeStream{first, second}}, quietLogger())

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Start(context.Background()))

	assert.True(t, first.released())
	assert.False(t, second.released())
	assert.True(t, a.Active())
}

func TestStartErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   error
	}{
		{"permission", errors.Join(ErrPermissionDenied, errors.New("open /dev/video0")), ErrPermissionDenied},
		{"no device", ErrNoDevice, ErrNoDevice},
		{"other", errors.New("driver exploded"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(&fakeProvider{err: tt.err}, quietLogger())
			err := a.Start(context.Background())
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			assert.False(t, a.Active())
		})
	}
}

func TestFrameReturnsLatest(t *testing.T) {
	stream := newFakeStream(1)
	defer stream.end()
	a := NewAdapter(&fakeProvider{streams: []*fakeStream{stream}}, quietLogger())
	require.NoError(t, a.Start(context.Background()))

	_, err := a.Frame()
	assert.ErrorIs(t, err, ErrNoFrame)

	stream.frames <- image.NewRGBA(image.Rect(0, 0, 320, 240))

	require.Eventually(t, func() bool {
		img, err := a.Frame()
		return err == nil && img.Bounds().Dx() == 320
	}, time.Second, 5*time.Millisecond)

	a.Stop()
	_, err = a.Frame()
	assert.ErrorIs(t, err, ErrNoActiveStream)
}
