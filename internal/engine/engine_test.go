package engine

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"testing"
	"testing/fstest"

	"facecam/internal/entity"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	mu          sync.Mutex
	loaded      []string
	backends    []Backend
	failLoad    string
	failBackend map[Backend]error
	readyErr    error
	readyCalls  int
	detections  []entity.Detection
	detectErr   error
	lastOptions DetectOptions
}

func (f *fakeRuntime) LoadModel(_ context.Context, bundle *ModelBundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bundle.Name == f.failLoad {
		return errors.New("runtime rejected model")
	}
	f.loaded = append(f.loaded, bundle.Name)
	return nil
}

func (f *fakeRuntime) SetBackend(_ context.Context, backend Backend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backends = append(f.backends, backend)
	return f.failBackend[backend]
}

func (f *fakeRuntime) Ready(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyCalls++
	return f.readyErr
}

func (f *fakeRuntime) Detect(_ context.Context, _ image.Image, opts DetectOptions) ([]entity.Detection, error) {
	f.lastOptions = opts
	return f.detections, f.detectErr
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func validModelFS() fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, m := range Models {
		fsys[ManifestFile(m)] = &fstest.MapFile{Data: []byte(`[{"paths":["` + m + `-shard1"],"weights":[{"name":"conv0/filters","shape":[2,2],"dtype":"float32"}]}]`)}
		fsys[m+"-shard1"] = &fstest.MapFile{Data: make([]byte, 16)}
	}
	return fsys
}

func TestInitializePrefersAcceleratedBackend(t *testing.T) {
	rt := &fakeRuntime{}
	e := New(rt, NewFSStore(validModelFS()), quietLogger())

	assert.False(t, e.Ready())

	r, err := e.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, BackendAccelerated, r.Backend)
	assert.ElementsMatch(t, Models, rt.loaded)
	assert.Equal(t, []Backend{BackendAccelerated}, rt.backends)
	assert.Equal(t, 1, rt.readyCalls)
	assert.True(t, e.Ready())
}

func TestInitializeFallsBackToPortable(t *testing.T) {
	rt := &fakeRuntime{failBackend: map[Backend]error{BackendAccelerated: errors.New("no gpu")}}
	e := New(rt, NewFSStore(validModelFS()), quietLogger())

	r, err := e.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, BackendPortable, r.Backend)
	assert.Equal(t, []Backend{BackendAccelerated, BackendPortable}, rt.backends)
}

func TestInitializeFailsWhenNoBackend(t *testing.T) {
	rt := &fakeRuntime{failBackend: map[Backend]error{
		BackendAccelerated: errors.New("no gpu"),
		BackendPortable:    errors.New("no wasm"),
	}}
	e := New(rt, NewFSStore(validModelFS()), quietLogger())

	_, err := e.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelLoad)
	assert.ErrorIs(t, err, ErrNoBackends)
	assert.False(t, e.Ready())
}

func TestInitializeFailsOnAnyBundle(t *testing.T) {
	t.Run("missing shard", func(t *testing.T) {
		fsys := validModelFS()
		delete(fsys, ModelAgeGender+"-shard1")

		rt := &fakeRuntime{}
		e := New(rt, NewFSStore(fsys), quietLogger())

		_, err := e.Initialize(context.Background())
		var loadErr *ModelLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, ModelAgeGender, loadErr.Model)
		assert.Empty(t, rt.backends)
		assert.False(t, e.Ready())
	})

	t.Run("runtime rejects bundle", func(t *testing.T) {
		rt := &fakeRuntime{failLoad: ModelFaceExpression}
		e := New(rt, NewFSStore(validModelFS()), quietLogger())

		_, err := e.Initialize(context.Background())
		assert.ErrorIs(t, err, ErrModelLoad)
		assert.False(t, e.Ready())
	})

	t.Run("runtime never ready", func(t *testing.T) {
		rt := &fakeRuntime{readyErr: errors.New("backend crashed")}
		e := New(rt, NewFSStore(validModelFS()), quietLogger())

		_, err := e.Initialize(context.Background())
		assert.ErrorIs(t, err, ErrModelLoad)
		assert.False(t, e.Ready())
	})
}

func TestInitializeIsIdempotent(t *testing.T) {
	rt := &fakeRuntime{}
	e := New(rt, NewFSStore(validModelFS()), quietLogger())

	first, err := e.Initialize(context.Background())
	require.NoError(t, err)

	second, err := e.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, rt.backends, 1)
	assert.Len(t, rt.loaded, len(Models))
}

func TestDetectBeforeReadyFailsFast(t *testing.T) {
	rt := &fakeRuntime{}
	e := New(rt, NewFSStore(validModelFS()), quietLogger())

	_, err := e.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, DetectOptions{}, rt.lastOptions)
}

func TestDetect(t *testing.T) {
	want := []entity.Detection{{Box: entity.Box{X: 1, Y: 2, Width: 3, Height: 4}, Age: 29.6, Gender: entity.GenderMale}}
	rt := &fakeRuntime{detections: want}
	e := New(rt, NewFSStore(validModelFS()), quietLogger())
	_, err := e.Initialize(context.Background())
	require.NoError(t, err)

	got, err := e.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, TinyDetectOptions(), rt.lastOptions)

	rt.detectErr = errors.New("tensor shape mismatch")
	_, err = e.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, ErrInference)
	assert.Contains(t, err.Error(), "tensor shape mismatch")
}
