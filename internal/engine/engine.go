package engine

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"facecam/internal/entity"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Readiness is reached once all bundles are loaded and a backend is active.
type Readiness struct {
	Backend Backend   `json:"backend"`
	Models  []string  `json:"models"`
	ReadyAt time.Time `json:"ready_at"`
}

type Option func(*Engine)

func WithDetectTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.detectTimeout = d
	}
}

func WithDetectOptions(opts DetectOptions) Option {
	return func(e *Engine) {
		e.detectOptions = opts
	}
}

// Engine owns the detection capability. It is built once at startup and
// handed to every component that needs to run detection.
type Engine struct {
	runtime       Runtime
	store         ModelStore
	log           *logrus.Logger
	detectOptions DetectOptions
	detectTimeout time.Duration

	initMu    sync.Mutex
	readiness atomic.Pointer[Readiness]
}

func New(runtime Runtime, store ModelStore, log *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		runtime:       runtime,
		store:         store,
		log:           log,
		detectOptions: TinyDetectOptions(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Initialize loads every model bundle, selects a backend and waits for the
// runtime. It runs at most once successfully; later calls return the
// readiness already reached.
func (e *Engine) Initialize(ctx context.Context) (Readiness, error) {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if r := e.readiness.Load(); r != nil {
		return *r, nil
	}

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, model := range Models {
		model := model
		g.Go(func() error {
			bundle, err := LoadBundle(gctx, e.store, model)
			if err != nil {
				return &ModelLoadError{Model: model, Err: err}
			}

			if err := e.runtime.LoadModel(gctx, bundle); err != nil {
				return &ModelLoadError{Model: model, Err: err}
			}

			e.log.WithFields(logrus.Fields{
				"model":  model,
				"shards": len(bundle.Shards),
			}).Debug("Model bundle loaded")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to load face models")
		return Readiness{}, err
	}

	backend, err := e.activateBackend(ctx)
	if err != nil {
		return Readiness{}, err
	}

	if err := e.runtime.Ready(ctx); err != nil {
		return Readiness{}, &ModelLoadError{Model: string(backend), Err: err}
	}

	r := &Readiness{
		Backend: backend,
		Models:  append([]string(nil), Models...),
		ReadyAt: time.Now(),
	}
	e.readiness.Store(r)

	e.log.WithFields(logrus.Fields{
		"backend":    backend,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("Face models ready")

	return *r, nil
}

func (e *Engine) activateBackend(ctx context.Context) (Backend, error) {
	err := e.runtime.SetBackend(ctx, BackendAccelerated)
	if err == nil {
		return BackendAccelerated, nil
	}

	e.log.WithFields(logrus.Fields{
		"error": err.Error(),
	}).Warn("Accelerated backend not available, fallback to portable")

	if err := e.runtime.SetBackend(ctx, BackendPortable); err != nil {
		return "", &ModelLoadError{Model: string(BackendPortable), Err: errors.Join(ErrNoBackends, err)}
	}

	return BackendPortable, nil
}

func (e *Engine) Ready() bool {
	return e.readiness.Load() != nil
}

// Readiness reports the readiness state, false when not reached yet.
func (e *Engine) Readiness() (Readiness, bool) {
	r := e.readiness.Load()
	if r == nil {
		return Readiness{}, false
	}
	return *r, true
}

// Detect runs one annotated detection over img. There is no retry.
func (e *Engine) Detect(ctx context.Context, img image.Image) ([]entity.Detection, error) {
	if !e.Ready() {
		return nil, ErrNotReady
	}

	if e.detectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.detectTimeout)
		defer cancel()
	}

	detections, err := e.runtime.Detect(ctx, img, e.detectOptions)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}

	return detections, nil
}
