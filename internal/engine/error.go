package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady   = errors.New("face models are not loaded yet")
	ErrInference  = errors.New("face inference failed")
	ErrModelLoad  = errors.New("failed to load face models")
	ErrNoBackends = errors.New("no computation backend could be activated")
)

// ModelLoadError reports which bundle (or backend step) broke initialisation.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

func (e *ModelLoadError) Is(target error) bool {
	return target == ErrModelLoad
}

type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInference, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

func (e *InferenceError) Is(target error) bool {
	return target == ErrInference
}
