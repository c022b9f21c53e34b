package model

import (
	"fmt"

	"github.com/Brownie44l1/exoplanet-api/internal/lightcurve"
)

// UnknownModelError is returned for a variant name outside the
// supported set.
type UnknownModelError struct {
	Name string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q: expected one of cnn, cnn_lstm", e.Name)
}

// ShapeMismatchError is returned when a tensor does not have the shape
// the bound model was exported with.
type ShapeMismatchError struct {
	Want lightcurve.Shape
	Got  lightcurve.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: model expects %v, got %v", e.Want, e.Got)
}

// ModelLoadError is returned when a model artifact is missing or cannot
// serve light curves.
type ModelLoadError struct {
	Variant string
	Path    string
	Err     error
}

func (e *ModelLoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to load model %s from %s: %v", e.Variant, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to load model %s: %v", e.Variant, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}
