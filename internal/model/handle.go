package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/Brownie44l1/exoplanet-api/internal/lightcurve"
)

// Classifier is a loaded binary transit classifier. Implementations must
// be safe for concurrent Predict calls.
type Classifier interface {
	// Predict runs a forward pass and returns P(transit).
	Predict(t lightcurve.Tensor) (float64, error)
	InputShape() lightcurve.Shape
	Close() error
}

// Loader produces the classifier for a variant.
type Loader interface {
	Load(v Variant) (Classifier, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(v Variant) (Classifier, error)

func (f LoaderFunc) Load(v Variant) (Classifier, error) {
	return f(v)
}

// Handle binds a loaded classifier to its variant. It is read-only after
// LoadModel returns.
type Handle struct {
	variant    Variant
	classifier Classifier
}

// LoadModel loads the named variant and checks that it accepts
// normalized light curves.
func LoadModel(loader Loader, name string) (*Handle, error) {
	v, err := ParseVariant(name)
	if err != nil {
		return nil, err
	}
	return loadVariant(loader, v)
}

func loadVariant(loader Loader, v Variant) (*Handle, error) {
	c, err := loader.Load(v)
	if err != nil {
		var loadErr *ModelLoadError
		if errors.As(err, &loadErr) {
			return nil, err
		}
		return nil, &ModelLoadError{Variant: v.String(), Err: err}
	}

	if shape := c.InputShape(); !shape.Equal(lightcurve.InputShape) {
		c.Close()
		return nil, &ModelLoadError{
			Variant: v.String(),
			Err:     fmt.Errorf("input shape %v incompatible with %v", shape, lightcurve.InputShape),
		}
	}

	return &Handle{variant: v, classifier: c}, nil
}

func (h *Handle) Variant() Variant {
	return h.variant
}

// Predict checks the tensor against the model input and returns the
// transit probability.
func (h *Handle) Predict(t lightcurve.Tensor) (float64, error) {
	want := h.classifier.InputShape()
	if !t.Shape.Equal(want) {
		return 0, &ShapeMismatchError{Want: want, Got: t.Shape}
	}
	if size := shapeSize(want); int64(len(t.Data)) != size {
		return 0, &ShapeMismatchError{Want: want, Got: lightcurve.Shape{int64(len(t.Data))}}
	}

	p, err := h.classifier.Predict(t)
	if err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("model %s returned probability %v outside [0, 1]", h.variant, p)
	}
	return p, nil
}

func (h *Handle) Close() error {
	return h.classifier.Close()
}

func shapeSize(s lightcurve.Shape) int64 {
	size := int64(1)
	for _, d := range s {
		size *= d
	}
	return size
}
