// Package modeltest provides in-memory classifiers for tests that must
// not depend on the onnxruntime shared library.
package modeltest

import (
	"os"
	"sync/atomic"

	"github.com/Brownie44l1/exoplanet-api/internal/lightcurve"
	"github.com/Brownie44l1/exoplanet-api/internal/model"
)

// Classifier returns a fixed probability, or the result of Fn when set.
type Classifier struct {
	P     float64
	Fn    func(t lightcurve.Tensor) (float64, error)
	Shape lightcurve.Shape

	calls  atomic.Int64
	closed atomic.Bool
}

func (c *Classifier) Predict(t lightcurve.Tensor) (float64, error) {
	c.calls.Add(1)
	if c.Fn != nil {
		return c.Fn(t)
	}
	return c.P, nil
}

func (c *Classifier) InputShape() lightcurve.Shape {
	if c.Shape != nil {
		return c.Shape
	}
	return lightcurve.InputShape
}

func (c *Classifier) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Classifier) Calls() int64 {
	return c.calls.Load()
}

func (c *Classifier) Closed() bool {
	return c.closed.Load()
}

// Loader serves the given classifiers by variant. Variants without an
// entry fail to load.
func Loader(classifiers map[model.Variant]*Classifier) model.Loader {
	return model.LoaderFunc(func(v model.Variant) (model.Classifier, error) {
		c, ok := classifiers[v]
		if !ok {
			return nil, &model.ModelLoadError{Variant: v.String(), Path: "models/" + v.String() + ".onnx", Err: os.ErrNotExist}
		}
		return c, nil
	})
}

// Fixed returns a loader where every variant predicts p.
func Fixed(p float64) model.Loader {
	return Loader(map[model.Variant]*Classifier{
		model.CNN:     {P: p},
		model.CNNLSTM: {P: p},
	})
}
