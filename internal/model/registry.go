package model

import (
	"errors"

	"go.uber.org/zap"
)

// Registry holds one loaded handle per variant. It is built once at
// startup and only read afterwards.
type Registry struct {
	handles map[Variant]*Handle
	logger  *zap.Logger
}

// NewRegistry loads every supported variant. Any failure closes the
// handles loaded so far and returns a *ModelLoadError.
func NewRegistry(loader Loader, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		handles: make(map[Variant]*Handle, len(variantNames)),
		logger:  logger,
	}

	for _, v := range Variants() {
		h, err := loadVariant(loader, v)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.handles[v] = h
		logger.Info("Model loaded",
			zap.Stringer("variant", v),
			zap.Stringer("input_shape", h.classifier.InputShape()))
	}

	return r, nil
}

// Get returns the handle for a variant name.
func (r *Registry) Get(name string) (*Handle, error) {
	v, err := ParseVariant(name)
	if err != nil {
		return nil, err
	}
	h, ok := r.handles[v]
	if !ok {
		return nil, &UnknownModelError{Name: name}
	}
	return h, nil
}

// Variants lists the loaded variants in a stable order.
func (r *Registry) Variants() []Variant {
	var out []Variant
	for _, v := range Variants() {
		if _, ok := r.handles[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (r *Registry) Close() error {
	var errs []error
	for v, h := range r.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.handles, v)
	}
	return errors.Join(errs...)
}
