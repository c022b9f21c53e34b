package model

import (
	"fmt"

	"github.com/Brownie44l1/exoplanet-api/internal/lightcurve"
)

// Variant names one of the pretrained classifier architectures.
type Variant int

const (
	CNN Variant = iota
	CNNLSTM
)

var variantNames = map[Variant]string{
	CNN:     "cnn",
	CNNLSTM: "cnn_lstm",
}

// Variants lists every supported variant in a stable order.
func Variants() []Variant {
	return []Variant{CNN, CNNLSTM}
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant resolves a variant by its name as used in requests and
// configuration.
func ParseVariant(name string) (Variant, error) {
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return 0, &UnknownModelError{Name: name}
}

// Metadata describes an exported model's input and output tensors. It is
// read from the JSON file shipped next to each model artifact.
type Metadata struct {
	Architecture string  `json:"architecture"`
	InputName    string  `json:"input_name"`
	OutputName   string  `json:"output_name"`
	InputShape   []int64 `json:"input_shape"`
	OutputShape  []int64 `json:"output_shape"`
}

func (m *Metadata) applyDefaults() {
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, 1}
	}
}

// Validate checks that the declared shapes match a single light curve in
// and a single probability out. A batch dimension of -1 is accepted.
func (m *Metadata) Validate() error {
	in := concrete(m.InputShape)
	if !in.Equal(lightcurve.InputShape) {
		return fmt.Errorf("input shape %v incompatible with %v", m.InputShape, lightcurve.InputShape)
	}
	out := concrete(m.OutputShape)
	size := int64(1)
	for _, d := range out {
		size *= d
	}
	if len(out) == 0 || size != 1 {
		return fmt.Errorf("output shape %v must hold a single probability", m.OutputShape)
	}
	return nil
}

// concrete replaces dynamic dimensions with 1 since exactly one sample
// is classified per call.
func concrete(dims []int64) lightcurve.Shape {
	out := make(lightcurve.Shape, len(dims))
	for i, d := range dims {
		if d < 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}
