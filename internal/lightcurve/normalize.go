package lightcurve

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// resolutionUlps is the spread, in units in the last place of the mean,
// at or below which deviations are indistinguishable from rounding.
const resolutionUlps = 4

// Shape is a tensor shape, outermost dimension first.
type Shape []int64

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	return fmt.Sprint([]int64(s))
}

// InputShape is the (batch, length, channels) shape of a normalized
// light curve.
var InputShape = Shape{1, Length, 1}

// Tensor is a standardized light curve ready for inference.
type Tensor struct {
	Shape Shape
	Data  []float32
}

// Normalize standardizes a sample to zero mean and unit population
// variance and lays it out as a (1, 3197, 1) tensor.
func Normalize(sample RawSample) (Tensor, error) {
	return normalizeRow(sample, 1)
}

// NormalizeRows normalizes each sample in order and stops at the first
// failure.
func NormalizeRows(rows []RawSample) ([]Tensor, error) {
	tensors := make([]Tensor, 0, len(rows))
	for i, row := range rows {
		t, err := normalizeRow(row, i+1)
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, t)
	}
	return tensors, nil
}

func normalizeRow(sample RawSample, row int) (Tensor, error) {
	if len(sample) != Length {
		return Tensor{}, &MalformedInputError{
			Row:    row,
			Reason: fmt.Sprintf("sample must contain %d flux values, got %d", Length, len(sample)),
		}
	}

	data := stats.Float64Data(sample)
	mean, err := stats.Mean(data)
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to compute mean: %w", err)
	}
	sigma, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to compute standard deviation: %w", err)
	}
	if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return Tensor{}, &MalformedInputError{Row: row, Reason: "flux values out of numeric range"}
	}

	// A correction pass removes the summation error left in the mean,
	// which is visible when the spread is small next to the flux level.
	var residual float64
	for _, v := range sample {
		residual += v - mean
	}
	mean += residual / Length

	if constant(sample) || sigma == 0 || sigma <= resolutionUlps*ulp(mean) {
		return Tensor{}, &DegenerateInputError{Row: row, Mean: mean}
	}

	out := make([]float32, Length)
	for i, v := range sample {
		z := float32((v - mean) / sigma)
		if math.IsNaN(float64(z)) || math.IsInf(float64(z), 0) {
			return Tensor{}, &DegenerateInputError{Row: row, Mean: mean}
		}
		out[i] = z
	}

	return Tensor{
		Shape: Shape{1, Length, 1},
		Data:  out,
	}, nil
}

func ulp(x float64) float64 {
	x = math.Abs(x)
	return math.Nextafter(x, math.Inf(1)) - x
}

func constant(sample RawSample) bool {
	for _, v := range sample[1:] {
		if v != sample[0] {
			return false
		}
	}
	return true
}
