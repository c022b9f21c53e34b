// Package decision maps a transit probability to a label and a
// confidence percentage.
package decision

import (
	"fmt"
	"math"
)

// Threshold is the probability a prediction must exceed to be labelled
// an exoplanet. A probability equal to the threshold is not a transit.
const Threshold = 0.5

type Label int

const (
	NoTransit Label = iota
	Exoplanet
)

func (l Label) String() string {
	switch l {
	case Exoplanet:
		return "EXOPLANET"
	case NoTransit:
		return "NO_TRANSIT"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Message is the human-facing verdict shown next to a file.
func (l Label) Message() string {
	if l == Exoplanet {
		return "🚀 Likely Exoplanet!"
	}
	return "🪐 No exoplanet transit detected."
}

func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Result is the decision derived from a single probability.
type Result struct {
	Probability       float64 `json:"probability"`
	Label             Label   `json:"label"`
	ConfidencePercent float64 `json:"confidence_percent"`
}

// Confidence formats the confidence with two decimals, e.g. "90.00%".
func (r Result) Confidence() string {
	return fmt.Sprintf("%.2f%%", r.ConfidencePercent)
}

// Decide applies the fixed threshold to p.
func Decide(p float64) (Result, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Result{}, fmt.Errorf("probability %v outside [0, 1]", p)
	}

	if p > Threshold {
		return Result{Probability: p, Label: Exoplanet, ConfidencePercent: p * 100}, nil
	}
	return Result{Probability: p, Label: NoTransit, ConfidencePercent: (1 - p) * 100}, nil
}
