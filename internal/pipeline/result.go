package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Brownie44l1/exoplanet-api/internal/decision"
	"github.com/Brownie44l1/exoplanet-api/internal/lightcurve"
	"github.com/Brownie44l1/exoplanet-api/internal/model"
)

// ErrorKind classifies why a file could not be scored. Reporting code
// switches on it instead of parsing messages.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindMalformedInput
	KindDegenerateInput
	KindShapeMismatch
	KindUnknownModel
	KindModelLoad
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return ""
	case KindMalformedInput:
		return "malformed_input"
	case KindDegenerateInput:
		return "degenerate_input"
	case KindShapeMismatch:
		return "shape_mismatch"
	case KindUnknownModel:
		return "unknown_model"
	case KindModelLoad:
		return "model_load"
	default:
		return "internal"
	}
}

// KindOf maps an error from the pipeline to its kind.
func KindOf(err error) ErrorKind {
	var (
		malformed  *lightcurve.MalformedInputError
		degenerate *lightcurve.DegenerateInputError
		mismatch   *model.ShapeMismatchError
		unknown    *model.UnknownModelError
		loadErr    *model.ModelLoadError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &malformed):
		return KindMalformedInput
	case errors.As(err, &degenerate):
		return KindDegenerateInput
	case errors.As(err, &mismatch):
		return KindShapeMismatch
	case errors.As(err, &unknown):
		return KindUnknownModel
	case errors.As(err, &loadErr):
		return KindModelLoad
	default:
		return KindInternal
	}
}

// FileResult is the outcome for one uploaded file: either a decision or
// the error that prevented one.
type FileResult struct {
	Filename string
	Result   *decision.Result
	Err      error
	// Flux is the unscaled first row, kept for plotting.
	Flux lightcurve.RawSample
	// IgnoredRows counts rows after the first, which are not classified.
	IgnoredRows int
}

func (r FileResult) Kind() ErrorKind {
	return KindOf(r.Err)
}

func (r FileResult) IsExoplanet() bool {
	return r.Err == nil && r.Result != nil && r.Result.Label == decision.Exoplanet
}

// Prediction is the verdict text shown for the file.
func (r FileResult) Prediction() string {
	if r.Err != nil || r.Result == nil {
		return fmt.Sprintf("❌ Error processing file: %v", r.Err)
	}
	return r.Result.Label.Message()
}

// Confidence is the formatted confidence, or "-" when the file failed.
func (r FileResult) Confidence() string {
	if r.Err != nil || r.Result == nil {
		return "-"
	}
	return r.Result.Confidence()
}

type fileResultJSON struct {
	Filename          string               `json:"filename"`
	Label             string               `json:"label,omitempty"`
	Probability       *float64             `json:"probability,omitempty"`
	ConfidencePercent *float64             `json:"confidence_percent,omitempty"`
	Prediction        string               `json:"prediction"`
	Confidence        string               `json:"confidence"`
	ErrorKind         string               `json:"error_kind,omitempty"`
	Error             string               `json:"error,omitempty"`
	IgnoredRows       int                  `json:"ignored_rows,omitempty"`
	RawData           lightcurve.RawSample `json:"raw_data,omitempty"`
}

func (r FileResult) MarshalJSON() ([]byte, error) {
	out := fileResultJSON{
		Filename:    r.Filename,
		Prediction:  r.Prediction(),
		Confidence:  r.Confidence(),
		IgnoredRows: r.IgnoredRows,
		RawData:     r.Flux,
	}
	if r.Err != nil {
		out.ErrorKind = r.Kind().String()
		out.Error = r.Err.Error()
	} else if r.Result != nil {
		out.Label = r.Result.Label.String()
		out.Probability = &r.Result.Probability
		out.ConfidencePercent = &r.Result.ConfidencePercent
	}
	return json.Marshal(out)
}

// Summary holds the batch counts printed on the report's summary page.
type Summary struct {
	Total         int `json:"total"`
	Exoplanets    int `json:"exoplanets"`
	NonExoplanets int `json:"non_exoplanets"`
	Failed        int `json:"failed"`
}

// Report is the ordered result set for one upload, consumed by the
// document renderer.
type Report struct {
	ID        uuid.UUID     `json:"id"`
	Model     string        `json:"model"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration_ns"`
	Results   []FileResult  `json:"results"`
	Summary   Summary       `json:"summary"`
}

func summarize(results []FileResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		case r.IsExoplanet():
			s.Exoplanets++
		default:
			s.NonExoplanets++
		}
	}
	return s
}
