// Package pipeline scores uploaded light-curve files against a model
// variant and collects the per-file results into a report.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/exoplanet-api/internal/decision"
	"github.com/Brownie44l1/exoplanet-api/internal/lightcurve"
	"github.com/Brownie44l1/exoplanet-api/internal/model"
)

// Models resolves a variant name to a loaded handle.
type Models interface {
	Get(name string) (*model.Handle, error)
}

// Upload is one file of a batch. Open is called once, by the worker that
// processes the file.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

type Pipeline struct {
	models  Models
	workers int
	logger  *zap.Logger
}

// New returns a pipeline that processes up to workers files at once.
// Values below 1 mean sequential processing.
func New(models Models, workers int, logger *zap.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		models:  models,
		workers: workers,
		logger:  logger,
	}
}

// Run classifies every upload with the named variant. An unknown variant
// fails the whole call; any other failure is recorded on that file's
// result and the remaining files are still processed.
func (p *Pipeline) Run(ctx context.Context, modelName string, uploads []Upload) (*Report, error) {
	h, err := p.models.Get(modelName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{
		ID:        uuid.New(),
		Model:     h.Variant().String(),
		CreatedAt: start.UTC(),
		Results:   make([]FileResult, len(uploads)),
	}
	logger := p.logger.With(
		zap.Stringer("batch_id", report.ID),
		zap.String("model", report.Model))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, upload := range uploads {
		i, upload := i, upload
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				report.Results[i] = FileResult{Filename: upload.Filename, Err: err}
				return nil
			}
			report.Results[i] = p.processFile(h, upload)
			if r := report.Results[i]; r.Err != nil {
				logger.Warn("File failed",
					zap.String("filename", r.Filename),
					zap.Stringer("kind", r.Kind()),
					zap.Error(r.Err))
			} else if r.IgnoredRows > 0 {
				logger.Info("Only the first row was classified",
					zap.String("filename", r.Filename),
					zap.Int("ignored_rows", r.IgnoredRows))
			}
			return nil
		})
	}
	g.Wait()

	report.Duration = time.Since(start)
	report.Summary = summarize(report.Results)

	logger.Info("Batch processed",
		zap.Int("files", report.Summary.Total),
		zap.Int("exoplanets", report.Summary.Exoplanets),
		zap.Int("failed", report.Summary.Failed),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// Classify scores a single in-memory sample.
func (p *Pipeline) Classify(modelName string, sample lightcurve.RawSample) (decision.Result, error) {
	h, err := p.models.Get(modelName)
	if err != nil {
		return decision.Result{}, err
	}
	return classify(h, sample)
}

func (p *Pipeline) processFile(h *model.Handle, upload Upload) (result FileResult) {
	result.Filename = upload.Filename
	defer func() {
		if r := recover(); r != nil {
			result.Result = nil
			result.Err = fmt.Errorf("panic while processing file: %v", r)
		}
	}()

	f, err := upload.Open()
	if err != nil {
		result.Err = fmt.Errorf("failed to open upload: %w", err)
		return result
	}
	defer f.Close()

	sample, extra, err := lightcurve.ParseCSV(f)
	if err != nil {
		result.Err = err
		return result
	}
	result.Flux = sample
	result.IgnoredRows = extra

	decided, err := classify(h, sample)
	if err != nil {
		result.Err = err
		return result
	}
	result.Result = &decided
	return result
}

func classify(h *model.Handle, sample lightcurve.RawSample) (decision.Result, error) {
	tensor, err := lightcurve.Normalize(sample)
	if err != nil {
		return decision.Result{}, err
	}
	prob, err := h.Predict(tensor)
	if err != nil {
		return decision.Result{}, err
	}
	return decision.Decide(prob)
}
