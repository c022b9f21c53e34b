package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/exoplanet-api/internal/lightcurve"
	"github.com/Brownie44l1/exoplanet-api/internal/model"
	"github.com/Brownie44l1/exoplanet-api/internal/pipeline"
)

type Handler struct {
	pipeline    *pipeline.Pipeline
	registry    *model.Registry
	maxUploadMB int64
	logger      *zap.Logger
}

func NewHandler(p *pipeline.Pipeline, registry *model.Registry, maxUploadMB int64, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline:    p,
		registry:    registry,
		maxUploadMB: maxUploadMB,
		logger:      logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(CORS())

	r.GET("/health", h.Health)
	r.GET("/models", h.Models)
	r.POST("/predict", h.PredictFiles)
	r.POST("/predict/raw", h.Predict)
}

// CORS allows browser clients on any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Models(c *gin.Context) {
	names := make([]string, 0, 2)
	for _, v := range h.registry.Variants() {
		names = append(names, v.String())
	}
	c.JSON(http.StatusOK, gin.H{"models": names})
}

type predictRequest struct {
	Model string    `json:"model"`
	Flux  []float64 `json:"flux" binding:"required"`
}

type predictResponse struct {
	Model             string  `json:"model"`
	Label             string  `json:"label"`
	Probability       float64 `json:"probability"`
	ConfidencePercent float64 `json:"confidence_percent"`
	Prediction        string  `json:"prediction"`
	Confidence        string  `json:"confidence"`
}

// Predict classifies a single light curve posted as a JSON array.
func (h *Handler) Predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if len(req.Flux) != lightcurve.Length {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      fmt.Sprintf("Expected %d values, got %d", lightcurve.Length, len(req.Flux)),
			"error_kind": pipeline.KindMalformedInput.String(),
		})
		return
	}

	result, err := h.pipeline.Classify(req.Model, lightcurve.RawSample(req.Flux))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, predictResponse{
		Model:             req.Model,
		Label:             result.Label.String(),
		Probability:       result.Probability,
		ConfidencePercent: result.ConfidencePercent,
		Prediction:        result.Label.Message(),
		Confidence:        result.Confidence(),
	})
}

// PredictFiles classifies every CSV uploaded under the "file" field with
// the variant named in the "model" field. Files that fail carry their
// error in the report; the request itself fails only for an unknown
// model or an unreadable form.
func (h *Handler) PredictFiles(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.maxUploadMB << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form"})
		return
	}

	modelName := c.PostForm("model")
	if _, err := model.ParseVariant(modelName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Error: Invalid model selection.",
			"error_kind": pipeline.KindUnknownModel.String(),
		})
		return
	}

	var uploads []pipeline.Upload
	if form := c.Request.MultipartForm; form != nil {
		for _, fh := range form.File["file"] {
			fh := fh
			h.logger.Debug("Received file",
				zap.String("filename", fh.Filename),
				zap.Int64("size", fh.Size))
			uploads = append(uploads, pipeline.Upload{
				Filename: fh.Filename,
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}

	report, err := h.pipeline.Run(c.Request.Context(), modelName, uploads)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	kind := pipeline.KindOf(err)
	switch kind {
	case pipeline.KindMalformedInput, pipeline.KindDegenerateInput, pipeline.KindUnknownModel:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_kind": kind.String()})
	default:
		h.logger.Error("Prediction error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed", "error_kind": kind.String()})
	}
}
