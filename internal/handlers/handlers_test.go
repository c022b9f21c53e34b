package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Brownie44l1/exoplanet-api/internal/lightcurve"
	"github.com/Brownie44l1/exoplanet-api/internal/model"
	"github.com/Brownie44l1/exoplanet-api/internal/model/modeltest"
	"github.com/Brownie44l1/exoplanet-api/internal/pipeline"
)

func flux() []float64 {
	out := make([]float64, lightcurve.Length)
	for i := range out {
		out[i] = 1 + 0.01*math.Sin(float64(i)/50)
		if i > 2000 && i < 2015 {
			out[i] -= 0.1
		}
	}
	return out
}

func fluxCSV() string {
	cells := make([]string, 0, lightcurve.Length)
	for _, v := range flux() {
		cells = append(cells, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return strings.Join(cells, ",")
}

func newRouter(t *testing.T, p float64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg, err := model.NewRegistry(modeltest.Fixed(p), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	h := NewHandler(pipeline.New(reg, 2, zap.NewNop()), reg, 10, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func multipartBody(t *testing.T, modelName string, files map[string]string, order []string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if modelName != "" {
		require.NoError(t, w.WriteField("model", modelName))
	}
	for _, name := range order {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHealthAndModels(t *testing.T) {
	r := newRouter(t, 0.5)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))
	assert.JSONEq(t, `{"models":["cnn","cnn_lstm"]}`, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	r := newRouter(t, 0.5)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/predict", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST, GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestPredictFiles(t *testing.T) {
	r := newRouter(t, 0.9)

	files := map[string]string{
		"star-1.csv": fluxCSV(),
		"broken.csv": "1,2,3",
		"star-2.csv": fluxCSV(),
	}
	order := []string{"star-1.csv", "broken.csv", "star-2.csv"}
	body, contentType := multipartBody(t, "cnn_lstm", files, order)

	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report struct {
		Model   string `json:"model"`
		Results []struct {
			Filename   string `json:"filename"`
			Label      string `json:"label"`
			Prediction string `json:"prediction"`
			Confidence string `json:"confidence"`
			ErrorKind  string `json:"error_kind"`
		} `json:"results"`
		Summary pipeline.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	assert.Equal(t, "cnn_lstm", report.Model)
	require.Len(t, report.Results, 3)
	for i, name := range order {
		assert.Equal(t, name, report.Results[i].Filename)
	}
	assert.Equal(t, "EXOPLANET", report.Results[0].Label)
	assert.Equal(t, "90.00%", report.Results[0].Confidence)
	assert.Equal(t, "malformed_input", report.Results[1].ErrorKind)
	assert.Equal(t, "-", report.Results[1].Confidence)
	assert.True(t, strings.HasPrefix(report.Results[1].Prediction, "❌ Error processing file"))
	assert.Equal(t, pipeline.Summary{Total: 3, Exoplanets: 2, Failed: 1}, report.Summary)
}

func TestPredictFilesInvalidModel(t *testing.T) {
	r := newRouter(t, 0.9)

	for _, name := range []string{"", "svm"} {
		body, contentType := multipartBody(t, name, map[string]string{"a.csv": fluxCSV()}, []string{"a.csv"})
		req := httptest.NewRequest(http.MethodPost, "/predict", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown_model")
	}
}

func TestPredictFilesNotMultipart(t *testing.T) {
	r := newRouter(t, 0.9)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictRaw(t *testing.T) {
	r := newRouter(t, 0.001)

	post := func(payload any) *httptest.ResponseRecorder {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/predict/raw", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := post(map[string]any{"model": "cnn", "flux": flux()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp predictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NO_TRANSIT", resp.Label)
	assert.Equal(t, "99.90%", resp.Confidence)
	assert.Equal(t, "🪐 No exoplanet transit detected.", resp.Prediction)

	rec = post(map[string]any{"model": "cnn", "flux": flux()[:3196]})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Expected 3197 values, got 3196")

	constant := make([]float64, lightcurve.Length)
	rec = post(map[string]any{"model": "cnn", "flux": constant})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "degenerate_input")

	rec = post(map[string]any{"model": "rnn", "flux": flux()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_model")

	rec = post(map[string]any{"flux": flux()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_model")

	rec = post(map[string]any{"model": "", "flux": flux()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_model")

	rec = post(map[string]any{"model": "cnn"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JSON")
}
