package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/exoplanet-api/internal/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "ONNXRUNTIME_LIB", "LOG_LEVEL", "EXODETECT_WORKERS"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.EqualValues(t, 10, cfg.Server.MaxUploadMB)
	assert.Equal(t, 1, cfg.Models.IntraOpThreads)
	assert.Equal(t, 1, cfg.Models.InterOpThreads)
	assert.Equal(t, "models/cnn_model.onnx", cfg.Models.CNN.Path)
	assert.Equal(t, "models/cnn_lstm_model_metadata.json", cfg.Models.CNNLSTM.Metadata)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)

	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	content := `
server:
  port: "9000"
  max_upload_mb: 32
models:
  runtime_library: "${ORT_HOME}/libonnxruntime.so"
  intra_op_threads: 2
  cnn:
    path: /srv/models/cnn.onnx
    metadata: /srv/models/cnn.json
pipeline:
  workers: 3
logging:
  level: debug
  development: true
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	t.Setenv("ORT_HOME", "/opt/ort")
	t.Setenv("PORT", "7000")
	t.Setenv("EXODETECT_WORKERS", "6")

	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.EqualValues(t, 32, cfg.Server.MaxUploadMB)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", cfg.Models.RuntimeLibrary)
	assert.Equal(t, 2, cfg.Models.IntraOpThreads)
	assert.Equal(t, 6, cfg.Pipeline.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	onnx := cfg.ONNX()
	assert.Equal(t, model.Artifact{ModelPath: "/srv/models/cnn.onnx", MetadataPath: "/srv/models/cnn.json"}, onnx.Artifacts[model.CNN])
	assert.Equal(t, "models/cnn_lstm_model.onnx", onnx.Artifacts[model.CNNLSTM].ModelPath)
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o644))
	_, err := LoadConfig(bad)
	assert.Error(t, err)

	t.Setenv("EXODETECT_WORKERS", "many")
	_, err = LoadConfig(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	clearEnv(t)
	empty := filepath.Join(t.TempDir(), "empty.yml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	cfg, err := LoadConfig(empty)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}
