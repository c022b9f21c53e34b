package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/exoplanet-api/internal/model"
)

// ModelFiles locates one exported model and its metadata.
type ModelFiles struct {
	Path     string `yaml:"path"`
	Metadata string `yaml:"metadata"`
}

// Config holds application configuration
type Config struct {
	Server struct {
		Port        string `yaml:"port"`
		MaxUploadMB int64  `yaml:"max_upload_mb"`
	} `yaml:"server"`

	Models struct {
		RuntimeLibrary string     `yaml:"runtime_library"`
		IntraOpThreads int        `yaml:"intra_op_threads"`
		InterOpThreads int        `yaml:"inter_op_threads"`
		CNN            ModelFiles `yaml:"cnn"`
		CNNLSTM        ModelFiles `yaml:"cnn_lstm"`
	} `yaml:"models"`

	Pipeline struct {
		Workers int `yaml:"workers"`
	} `yaml:"pipeline"`

	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`
}

// LoadConfig reads the YAML file at configPath, then applies .env and
// environment overrides and defaults. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	_ = godotenv.Load()

	file, err := os.Open(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := config.applyEnvOverrides(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	return config, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ONNXRUNTIME_LIB"); v != "" {
		c.Models.RuntimeLibrary = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EXODETECT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EXODETECT_WORKERS %q: %w", v, err)
		}
		c.Pipeline.Workers = n
	}

	c.Models.RuntimeLibrary = os.ExpandEnv(c.Models.RuntimeLibrary)
	c.Models.CNN.Path = os.ExpandEnv(c.Models.CNN.Path)
	c.Models.CNN.Metadata = os.ExpandEnv(c.Models.CNN.Metadata)
	c.Models.CNNLSTM.Path = os.ExpandEnv(c.Models.CNNLSTM.Path)
	c.Models.CNNLSTM.Metadata = os.ExpandEnv(c.Models.CNNLSTM.Metadata)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 10
	}
	if c.Models.IntraOpThreads == 0 {
		c.Models.IntraOpThreads = 1
	}
	if c.Models.InterOpThreads == 0 {
		c.Models.InterOpThreads = 1
	}
	if c.Models.CNN.Path == "" {
		c.Models.CNN.Path = "models/cnn_model.onnx"
	}
	if c.Models.CNN.Metadata == "" {
		c.Models.CNN.Metadata = "models/cnn_model_metadata.json"
	}
	if c.Models.CNNLSTM.Path == "" {
		c.Models.CNNLSTM.Path = "models/cnn_lstm_model.onnx"
	}
	if c.Models.CNNLSTM.Metadata == "" {
		c.Models.CNNLSTM.Metadata = "models/cnn_lstm_model_metadata.json"
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// ONNX converts the models section into loader configuration.
func (c *Config) ONNX() model.ONNXConfig {
	return model.ONNXConfig{
		LibraryPath:    c.Models.RuntimeLibrary,
		IntraOpThreads: c.Models.IntraOpThreads,
		InterOpThreads: c.Models.InterOpThreads,
		Artifacts: map[model.Variant]model.Artifact{
			model.CNN:     {ModelPath: c.Models.CNN.Path, MetadataPath: c.Models.CNN.Metadata},
			model.CNNLSTM: {ModelPath: c.Models.CNNLSTM.Path, MetadataPath: c.Models.CNNLSTM.Metadata},
		},
	}
}
