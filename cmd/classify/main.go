package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brownie44l1/exoplanet-api/internal/config"
	"github.com/Brownie44l1/exoplanet-api/internal/logging"
	"github.com/Brownie44l1/exoplanet-api/internal/model"
	"github.com/Brownie44l1/exoplanet-api/internal/pipeline"
)

func main() {
	var (
		configPath string
		modelName  string
	)

	root := &cobra.Command{
		Use:   "classify [flags] FILE.csv...",
		Short: "Classify light-curve CSV files and print the report as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, modelName, args, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "configs/config.yml", "path to the YAML config file")
	root.Flags().StringVarP(&modelName, "model", "m", "cnn", "model variant: cnn or cnn_lstm")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, modelName string, files []string, out io.Writer) error {
	// Fail on a bad variant before paying for model loading.
	if _, err := model.ParseVariant(modelName); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	loader, err := model.NewONNXLoader(cfg.ONNX())
	if err != nil {
		return err
	}
	defer loader.Close()

	registry, err := model.NewRegistry(loader, logger)
	if err != nil {
		return err
	}
	defer registry.Close()

	report, err := pipeline.New(registry, cfg.Pipeline.Workers, logger).Run(ctx, modelName, uploads(files))
	if err != nil {
		return err
	}

	if report.Summary.Failed > 0 {
		logger.Warn("Some files could not be classified", zap.Int("failed", report.Summary.Failed))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func uploads(files []string) []pipeline.Upload {
	out := make([]pipeline.Upload, 0, len(files))
	for _, path := range files {
		path := path
		out = append(out, pipeline.Upload{
			Filename: filepath.Base(path),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
		})
	}
	return out
}
