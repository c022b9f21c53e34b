package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brownie44l1/exoplanet-api/internal/config"
	"github.com/Brownie44l1/exoplanet-api/internal/handlers"
	"github.com/Brownie44l1/exoplanet-api/internal/logging"
	"github.com/Brownie44l1/exoplanet-api/internal/model"
	"github.com/Brownie44l1/exoplanet-api/internal/pipeline"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "server",
		Short:         "Serve exoplanet transit predictions over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := chdirProjectRoot(); err != nil {
				return err
			}
			return run(configPath, shutdownSignal())
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "configs/config.yml", "path to the YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// chdirProjectRoot makes relative model paths resolve from the project
// root, also when started from cmd/server.
func chdirProjectRoot() error {
	if wd, err := os.Getwd(); err == nil && filepath.Base(wd) == "server" {
		if err := os.Chdir(filepath.Join(wd, "../..")); err != nil {
			return fmt.Errorf("failed to change to project root: %w", err)
		}
	}
	return nil
}

func shutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

// run serves until quit fires or the listener fails. Startup failures are
// returned so deferred cleanup runs before the process exits.
func run(configPath string, quit <-chan os.Signal) error {
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
		return fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	defer loader.Close()

	registry, err := model.NewRegistry(loader, logger)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}
	defer registry.Close()

	p := pipeline.New(registry, cfg.Pipeline.Workers, logger)
	handler := handlers.NewHandler(p, registry, cfg.Server.MaxUploadMB, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("workers", cfg.Pipeline.Workers),
		zap.Stringers("models", registry.Variants()))
	logger.Info("Endpoints",
		zap.Strings("routes", []string{
			"GET /health",
			"GET /models",
			"POST /predict (multipart: file, model)",
			"POST /predict/raw (json: model, flux)",
		}))

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
