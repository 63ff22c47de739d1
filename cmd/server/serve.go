package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/deepbark-api/internal/breeds"
	"github.com/Brownie44l1/deepbark-api/internal/handlers"
	"github.com/Brownie44l1/deepbark-api/internal/logging"
	"github.com/Brownie44l1/deepbark-api/internal/model"
	"github.com/Brownie44l1/deepbark-api/internal/storage"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		host      string
		port      int
		debug     bool
		uploadDir string
		backend   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the classifier web server",
		Long: `Starts the upload page and JSON API.

Uploaded images are stored in the configured backend and classified
with the loaded model.`,
		Example: `  # Start on the default port 5000
  deepbark serve

  # Custom port and model, CPU only
  deepbark serve --port 8080 --model models/b4.onnx --manifest models/b4.json --device cpu

  # Upload test
  curl -X POST -F "image=@dog.jpg" http://localhost:5000/classify`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			changed := cmd.Flags().Changed
			if changed("host") {
				cfg.Host = host
			}
			if changed("port") {
				cfg.Port = port
			}
			if changed("debug") {
				cfg.Debug = debug
			}
			if changed("upload-dir") {
				cfg.Storage.Local.Dir = uploadDir
			}
			if changed("storage") {
				cfg.Storage.Backend = backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.Debug); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			modelServer, err := model.NewServer(cfg.ModelOptions(breeds.Labels()))
			if err != nil {
				return err
			}
			defer modelServer.Close()

			store, err := storage.New(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			uploadsDir := ""
			if local, ok := store.(*storage.LocalStore); ok {
				uploadsDir = local.Dir()
			}

			handler := handlers.NewHandler(modelServer, store, handlers.Options{
				AllowedExtensions: cfg.Extensions(),
				MaxUploadBytes:    cfg.MaxUploadBytes,
				MaxImagePixels:    cfg.MaxImagePixels,
				Verbose:           cfg.Debug,
			})

			server := &http.Server{
				Addr:         cfg.Addr(),
				Handler:      handlers.WithMiddleware(handlers.NewRouter(handler, uploadsDir), cfg.Debug),
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
			}

			serverErr := make(chan error, 1)
			go func() {
				logrus.WithFields(logrus.Fields{
					"addr":    cfg.Addr(),
					"device":  modelServer.Device(),
					"storage": cfg.Storage.Backend,
				}).Info("Server starting")
				logrus.Info("Endpoints:")
				logrus.Info("  GET  /                 - Upload page")
				logrus.Info("  POST /classify         - Top 2 breeds for an image")
				logrus.Info("  POST /predict          - All breed probabilities")
				logrus.Info("  GET  /breeds           - Breed catalog")
				logrus.Info("  GET  /breeds/search    - Search breeds by name")
				logrus.Info("  GET  /health           - Health check")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				logrus.Info("Shutting down server...")
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
				defer cancelShutdown()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logrus.WithError(err).Error("Server shutdown failed")
					return err
				}
				logrus.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&host, "host", "", "address to bind")
	f.IntVarP(&port, "port", "p", 0, "port to listen on (default 5000)")
	f.BoolVar(&debug, "debug", false, "debug logging and detailed error messages")
	f.StringVar(&uploadDir, "upload-dir", "", "directory for uploaded images (default static/uploads)")
	f.StringVar(&backend, "storage", "", "upload storage backend: local or s3")

	return cmd
}
