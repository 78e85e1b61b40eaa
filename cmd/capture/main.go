package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hatcam/internal/camera"
	"hatcam/internal/diskspace"
	"hatcam/internal/pipeline"
	"hatcam/internal/platform/config"
	"hatcam/internal/platform/logger"
	"hatcam/internal/platform/metrics"
	"hatcam/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

const (
	shutdownTimeout = 10 * time.Second

	// syntheticBytesPerSecond is roughly what the encoder produces at the
	// default quality and 720p.
	syntheticBytesPerSecond = 50_000
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile string
	flagSet := pflag.NewFlagSet("capture", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	source := flagSet.String("source", "", "capture source, overrides CAPTURE_SOURCE (ffmpeg or synthetic)")
	backend := flagSet.String("backend", "", "storage backend, overrides STORAGE_BACKEND (azure, dir or memory)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// A missing .env file is fine, the environment may carry everything.
	_ = config.Load(envFile)

	cfg, err := config.LoadCaptureWith(config.CaptureOverrides{Source: *source, Backend: *backend})
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat).With(slog.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}
	backoff := pipeline.Backoff{Initial: cfg.RetryInitialDelay, Max: cfg.RetryMaxDelay}

	// Booting without network is normal; keep trying like uploads do.
	err = backoff.Retry(ctx, pipeline.Sleep, store.EnsureContainer, func(attempt int, delay time.Duration, err error) {
		log.Warn("container setup failed, retrying",
			"container", cfg.Storage.Container,
			"attempt", attempt,
			"delay", delay,
			"error", err)
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown before the container was ready")
			return nil
		}
		return fmt.Errorf("preparing container %s: %w", cfg.Storage.Container, err)
	}

	rec := newRecorder(cfg, log)
	met := metrics.New()
	svc := pipeline.NewService(pipeline.Config{
		Dir:             config.SegmentDir,
		Extension:       config.SegmentExtension,
		SegmentDuration: cfg.SegmentDuration,
		QueueSize:       cfg.QueueSize,
		Backoff:         backoff,
	}, rec, store, diskspace.Reporter{}, log, met)

	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = newStatusServer(cfg.StatusAddr, svc, log, met)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("status server error", "error", err)
				stop()
			}
		}()
	}

	log.Info("capture starting",
		"source", cfg.Source,
		"backend", cfg.Storage.Backend,
		"container", cfg.Storage.Container,
		"segment_duration", cfg.SegmentDuration,
		"quality", cfg.Quality,
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"status_addr", cfg.StatusAddr,
	)

	if err := svc.Run(ctx); err != nil {
		return err
	}

	log.Info("shutdown signal received")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}

	log.Info("capture stopped")
	return nil
}

func newRecorder(cfg config.Capture, log *slog.Logger) pipeline.Recorder {
	if cfg.Source == config.SourceSynthetic {
		return camera.NewSyntheticRecorder(syntheticBytesPerSecond)
	}
	return camera.NewFFmpegRecorder(camera.Settings{
		Device:   cfg.Device,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Quality:  cfg.Quality,
		Rotation: cfg.Rotation,
	}, log)
}

func newStatusServer(addr string, svc *pipeline.Service, log *slog.Logger, met *metrics.Metrics) *http.Server {
	h := pipeline.NewHandler(svc, log)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetQueueDepth(svc.QueueDepth()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	return &http.Server{Addr: addr, Handler: r}
}
