package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hatcam/internal/platform/config"
	"hatcam/internal/platform/logger"
	"hatcam/internal/reconstruct"
	"hatcam/internal/storage"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile, output string
	flagSet := pflag.NewFlagSet("download", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.StringVarP(&output, "output", "o", "", "output file, overrides DOWNLOADED_VIDEO_NAME")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	_ = config.Load(envFile)
	cfg, err := config.LoadDownload()
	if err != nil {
		return err
	}
	if output != "" {
		cfg.OutputPath = output
	}

	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	res, err := reconstruct.Assemble(ctx, store, f, log)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	log.Info("download complete",
		"output", cfg.OutputPath,
		"objects", res.Objects,
		"bytes", res.Bytes,
	)
	return nil
}
