package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/replay"
	"github.com/chainwatch/event-ingest/internal/store/postgres"
)

type exportConfig struct {
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Postgres connection string" required:"true"`
	OutFile     string `long:"out" env:"EXPORT_OUT_FILE" description:"path to write the TSV export to" required:"true"`
	Overwrite   bool   `long:"overwrite" description:"overwrite OutFile if it already exists"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg := exportConfig{}
	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("export failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg exportConfig, logger *zap.Logger) error {
	if _, err := os.Stat(cfg.OutFile); err == nil && !cfg.Overwrite {
		return fmt.Errorf("%s already exists; pass --overwrite to replace it", cfg.OutFile)
	}

	s, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer s.Close()

	f, err := os.Create(cfg.OutFile)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.OutFile, err)
	}
	defer f.Close()

	if err := replay.Export(ctx, s, f); err != nil {
		return fmt.Errorf("export raw event log: %w", err)
	}

	logger.Info("export complete", zap.String("file", cfg.OutFile))
	return nil
}
