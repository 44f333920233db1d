package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/bns"
	"github.com/chainwatch/event-ingest/internal/config"
	"github.com/chainwatch/event-ingest/internal/handler"
	"github.com/chainwatch/event-ingest/internal/queue"
	"github.com/chainwatch/event-ingest/internal/store/postgres"
	"github.com/chainwatch/event-ingest/internal/transport"
)

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

	cfg, err := config.Load(os.Args)
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("event server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting ingestion core", zap.String("mode", string(cfg.Mode())))

	s, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer s.Close()

	extractor, err := bns.NewExtractor()
	if err != nil {
		return fmt.Errorf("init bns extractor: %w", err)
	}

	burnchainParams, err := cfg.BurnchainParams()
	if err != nil {
		return fmt.Errorf("resolve burnchain network: %w", err)
	}

	q := queue.New(logger)
	qCtx, qCancel := context.WithCancel(ctx)
	defer qCancel()
	qDone := make(chan error, 1)
	go func() { qDone <- q.Run(qCtx) }()

	routes := transport.Routes{
		Block:       handler.NewBlockHandler(s, extractor, logger),
		Microblocks: handler.NewMicroblockHandler(s, extractor, logger),
		BurnBlock:   handler.NewBurnBlockHandler(s, burnchainParams, logger),
		MempoolNew:  handler.NewMempoolNewHandler(s, logger),
		MempoolDrop: handler.NewMempoolDropHandler(s, logger),
		Attachments: handler.NewAttachmentHandler(s, extractor, logger),
	}

	addr := net.JoinHostPort(cfg.EventHost, fmt.Sprintf("%d", cfg.EventPort))
	srv := transport.New(addr, s, q, routes, logger)

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	qCancel()
	if qErr := <-qDone; qErr != nil && !errors.Is(qErr, context.Canceled) {
		return fmt.Errorf("queue: %w", qErr)
	}
	return nil
}
