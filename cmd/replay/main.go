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
	"time"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/bns"
	"github.com/chainwatch/event-ingest/internal/clock"
	"github.com/chainwatch/event-ingest/internal/config"
	"github.com/chainwatch/event-ingest/internal/handler"
	"github.com/chainwatch/event-ingest/internal/queue"
	"github.com/chainwatch/event-ingest/internal/replay"
	"github.com/chainwatch/event-ingest/internal/store/postgres"
	"github.com/chainwatch/event-ingest/internal/transport"
)

type replayConfig struct {
	DatabaseURL      string `long:"database-url" env:"DATABASE_URL" description:"Postgres connection string" required:"true"`
	InFile           string `long:"in" env:"REPLAY_IN_FILE" description:"TSV export file to replay" required:"true"`
	Mode             string `long:"mode" description:"archival or pruned" default:"archival"`
	Force            bool   `long:"force" description:"bypass the non-empty-store safety check"`
	WipeDB           bool   `long:"wipe-db" description:"truncate the store before replaying"`
	RequestsPerSec   int    `long:"requests-per-sec" description:"replay POST throttle rate" default:"50"`
	BurnchainNetwork string `long:"burnchain-network" env:"STACKS_BURNCHAIN_NETWORK" default:"mainnet"`
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

	cfg := replayConfig{}
	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("replay failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg replayConfig, logger *zap.Logger) error {
	mode := replay.ReplayMode(cfg.Mode)
	if mode != replay.ReplayArchival && mode != replay.ReplayPruned {
		return fmt.Errorf("invalid --mode %q, want archival or pruned", cfg.Mode)
	}

	s, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer s.Close()

	if cfg.WipeDB {
		logger.Info("wiping store before replay")
		if err := s.WipeDB(ctx); err != nil {
			return fmt.Errorf("wipe db: %w", err)
		}
	}

	if !cfg.Force {
		empty, err := s.IsEmpty(ctx)
		if err != nil {
			return fmt.Errorf("check store emptiness: %w", err)
		}
		if !empty {
			return fmt.Errorf("store is not empty; pass --force or --wipe-db to replay anyway")
		}
	}

	in, err := os.Open(cfg.InFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.InFile, err)
	}
	defer in.Close()

	loopback, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("bind loopback listener: %w", err)
	}

	extractor, err := bns.NewExtractor()
	if err != nil {
		return fmt.Errorf("init bns extractor: %w", err)
	}

	burnchainCfg := config.Config{BurnchainNetwork: cfg.BurnchainNetwork}
	burnchainParams, err := burnchainCfg.BurnchainParams()
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
	srv := transport.New(loopback.Addr().String(), s, q, routes, logger)

	srvCtx, srvCancel := context.WithCancel(ctx)
	srvDone := make(chan error, 1)
	go func() {
		defer loopback.Close()
		srvDone <- srv.Serve(srvCtx, loopback)
	}()

	targetAddr := "http://" + loopback.Addr().String()
	waitForReady(ctx, targetAddr)

	replayErr := replay.Replay(ctx, in, replay.Config{
		TargetAddr:        targetAddr,
		Mode:              mode,
		Force:             cfg.Force,
		RequestsPerSecond: cfg.RequestsPerSec,
	}, logger)

	srvCancel()
	qCancel()
	<-srvDone
	<-qDone

	if replayErr != nil {
		return fmt.Errorf("replay: %w", replayErr)
	}

	if mode == replay.ReplayPruned {
		if err := s.PruneRawEventLog(ctx); err != nil {
			return fmt.Errorf("prune raw event log: %w", err)
		}
	}

	return nil
}

func waitForReady(ctx context.Context, addr string) {
	client := &http.Client{Timeout: time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(addr + "/")
		if err == nil {
			resp.Body.Close()
			return
		}
		if err := clock.SleepWithContext(ctx, 20*time.Millisecond); err != nil {
			return
		}
	}
}
