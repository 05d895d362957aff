// Command readwatch is a headless conversation viewer. It polls one
// conversation and treats every message as fully on screen, so incoming
// messages are confirmed through the same dwell and batching rules a UI uses.
//
// READWATCH_TOKEN holds the viewer's bearer token, READWATCH_VIEWER the
// viewer's user id and READWATCH_PEER the other participant.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/config"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/readreceipt"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/utils"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger, err := utils.NewLogger(cfg.App.Development())
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	token, viewer, peer := os.Getenv("READWATCH_TOKEN"), os.Getenv("READWATCH_VIEWER"), os.Getenv("READWATCH_PEER")
	if token == "" || viewer == "" || peer == "" {
		logger.Fatal("READWATCH_TOKEN, READWATCH_VIEWER and READWATCH_PEER must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := readreceipt.NewHTTPClient(cfg.ReadReceipt.BaseURL, token, cfg.ReadReceipt.RequestsPerSec, 10*time.Second)
	sess, err := readreceipt.NewSession(viewer, client, readreceipt.Config{
		VisibleThreshold: cfg.ReadReceipt.VisibleThreshold,
		Dwell:            cfg.Dwell,
		FlushInterval:    cfg.FlushInterval,
		MaxRetries:       cfg.ReadReceipt.MaxRetries,
	}, logger)
	if err != nil {
		logger.Fatalw("session init", "err", err)
	}
	sess.Start(ctx)

	fetch := func(ctx context.Context) ([]readreceipt.Message, error) {
		msgs, err := client.FetchConversation(ctx, peer)
		if err != nil {
			return nil, err
		}
		// new entries must be tracked before visibility is reported
		sess.Track(msgs)
		for _, m := range msgs {
			sess.SetVisibility(m.Address, 1)
		}
		return msgs, nil
	}
	logger.Infow("watching conversation", "viewer", viewer, "peer", peer)
	sess.Poll(ctx, cfg.PollInterval, fetch)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		logger.Warnw("final flush", "err", err)
	}
}
