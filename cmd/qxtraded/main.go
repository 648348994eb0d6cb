package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"qxtrade/params"
	"qxtrade/pkg/engine"
	"qxtrade/pkg/gateway"
	"qxtrade/pkg/journal"
	"qxtrade/pkg/ledger"
	"qxtrade/pkg/qx"
	"qxtrade/pkg/util"
	"qxtrade/pkg/wallet"
)

func main() {
	cfg := params.LoadFromEnv("")

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/qxtraded.log"
	}
	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("starting",
		"ledger", cfg.Ledger.BaseURL,
		"api", cfg.Ledger.APIURL,
		"tick_offset", cfg.Trading.TickOffset,
		"poll_interval", cfg.Trading.PollInterval)

	registry := qx.DefaultRegistry()
	client := ledger.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.APIURL, cfg.Ledger.HTTPTimeout)

	opts := []engine.Option{}
	var jr gateway.JournalReader
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			sugar.Fatalw("journal open failed", "path", cfg.JournalPath, "err", err)
		}
		defer j.Close()
		opts = append(opts, engine.WithJournal(j))
		jr = j
	}

	// Signing and key derivation live in an external crypto module,
	// wired in via engine.WithSigner and the gateway's KeyDeriver.
	// None is built into this binary, so it serves read paths only.
	var deriver wallet.KeyDeriver
	sugar.Warnw("no signer configured, order submission disabled")

	eng := engine.New(cfg.Trading, registry, client, sugar, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Watch-only mode: observe an account without its seed.
	if identity := os.Getenv("WATCH_IDENTITY"); identity != "" {
		eng.Watch(ctx, identity)
	}

	poller := engine.NewPoller(eng, cfg.Trading.PollInterval, util.RealClock{}, sugar)
	go poller.Run(ctx)

	srv := gateway.NewServer(eng, registry, deriver, jr, poller)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Gateway.ListenAddr) }()

	select {
	case <-ctx.Done():
		sugar.Infow("shutting down")
	case err := <-errCh:
		sugar.Fatalw("gateway failed", "err", err)
	}
}
