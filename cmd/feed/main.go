package main

import (
	"context"
	"flag"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/citizenwallet/feed/internal/common"
	"github.com/citizenwallet/feed/internal/config"
	"github.com/citizenwallet/feed/internal/logging"
	"github.com/citizenwallet/feed/internal/metrics"
	"github.com/citizenwallet/feed/internal/services/db"
	"github.com/citizenwallet/feed/internal/services/indexerapi"
	"github.com/citizenwallet/feed/internal/services/webhook"
	"github.com/citizenwallet/feed/internal/sources"
	"github.com/citizenwallet/feed/pkg/feed"
	"github.com/citizenwallet/feed/pkg/indexer"
	"github.com/citizenwallet/feed/pkg/queue"
	"github.com/citizenwallet/feed/pkg/router"
	"github.com/citizenwallet/feed/pkg/store"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

func main() {
	log.Default().Println("launching feed...")

	env := flag.String("env", "", "path to .env file")

	confpath := flag.String("conf", ".", "folder containing community.json and sources.json")

	port := flag.Int("port", 0, "port to listen on (default: PORT from env)")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := config.New(ctx, *env, *confpath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(conf.LogLevel, conf.LogEncoding)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if conf.SentryURL != "" && conf.SentryURL != "x" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:              conf.SentryURL,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			logger.Fatal("sentry.Init", zap.Error(err))
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	wm := webhook.Combine(
		webhook.NewMessager(conf.DiscordURL, conf.Community.Community.Name, true),
		webhook.NewSentryMessager(nil),
	)

	token := conf.Community.Token

	logger.Info("starting store...", zap.String("token", token.Address), zap.String("account", conf.Account))

	st := store.New()
	if conf.Account != "" {
		st.SetAccount(common.ChecksumAddress(conf.Account))
	}

	unsubscribe := st.Subscribe(func(s store.State) {
		metrics.StoreTransfers.Set(float64(s.TotalTransfers))
	})
	defer unsubscribe()

	var idx feed.TransferIndexer
	switch conf.IndexerBackend {
	case config.IndexerBackendPostgres:
		logger.Info("connecting to indexer db...")

		dbconf, err := config.NewDBConfig(ctx)
		if err != nil {
			logger.Fatal("db config", zap.Error(err))
		}

		d, err := db.NewPostgresDB(ctx, big.NewInt(int64(conf.Community.Node.ChainID)), dbconf.DBUser, dbconf.DBPassword, dbconf.DBName, dbconf.DBHost, logger)
		if err != nil {
			logger.Fatal("db", zap.Error(err))
		}
		defer d.Close()

		idx = d
	default:
		logger.Info("using indexer api...", zap.String("url", conf.Community.Indexer.URL))

		idx = indexerapi.NewClient(conf.Community.Indexer.URL, conf.Community.Indexer.Key)
	}

	routes, err := sources.NewBuilder(conf, logger).Build()
	if err != nil {
		logger.Fatal("sources", zap.Error(err))
	}

	logger.Info("starting notification queue...")

	nq := queue.NewService("notifications", conf.NotificationRetries, conf.NotificationBuffer, ctx, wm)
	nq.SetLogger(logger)
	defer nq.Close()

	quitAck := make(chan error)

	go func() {
		quitAck <- nq.Start(queue.NewTransferNotifier(ctx, wm, token.Symbol, token.Decimals))
	}()

	e := feed.NewEngine(
		feed.NewIndexerSource("indexer", token.Address, idx),
		st,
		feed.WithRoutes(routes),
		feed.WithLogger(logger),
		feed.WithMessager(wm),
		feed.WithListenInterval(conf.ListenInterval),
		feed.WithFetchTimeout(conf.FetchTimeout),
		feed.WithOnNewTransfers(func(txs []*indexer.Transfer) {
			nq.Enqueue(*indexer.NewTransfersMsg(st.Account(), txs))
		}),
	)
	defer e.Close()

	logger.Info("starting sync...", zap.Time("from", conf.BackfillDate))

	runner := feed.NewRunner(e, conf.BackfillDate, logger)
	runner.Start(ctx)
	defer runner.Close()

	p := conf.Port
	if *port != 0 {
		p = *port
	}

	logger.Info("starting api service...")

	api := router.NewServer(conf.APIKey, token.Address, st, runner, e, logger)

	go func() {
		quitAck <- api.Start(p)
	}()

	logger.Info("listening", zap.Int("port", p))

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down...")
			return
		case err := <-quitAck:
			if err != nil && err != context.Canceled {
				logger.Fatal("service stopped", zap.Error(err))
			}
		}
	}
}
