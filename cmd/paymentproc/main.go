// Command paymentproc runs the payment batch processor: the HTTP intake
// surface and the five pipeline workers, or a one-shot schema migration,
// grounded on the teacher's cmd/synnergy cobra root command.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"paymentproc/internal/basenode"
	"paymentproc/internal/config"
	"paymentproc/internal/fundsapi"
	"paymentproc/internal/httpapi"
	"paymentproc/internal/intake"
	"paymentproc/internal/observability"
	"paymentproc/internal/pii"
	"paymentproc/internal/signer"
	"paymentproc/internal/store"
	"paymentproc/internal/workers"
)

func main() {
	root := &cobra.Command{Use: "paymentproc"}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	if isatty.IsTerminal(os.Stdout.Fd()) {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func loadConfig(log *logrus.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	pii.Configure(cfg.RevealPII)
	return cfg
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the store schema",
		Run: func(cmd *cobra.Command, args []string) {
			log := newLogger()
			cfg := loadConfig(log)
			pg, err := store.Open(cfg.DatabaseURL)
			if err != nil {
				log.WithError(err).Fatal("open store")
			}
			defer pg.Close()
			if err := pg.Migrate(cmd.Context()); err != nil {
				log.WithError(err).Fatal("migrate")
			}
			log.Info("migration applied")
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP surface and the five pipeline workers",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	log := newLogger()
	cfg := loadConfig(log)

	pg, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer pg.Close()

	metrics := observability.New()
	fundsClient := fundsapi.New(cfg.FundsAPIURL)
	nodeClient := basenode.New(cfg.BaseNodeURL)
	sgn := signer.New(signer.Config{
		ExecutablePath: cfg.SignerExecutablePath,
		BasePath:       cfg.SignerBasePath,
		Network:        cfg.Network,
		Password:       cfg.SignerPassword,
	})

	intakeSvc := intake.New(pg, cfg.AccountExists, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batchCreator := workers.NewBatchCreator(pg, cfg.MaxBatchSize, metrics, log)
	unsignedTxCreator := workers.NewUnsignedTxCreator(pg, cfg, fundsClient, metrics, log)
	transactionSigner := workers.NewTransactionSigner(pg, sgn, metrics, log)
	broadcaster := workers.NewBroadcaster(pg, nodeClient, metrics, log)
	confirmationChecker := workers.NewConfirmationChecker(pg, nodeClient, cfg, metrics, log)

	go workers.Run(ctx, "batch_creator", cfg.Intervals.BatchCreator, log, metrics, batchCreator.Tick)
	go workers.Run(ctx, "unsigned_tx_creator", cfg.Intervals.UnsignedTxCreator, log, metrics, unsignedTxCreator.Tick)
	go workers.Run(ctx, "transaction_signer", cfg.Intervals.TransactionSigner, log, metrics, transactionSigner.Tick)
	go workers.Run(ctx, "broadcaster", cfg.Intervals.Broadcaster, log, metrics, broadcaster.Tick)
	go workers.Run(ctx, "confirmation_checker", cfg.Intervals.ConfirmationChecker, log, metrics, confirmationChecker.Tick)
	go metrics.RunStatusGaugeCollector(ctx, pg, 15*time.Second, log)

	handler := httpapi.NewRouter(intakeSvc, pg, cfg, metrics, log)
	srv := &http.Server{Addr: cfg.ListenAddress, Handler: handler}

	go func() {
		log.WithField("addr", cfg.ListenAddress).Info("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
}
