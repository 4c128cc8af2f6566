package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/tip-ledger/consumer"
	"github.com/babylonlabs-io/tip-ledger/internal/api"
	"github.com/babylonlabs-io/tip-ledger/internal/bank"
	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/tip-ledger/internal/observability/tracing"
	"github.com/babylonlabs-io/tip-ledger/internal/queue"
	"github.com/babylonlabs-io/tip-ledger/internal/scores"
	"github.com/babylonlabs-io/tip-ledger/internal/services"
)

const shutdownTimeout = 15 * time.Second

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the tip ledger server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	dbClient, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error while opening the ledger store")
	}
	defer closeStore()

	rejected, err := cfg.Ledger.RejectedAddresses()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ledger configuration")
	}

	var queueConsumer consumer.EventConsumer
	if cfg.Queue != nil {
		// Create a basic zap logger
		zapLogger, err := zap.NewProduction()
		if err != nil {
			log.Fatal().Err(err).Msg("error while creating zap logger")
		}
		defer func() {
			_ = zapLogger.Sync()
		}()

		queueManager, err := queue.NewQueueManager(cfg.Queue, zapLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize event consumer")
		}
		if err := queueManager.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to the event queue")
		}
		defer queueManager.Shutdown()
		queueConsumer = queueManager
	} else {
		log.Warn().Msg("No queue configured, ledger events are only kept in the store")
	}

	service := services.NewService(cfg, dbClient, queueConsumer, scores.NewFromConfig(cfg.Scores))
	if err := service.InitLedger(ctx, bank.NewStoreBank(dbClient, rejected...)); err != nil {
		log.Fatal().Err(err).Msg("error while initializing the ledger")
	}

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	service.StartLedgerSync(ctx)

	server := api.NewServer(&cfg.Server, service)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Stop(shutdownCtx)
}
