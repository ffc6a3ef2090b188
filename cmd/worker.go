package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/supplychain/services/tracker/config"
	"example.com/supplychain/services/tracker/internal/cache"
	"example.com/supplychain/services/tracker/internal/database"
	"example.com/supplychain/services/tracker/internal/ledger"
	"example.com/supplychain/services/tracker/internal/messaging"
	"example.com/supplychain/services/tracker/internal/repository"
	"example.com/supplychain/services/tracker/internal/search"
	"example.com/supplychain/services/tracker/internal/service"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var reconcileInterval time.Duration

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background reconciliation worker",
	Long: `Starts the background worker that periodically reconciles stored
shipment statuses against the on-chain ledger.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().DurationVar(&reconcileInterval, "interval", 0, "Reconciliation interval (overrides config file)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	interval := cfg.Reconcile.Interval
	if reconcileInterval > 0 {
		interval = reconcileInterval
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	if cfg.Ledger.RPCURL == "" {
		return errors.New("worker requires a ledger RPC URL")
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warnf("Failed to initialize Redis cache, continuing without caching: %v", err)
		redisClient = nil
	}

	msgClient, err := messaging.NewServiceBusClient(cfg.ServiceBus, "tracker-worker")
	if err != nil {
		return errors.Wrap(err, "failed to connect to message broker")
	}
	defer msgClient.Close()

	var searchClient search.Client
	if cfg.Elastic.Enabled {
		searchClient, err = search.NewClient(cfg.Elastic)
		if err != nil {
			log.Warnf("Failed to initialize Elasticsearch client, continuing without search: %v", err)
			searchClient = nil
		}
	}

	repo := repository.NewRepository(db)

	svc, err := service.NewService(service.ServiceConfig{
		Repository:       repo,
		Cache:            redisClient,
		MessagingClient:  msgClient,
		SearchClient:     searchClient,
		LedgerReader:     ledger.NewClient(cfg.Ledger),
		Logger:           log,
		ReconcilePersist: cfg.Reconcile.Persist,
		ReconcileBatch:   cfg.Reconcile.BatchSize,
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize service")
	}

	// Start the reconciliation cron job
	g.Go(func() error {
		log.WithField("interval", interval.String()).Info("Starting ledger reconciliation job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				report, err := svc.ReconcileRecent(ctx)
				if err != nil {
					log.WithField("error", err.Error()).Error("Reconciliation run failed")
					return
				}
				log.WithFields(logrus.Fields{
					"checked":  report.Checked,
					"diverged": report.Diverged,
					"failed":   report.Failed,
					"skipped":  report.Skipped,
				}).Info("Reconciliation run complete")
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithField("error", err.Error()).Error("Worker error")
		return err
	}

	log.Info("Worker shutting down gracefully")
	return nil
}
