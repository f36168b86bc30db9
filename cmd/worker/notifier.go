package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmehdipour/rh-booking/internal/config"
	"github.com/jmehdipour/rh-booking/internal/db"
	"github.com/jmehdipour/rh-booking/internal/dispatcher"
	"github.com/jmehdipour/rh-booking/internal/kafka"
	"github.com/jmehdipour/rh-booking/internal/logger"
	"github.com/jmehdipour/rh-booking/internal/metrics"
	"github.com/jmehdipour/rh-booking/internal/repository"
	"github.com/jmehdipour/rh-booking/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Send booking confirmation SMS from booking.created events",
	RunE:  runNotifier,
}

func runNotifier(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connection (MySQL)
	dbx, err := db.NewMySQLConnection(cfg.MySQL)
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	// 3) providers → dispatcher
	provs := providersFrom(cfg.Providers)
	if len(provs) == 0 {
		return fmt.Errorf("no providers enabled in config")
	}
	disp := dispatcher.NewDispatcher(provs, cfg.Notifier.MaxRetryAttempts)

	// 4) kafka consumer
	kc := kafka.ConfigFrom(cfg.Kafka)
	consumer := kafka.NewConsumerFromConfig(kc)
	defer consumer.Close()

	w := worker.NewNotifier(dbx, consumer, repository.NewNotificationsRepository(), disp, log.Named("notifier"))

	// tune knobs
	if cfg.Notifier.WorkerCount > 0 {
		w.Workers = cfg.Notifier.WorkerCount
	}
	if cfg.Notifier.BatchSize > 0 {
		w.BatchSize = cfg.Notifier.BatchSize
	}
	if cfg.Notifier.BatchWait > 0 {
		w.BatchWait = cfg.Notifier.BatchWait
	}
	if cfg.Notifier.Template != "" {
		w.Template = cfg.Notifier.Template
	}

	// 5) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("notifier started",
		zap.String("topic", kc.Topic),
		zap.String("group", kc.GroupID),
		zap.Int("workers", w.Workers),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("batch_wait", w.BatchWait),
		zap.Int("providers", len(provs)),
	)

	return w.Run(ctx)
}

func providersFrom(pcs []config.ProviderConfig) []dispatcher.Provider {
	var provs []dispatcher.Provider
	for _, pc := range pcs {
		if !pc.Enabled || strings.TrimSpace(pc.BaseURL) == "" {
			continue
		}
		provs = append(provs,
			dispatcher.NewHTTPProvider(
				pc.Name,
				strings.TrimRight(pc.BaseURL, "/"),
				pc.SendPath,
				pc.TimeoutMs,
				pc.Breaker.FailThreshold,
				pc.Breaker.OpenForMs,
			),
		)
	}
	return provs
}
