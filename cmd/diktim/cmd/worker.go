package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/queue"
)

var workerShutdownTimeout time.Duration

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued analysis jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the worker")
		}
		log := logging.NewLogger("Worker")

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Analyzer:          a.service,
			Results:           queue.NewRedisResultStore(a.redis, cfg.QueueName, queue.DefaultResultTTL),
			ProcessingTimeout: int64(cfg.ProcessingTimeout),
			ShutdownTimeout:   workerShutdownTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize queue consumer: %w", err)
		}

		if err := consumer.Start(cmd.Context()); err != nil {
			return err
		}
		log.Info("Worker ready", "stats", consumer.GetStatistics())

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		log.Info("Received signal, initiating graceful shutdown", "signal", sig.String())

		// One extra second lets asynq finish its own shutdown timeout first.
		stopCtx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout+time.Second)
		defer cancel()
		return consumer.Stop(stopCtx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().DurationVar(&workerShutdownTimeout, "shutdown-timeout", 10*time.Second, "time in-flight jobs get to finish on shutdown")
}
