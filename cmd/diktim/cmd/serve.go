package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/queue"
	"github.com/adverant/nexus/diktim-ocr/internal/server"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the analysis API:
  POST /ocr/analyze     multipart image, expected_text, use_llm
  POST /ocr/jobs        same form, queued for the worker (needs REDIS_URL)
  GET  /ocr/jobs/{id}   job status and report
  GET  /health
  GET  /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logging.NewLogger("Serve")

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srvCfg := server.Config{
			MaxUploadMB: cfg.MaxUploadMB,
			Timeout:     time.Duration(cfg.ProcessingTimeout) * time.Millisecond,
			Version:     Version,
		}
		if a.corpusDB != nil {
			srvCfg.Corpus = a.corpusDB
		}
		if a.redis != nil {
			results := queue.NewRedisResultStore(a.redis, cfg.QueueName, queue.DefaultResultTTL)
			enq, err := queue.NewEnqueuer(cfg.RedisURL, queue.EnqueuerConfig{
				QueueName:         cfg.QueueName,
				Results:           results,
				ProcessingTimeout: int64(cfg.ProcessingTimeout),
			})
			if err != nil {
				return err
			}
			defer enq.Close()
			srvCfg.Jobs = enq
			srvCfg.Results = results
		}

		srv, err := server.NewServer(a.service, srvCfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		httpServer := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Info("Starting HTTP server", "addr", cfg.ListenAddr, "jobs", srvCfg.Jobs != nil)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			log.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			log.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", "error", err)
		}
		log.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
}
