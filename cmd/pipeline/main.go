package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/channelwatch/internal/ai"
	"github.com/channelwatch/internal/config"
	"github.com/channelwatch/internal/ingest"
	"github.com/channelwatch/internal/ingest/feeds"
	"github.com/channelwatch/internal/pipeline"
	"github.com/channelwatch/internal/provider/builtin"
	"github.com/channelwatch/internal/queue"
	"github.com/channelwatch/internal/storage/sqlite"
	"github.com/channelwatch/pkg/logger"
	"github.com/channelwatch/pkg/ratelimit"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "channelwatch-pipeline",
		Short: "Content enrichment pipeline daemon",
		Long: `Runs the channelwatch pipeline: collectors ingest content from monitored
origins, the translation stage renders it into English, and the analysis
stage runs every enabled requirement against it.`,
		RunE: runPipeline,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting channelwatch pipeline")

	// Initialize storage
	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize rate limiter
	limiter := newLimiter(cfg)

	// Initialize providers
	aiClient := ai.NewClient(cfg.Anthropic, limiter, log)
	translators, analysts := builtin.Registries(cfg, aiClient, limiter, log)

	// Initialize task bus and stages
	wmLog := queue.NewWatermillLogger(log)
	bus := queue.NewBus(cfg.Queue, wmLog)
	defer bus.Close()

	dispatcher := queue.NewDispatcher(bus, log)
	translator := pipeline.NewTranslator(repo, translators, cfg.Providers.Translation, dispatcher, log)
	analyzer := pipeline.NewAnalyzer(repo, analysts, cfg.Providers.Analysis, log)

	worker, err := queue.NewWorker(bus, translator, analyzer, cfg.Queue, wmLog, log)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(ctx)
	}()

	// The bus drops tasks published before the handlers subscribe; hold the
	// collectors back until the router reports running.
	select {
	case <-worker.Running():
	case err := <-workerDone:
		return fmt.Errorf("worker failed to start: %w", err)
	}

	// Initialize collectors
	svc := ingest.NewService(repo, dispatcher, log)

	var connectors []ingest.Connector
	if cfg.Feeds.Enabled {
		connectors = append(connectors, feeds.New(svc, cfg.Feeds, limiter, log))
	}
	if len(connectors) == 0 {
		log.Warn().Msg("No collectors enabled, processing queued tasks only")
	}

	runnerDone := make(chan struct{})
	go func() {
		ingest.NewRunner(connectors, log).Run(ctx)
		close(runnerDone)
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	<-runnerDone
	if err := <-workerDone; err != nil {
		return fmt.Errorf("worker stopped with error: %w", err)
	}

	log.Info().Msg("Goodbye")
	return nil
}

// newLimiter builds the shared rate limiter from configuration
func newLimiter(cfg *config.Config) *ratelimit.MultiLimiter {
	limiter := ratelimit.NewMultiLimiter()
	limiter.AddLimiter(ratelimit.LimiterAnthropic, float64(cfg.RateLimit.AnthropicRequestsPerMinute)/60, 2)
	limiter.AddLimiter(ratelimit.LimiterDeepL, float64(cfg.RateLimit.DeepLRequestsPerMinute)/60, 2)
	limiter.AddLimiter(ratelimit.LimiterFeeds, float64(cfg.RateLimit.FeedRequestsPerSecond), 10)
	return limiter
}
