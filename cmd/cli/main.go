package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/channelwatch/internal/ai"
	"github.com/channelwatch/internal/config"
	"github.com/channelwatch/internal/ingest"
	"github.com/channelwatch/internal/models"
	"github.com/channelwatch/internal/pipeline"
	"github.com/channelwatch/internal/provider/builtin"
	"github.com/channelwatch/internal/queue"
	"github.com/channelwatch/internal/storage"
	"github.com/channelwatch/internal/storage/sqlite"
	"github.com/channelwatch/pkg/logger"
	"github.com/channelwatch/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "channelwatch",
		Short: "Operator CLI for the channelwatch pipeline",
		Long: `Manage collectors, sources, analysis requirements and inspect pipeline
output. The pipeline itself runs as the channelwatch-pipeline daemon.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(collectorsCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(requirementsCmd())
	rootCmd.AddCommand(contentCmd())
	rootCmd.AddCommand(resultsCmd())
	rootCmd.AddCommand(ingestCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// ============ COLLECTOR COMMANDS ============

func collectorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collectors",
		Short: "Collector commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered collectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			collectors, err := repo.ListCollectors(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("%-5s %-15s %-35s %s\n", "ID", "SHORT NAME", "LONG NAME", "ENABLED")
			for _, c := range collectors {
				fmt.Printf("%-5d %-15s %-35s %t\n", c.ID, c.ShortName, c.LongName, c.Enabled)
			}
			return nil
		},
	})

	return cmd
}

// ============ SOURCE COMMANDS ============

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Source commands",
	}

	cmd.AddCommand(sourcesListCmd())
	cmd.AddCommand(sourcesAddCmd())
	cmd.AddCommand(sourcesSetEnabledCmd("enable", true))
	cmd.AddCommand(sourcesSetEnabledCmd("disable", false))
	return cmd
}

func sourcesListCmd() *cobra.Command {
	var collectorName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.SourceFilter{}
			if collectorName != "" {
				collector, err := repo.GetCollectorByShortName(ctx, collectorName)
				if err != nil {
					return fmt.Errorf("unknown collector %q: %w", collectorName, err)
				}
				filter.CollectorID = &collector.ID
			}

			sources, err := repo.ListSources(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("%-5s %-12s %-30s %-25s %s\n", "ID", "COLLECTOR", "UID", "NAME", "ENABLED")
			for _, s := range sources {
				fmt.Printf("%-5d %-12d %-30s %-25s %t\n", s.ID, s.CollectorID, truncate(s.UID, 30), truncate(s.FriendlyName, 25), s.Enabled)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collectorName, "collector", "", "Filter by collector short name")
	return cmd
}

func sourcesAddCmd() *cobra.Command {
	var collectorName, uid, friendlyName string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a source under a collector",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			collector, err := repo.GetCollectorByShortName(ctx, collectorName)
			if err != nil {
				return fmt.Errorf("unknown collector %q: %w", collectorName, err)
			}

			svc := ingest.NewService(repo, nopDispatcher{}, log)
			source, err := svc.AddSource(ctx, collector.ID, uid, friendlyName)
			if err != nil {
				return err
			}

			fmt.Printf("Source %d registered (uid %s)\n", source.ID, source.UID)
			return nil
		},
	}

	cmd.Flags().StringVar(&collectorName, "collector", "", "Collector short name (required)")
	cmd.Flags().StringVar(&uid, "uid", "", "Source UID, unique per collector (required)")
	cmd.Flags().StringVar(&friendlyName, "name", "", "Friendly name")
	cmd.MarkFlagRequired("collector")
	cmd.MarkFlagRequired("uid")
	return cmd
}

func sourcesSetEnabledCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <source-id>",
		Short: use + " a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := repo.SetSourceEnabled(context.Background(), id, enabled); err != nil {
				return err
			}
			fmt.Printf("Source %d %sd\n", id, use)
			return nil
		},
	}
}

// ============ REQUIREMENT COMMANDS ============

func requirementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requirements",
		Short: "Analysis requirement commands",
	}

	cmd.AddCommand(requirementsListCmd())
	cmd.AddCommand(requirementsAddCmd())
	cmd.AddCommand(requirementsSetEnabledCmd("enable", true))
	cmd.AddCommand(requirementsSetEnabledCmd("disable", false))
	return cmd
}

func requirementsListCmd() *cobra.Command {
	var sourceID uint

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analysis requirements for a source",
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := repo.ListRequirements(context.Background(), sourceID)
			if err != nil {
				return err
			}

			fmt.Printf("%-5s %-20s %-12s %-40s %s\n", "ID", "NAME", "PROVIDER", "PROMPT", "ENABLED")
			for _, r := range reqs {
				providerID := r.LLMID
				if providerID == "" {
					providerID = cfg.Providers.Analysis + "*"
				}
				fmt.Printf("%-5d %-20s %-12s %-40s %t\n", r.ID, truncate(r.Name, 20), providerID, truncate(r.Prompt, 40), r.Enabled)
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&sourceID, "source-id", 0, "Source ID (required)")
	cmd.MarkFlagRequired("source-id")
	return cmd
}

func requirementsAddCmd() *cobra.Command {
	var sourceID uint
	var name, prompt, llmID string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an analysis requirement to a source",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if _, err := repo.GetSourceByID(ctx, sourceID); err != nil {
				return fmt.Errorf("unknown source %d: %w", sourceID, err)
			}

			req := &models.AnalysisRequirement{
				SourceID: sourceID,
				LLMID:    llmID,
				Name:     name,
				Prompt:   prompt,
				Enabled:  true,
			}
			if err := repo.CreateRequirement(ctx, req); err != nil {
				return err
			}

			fmt.Printf("Requirement %d added to source %d\n", req.ID, sourceID)
			return nil
		},
	}

	cmd.Flags().UintVar(&sourceID, "source-id", 0, "Source ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Requirement name (required)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Analysis prompt (required)")
	cmd.Flags().StringVar(&llmID, "provider", "", "Analysis provider identifier (default from config)")
	cmd.MarkFlagRequired("source-id")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("prompt")
	return cmd
}

func requirementsSetEnabledCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <requirement-id>",
		Short: use + " a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := repo.SetRequirementEnabled(context.Background(), id, enabled); err != nil {
				return err
			}
			fmt.Printf("Requirement %d %sd\n", id, use)
			return nil
		},
	}
}

// ============ CONTENT COMMANDS ============

func contentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Content commands",
	}

	cmd.AddCommand(contentListCmd())
	cmd.AddCommand(contentShowCmd())
	return cmd
}

func contentListCmd() *cobra.Command {
	var sourceID uint
	var pending bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.DefaultContentFilter()
			filter.Limit = limit
			if sourceID != 0 {
				filter.SourceID = &sourceID
			}
			if pending {
				analysed := false
				filter.Analysed = &analysed
			}

			items, err := repo.ListContent(context.Background(), filter)
			if err != nil {
				return err
			}

			fmt.Printf("%-6s %-8s %-12s %-10s %s\n", "ID", "SOURCE", "TRANSLATED", "ANALYSED", "TEXT")
			for _, c := range items {
				fmt.Printf("%-6d %-8d %-12t %-10t %s\n", c.ID, c.SourceID, c.Translated, c.Analysed, truncate(c.OriginalText, 60))
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&sourceID, "source-id", 0, "Filter by source ID")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only content not yet analysed")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows")
	return cmd
}

func contentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <content-id>",
		Short: "Show one content row with its analysis results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			content, err := repo.GetContentByID(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("Content %d (source %d)\n", content.ID, content.SourceID)
			fmt.Printf("Collected:  %s\n", content.CollectionTime.Format(time.RFC3339))
			fmt.Printf("Origin:     %s\n", content.OriginTime.Format(time.RFC3339))
			fmt.Printf("Translated: %t  Analysed: %t\n", content.Translated, content.Analysed)
			fmt.Printf("\n--- Original ---\n%s\n", content.OriginalText)
			if content.Translated {
				fmt.Printf("\n--- Translation ---\n%s\n", content.TranslatedText)
			}

			printResults(ctx, content.ID)
			return nil
		},
	}
}

// ============ RESULT COMMANDS ============

func resultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Analysis result commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <content-id>",
		Short: "List analysis results for a content row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			printResults(context.Background(), id)
			return nil
		},
	})

	return cmd
}

func printResults(ctx context.Context, contentID uint) {
	results, err := repo.ListResultsByContent(ctx, contentID)
	if err != nil {
		fmt.Printf("\nFailed to load results: %s\n", err)
		return
	}
	if len(results) == 0 {
		fmt.Printf("\nNo analysis results.\n")
		return
	}

	fmt.Printf("\n--- Results ---\n")
	for _, r := range results {
		output, _ := json.Marshal(r.Output)
		fmt.Printf("[req %d @ %s] %s\n", r.ReqID, r.AnalysisTime.Format(time.RFC3339), string(output))
	}
}

// ============ INGEST COMMAND ============

func ingestCmd() *cobra.Command {
	var collectorName, sourceUID, text string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest one item and run it through the pipeline in-process",
		Long: `Stores a single content item and processes it with an in-process worker,
using the configured providers. Useful for verifying provider credentials and
requirement prompts without the daemon.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), wait)
			defer cancel()

			collector, err := repo.GetCollectorByShortName(ctx, collectorName)
			if err != nil {
				return fmt.Errorf("unknown collector %q: %w", collectorName, err)
			}

			// Assemble a single-process pipeline on a local bus.
			limiter := ratelimit.NewDefaultLimiter()
			aiClient := ai.NewClient(cfg.Anthropic, limiter, log)
			translators, analysts := builtin.Registries(cfg, aiClient, limiter, log)

			wmLog := queue.NewWatermillLogger(log)
			bus := queue.NewBus(cfg.Queue, wmLog)
			defer bus.Close()

			dispatcher := queue.NewDispatcher(bus, log)
			translator := pipeline.NewTranslator(repo, translators, cfg.Providers.Translation, dispatcher, log)
			analyzer := pipeline.NewAnalyzer(repo, analysts, cfg.Providers.Analysis, log)

			worker, err := queue.NewWorker(bus, translator, analyzer, cfg.Queue, wmLog, log)
			if err != nil {
				return err
			}
			go worker.Run(ctx)
			<-worker.Running()

			svc := ingest.NewService(repo, dispatcher, log)
			contentID, err := svc.AddContent(ctx, ingest.AddContentInput{
				CollectorID: collector.ID,
				SourceUID:   sourceUID,
				OriginTime:  time.Now().UTC(),
				Text:        text,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Content %d stored, waiting for the pipeline...\n", contentID)

			// Poll until the analysed flag flips or the wait expires.
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return fmt.Errorf("timed out after %s waiting for analysis of content %d", wait, contentID)
				case <-ticker.C:
					content, err := repo.GetContentByID(ctx, contentID)
					if err != nil {
						return err
					}
					if content.Analysed {
						fmt.Printf("\n--- Translation ---\n%s\n", content.TranslatedText)
						printResults(ctx, contentID)
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&collectorName, "collector", "feeds", "Collector short name owning the source")
	cmd.Flags().StringVar(&sourceUID, "source-uid", "", "Source UID (required)")
	cmd.Flags().StringVar(&text, "text", "", "Content text (required)")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Minute, "How long to wait for the pipeline")
	cmd.MarkFlagRequired("source-uid")
	cmd.MarkFlagRequired("text")
	return cmd
}

// ============ HELPERS ============

// nopDispatcher satisfies the ingest dispatcher for commands that only
// register rows and never enqueue work.
type nopDispatcher struct{}

func (nopDispatcher) EnqueueTranslation(ctx context.Context, contentID uint) error { return nil }

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint(id), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
