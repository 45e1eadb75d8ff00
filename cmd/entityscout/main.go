package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/entityscout/entityscout/internal/agent"
	"github.com/entityscout/entityscout/internal/chat"
	"github.com/entityscout/entityscout/internal/config"
	"github.com/entityscout/entityscout/internal/facts"
	"github.com/entityscout/entityscout/internal/research"
	"github.com/entityscout/entityscout/internal/scrape"
	"github.com/entityscout/entityscout/internal/search"
	"github.com/entityscout/entityscout/internal/storage"
	"github.com/entityscout/entityscout/pkg/logger"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
)

var (
	cfgFile    string
	entityName string
	website    string
	dataPoints []string
	logLevel   string
	showVer    bool
)

// defaultDataPoints are researched when none are passed on the command line.
var defaultDataPoints = []string{
	"company_name", "company_description", "company_location",
	"company_founded", "company_founder", "company_investors",
	"company_revenue", "company_industry", "company_contact",
	"company_board_members",
}

var rootCmd = &cobra.Command{
	Use:   "entityscout",
	Short: "Autonomous research agent for named entities",
	Long: `entityscout researches a named entity by driving a language model
through scrape and search tools until the requested data points are
found. With --website it first scans the entity's own site, then falls
back to the open web.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVer {
			fmt.Printf("entityscout %s (built %s)\n", Version, BuildDate)
			return
		}
		if entityName == "" {
			fmt.Fprintln(os.Stderr, "error: --entity is required")
			os.Exit(1)
		}

		cfg := config.Load(cfgFile)
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		defer logger.Sync()

		traceID := uuid.NewString()
		log := logger.WithTraceID(traceID)
		log.Info("starting research",
			zap.String("version", Version),
			zap.String("entity", entityName),
			zap.String("website", website),
		)

		run(cfg, log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&entityName, "entity", "e", "", "name of the entity to research")
	rootCmd.PersistentFlags().StringVarP(&website, "website", "w", "", "seed website to scan first (optional)")
	rootCmd.PersistentFlags().StringArrayVarP(&dataPoints, "data-point", "d", nil, "data point to research (repeatable)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.Flags().BoolVarP(&showVer, "version", "v", false, "show version")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	names := dataPoints
	if len(names) == 0 {
		names = defaultDataPoints
	}
	store := facts.NewStore(names)

	var cache *storage.PageCache
	if cfg.Scraper.CachePath != "" {
		var err error
		cache, err = storage.NewPageCache(cfg.Scraper.CachePath)
		if err != nil {
			log.Warn("page cache unavailable, scraping without cache", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	chatClient := chat.New(cfg.OpenAI, cfg.Agent)
	scraper := scrape.NewReader(cfg.Scraper, cache)
	searcher := search.NewFirecrawl(cfg.Search)

	registry := agent.NewRegistry()
	toolset := research.NewToolset(store, scraper, searcher, chatClient, cfg.OpenAI.Model)
	if err := toolset.Register(registry); err != nil {
		log.Error("tool registration failed", zap.Error(err))
		os.Exit(1)
	}

	compactor := agent.NewCompactor(chatClient, cfg.OpenAI.Model, cfg.OpenAI.SummaryModel, cfg.Agent)
	researcher := agent.New(chatClient, registry, compactor, store)

	if website != "" {
		answer, err := researcher.WebsiteSearch(ctx, entityName, website)
		if err != nil {
			log.Warn("website search ended without a result", zap.Error(err))
		} else {
			log.Info("website search finished", zap.String("answer", answer))
		}
	}

	if len(store.PendingNames()) > 0 {
		answer, err := researcher.InternetSearch(ctx, entityName)
		if err != nil {
			log.Warn("internet search ended without a result", zap.Error(err))
		} else {
			log.Info("internet search finished", zap.String("answer", answer))
		}
	}

	report(store)
}

func report(store *facts.Store) {
	fmt.Println("Data points found:")
	for _, dp := range store.All() {
		value := dp.Value
		if value == "" {
			value = "(not found)"
		}
		if dp.Reference != "" {
			fmt.Printf("  %s: %s (%s)\n", dp.Name, value, dp.Reference)
		} else {
			fmt.Printf("  %s: %s\n", dp.Name, value)
		}
	}
}
