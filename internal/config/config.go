package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Search  SearchConfig  `mapstructure:"search"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// OpenAIConfig points at any Chat Completions compatible endpoint.
type OpenAIConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SummaryModel string `mapstructure:"summary_model"` // cheaper model used for history summaries
	Timeout      int    `mapstructure:"timeout"`
}

// ScraperConfig configures the reader-style scrape endpoint and its page cache.
type ScraperConfig struct {
	ReaderBaseURL string `mapstructure:"reader_base_url"`
	Timeout       int    `mapstructure:"timeout"`
	CachePath     string `mapstructure:"cache_path"` // empty disables the cache
}

// SearchConfig configures the Firecrawl search backend.
type SearchConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"`
	MaxResults int    `mapstructure:"max_results"`
}

// AgentConfig carries the conversation-loop tuning knobs. The compaction
// thresholds and retention window are externally observable behavior, so they
// live here instead of as hard-coded constants.
type AgentConfig struct {
	MaxMessages       int `mapstructure:"max_messages"`        // compaction trigger: message count
	MaxHistoryTokens  int `mapstructure:"max_history_tokens"`  // compaction trigger: estimated tokens
	RetainRecent      int `mapstructure:"retain_recent"`       // messages kept verbatim after compaction
	MaxAttempts       int `mapstructure:"max_attempts"`        // chat request attempts before giving up
	BackoffMaxSeconds int `mapstructure:"backoff_max_seconds"` // cap on the randomized exponential backoff
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(cfgFile string) *Config {
	// Load .env file if exists (ignore error if not found)
	godotenv.Load()
	godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	// Configure environment variable handling
	// Replace . with _ for nested config keys
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ES")
	v.AutomaticEnv()

	// Credentials are conventionally exported under their provider names
	v.BindEnv("openai.api_key", "ES_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("openai.base_url", "ES_OPENAI_BASE_URL", "OPENAI_BASE_URL")
	v.BindEnv("search.api_key", "ES_SEARCH_API_KEY", "FIRECRAWL_API_KEY")

	// Read config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is ok, use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic("Error reading config file: " + err.Error())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic("Error unmarshaling config: " + err.Error())
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Model defaults
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.summary_model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 300)

	// Scraper defaults
	v.SetDefault("scraper.reader_base_url", "https://r.jina.ai")
	v.SetDefault("scraper.timeout", 30)
	v.SetDefault("scraper.cache_path", "./data/pages.db")

	// Search defaults
	v.SetDefault("search.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("search.timeout", 30)
	v.SetDefault("search.max_results", 5)

	// Agent defaults
	v.SetDefault("agent.max_messages", 24)
	v.SetDefault("agent.max_history_tokens", 10000)
	v.SetDefault("agent.retain_recent", 12)
	v.SetDefault("agent.max_attempts", 3)
	v.SetDefault("agent.backoff_max_seconds", 40)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
