// Package config loads pipeline settings from defaults, an optional YAML
// file, COURSECRAWL_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (COURSECRAWL_FETCH_ENGINE, ...).
const EnvPrefix = "COURSECRAWL"

// Fetch engines.
const (
	EngineBrowser = "browser"
	EngineHTTP    = "http"
)

// Duplicate-label policies for the course extractor.
const (
	MatchFirst = "first"
	MatchLast  = "last"
)

// Description formats.
const (
	DescriptionText     = "text"
	DescriptionMarkdown = "markdown"
)

// Config is the full pipeline configuration.
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Files   FilesConfig   `mapstructure:"files"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Extract ExtractConfig `mapstructure:"extract"`
	Log     LogConfig     `mapstructure:"log"`
}

// CatalogConfig describes the target catalog edition.
type CatalogConfig struct {
	BaseURL           string   `mapstructure:"base_url"`
	ListingURLs       []string `mapstructure:"listing_urls"`
	ListingSubstring  string   `mapstructure:"listing_substring"`
	CoursePrefix      string   `mapstructure:"course_prefix"`
	CanonicalSuffix   string   `mapstructure:"canonical_suffix"`
	ExcludedSubstring string   `mapstructure:"excluded_substring"`
}

// FilesConfig holds the paths of the persisted stores.
type FilesConfig struct {
	Seeds    string `mapstructure:"seeds"`
	Listings string `mapstructure:"listings"`
	Courses  string `mapstructure:"courses"`
	Records  string `mapstructure:"records"`
	Failures string `mapstructure:"failures"`
}

// FetchConfig controls page fetching and politeness.
type FetchConfig struct {
	Engine         string        `mapstructure:"engine"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	UserAgent      string        `mapstructure:"user_agent"`
	RespectRobots  bool          `mapstructure:"respect_robots"`
	Headless       bool          `mapstructure:"headless"`
}

// ExtractConfig controls course-page parsing.
type ExtractConfig struct {
	MatchPolicy       string `mapstructure:"match_policy"`
	DescriptionFormat string `mapstructure:"description_format"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", "https://deanza.elumenapp.com/catalog/")
	v.SetDefault("catalog.listing_urls", []string{
		"https://deanza.elumenapp.com/catalog/2024-2025/course-listings#mainContent",
	})
	v.SetDefault("catalog.listing_substring", "courses")
	v.SetDefault("catalog.course_prefix", "2024-2025/course/")
	v.SetDefault("catalog.canonical_suffix", "courses")
	v.SetDefault("catalog.excluded_substring", "repeating")

	v.SetDefault("files.seeds", "seeds.txt")
	v.SetDefault("files.listings", "classlinks.txt")
	v.SetDefault("files.courses", "classlist.txt")
	v.SetDefault("files.records", "finalclassdata.txt")
	v.SetDefault("files.failures", "failed.txt")

	v.SetDefault("fetch.engine", EngineBrowser)
	v.SetDefault("fetch.settle_delay", 2*time.Second)
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.request_delay", time.Second)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.initial_backoff", time.Second)
	v.SetDefault("fetch.max_backoff", 10*time.Second)
	v.SetDefault("fetch.user_agent", "coursecrawl/1.0")
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("fetch.headless", true)

	v.SetDefault("extract.match_policy", MatchFirst)
	v.SetDefault("extract.description_format", DescriptionText)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// New returns a viper instance with defaults and environment binding applied.
// If cfgFile is empty, ./coursecrawl.yaml is read when present.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("coursecrawl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog.base_url is required")
	}
	switch c.Fetch.Engine {
	case EngineBrowser, EngineHTTP:
	default:
		return fmt.Errorf("fetch.engine must be %q or %q (got %q)", EngineBrowser, EngineHTTP, c.Fetch.Engine)
	}
	if c.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be positive")
	}
	if c.Fetch.MaxAttempts < 1 {
		return errors.New("fetch.max_attempts must be at least 1")
	}
	if c.Fetch.RequestDelay < 0 || c.Fetch.SettleDelay < 0 {
		return errors.New("fetch delays must not be negative")
	}
	switch c.Extract.MatchPolicy {
	case MatchFirst, MatchLast:
	default:
		return fmt.Errorf("extract.match_policy must be %q or %q (got %q)", MatchFirst, MatchLast, c.Extract.MatchPolicy)
	}
	switch c.Extract.DescriptionFormat {
	case DescriptionText, DescriptionMarkdown:
	default:
		return fmt.Errorf("extract.description_format must be %q or %q (got %q)",
			DescriptionText, DescriptionMarkdown, c.Extract.DescriptionFormat)
	}
	return nil
}
