// Package config loads and validates trend-aggregator configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Platform names accepted on the command line, in execution order.
const (
	PlatformReddit       = "reddit"
	PlatformHackerNews   = "hackernews"
	PlatformYouTube      = "youtube"
	PlatformCustomSearch = "customsearch"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging        LoggingConfig        `mapstructure:"logging"`
	Credentials    CredentialsConfig    `mapstructure:"credentials"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Catalog        CatalogConfig        `mapstructure:"catalog"`
	Collector      CollectorConfig      `mapstructure:"collector"`
	Reddit         RedditConfig         `mapstructure:"reddit"`
	HackerNews     HackerNewsConfig     `mapstructure:"hackernews"`
	YouTube        YouTubeConfig        `mapstructure:"youtube"`
	CustomSearch   CustomSearchConfig   `mapstructure:"customsearch"`
	KnowledgeGraph KnowledgeGraphConfig `mapstructure:"knowledgegraph"`
	NLP            NLPConfig            `mapstructure:"nlp"`
	PubSub         PubSubConfig         `mapstructure:"pubsub"`
	Archive        ArchiveConfig        `mapstructure:"archive"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// CredentialsConfig locates the base64 service-account blob and where to write it.
type CredentialsConfig struct {
	Encoded string `mapstructure:"encoded"`
	Path    string `mapstructure:"path"`
}

// HTTPConfig configures the shared outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// DatabaseConfig selects and configures the destination store.
type DatabaseConfig struct {
	Provider        string        `mapstructure:"provider"`
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	SupabaseURL     string        `mapstructure:"supabase_url"`
	SupabaseKey     string        `mapstructure:"supabase_key"`
}

// CatalogConfig maps human-readable names to destination identifiers.
type CatalogConfig struct {
	Platforms  map[string]string `mapstructure:"platforms"`
	Categories map[string]string `mapstructure:"categories"`
}

// CollectorConfig controls per-item processing.
type CollectorConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// RedditConfig holds the script-app credentials and listing options.
type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	UserAgent    string `mapstructure:"user_agent"`
	Subreddit    string `mapstructure:"subreddit"`
	Limit        int    `mapstructure:"limit"`
	TokenURL     string `mapstructure:"token_url"`
	APIBaseURL   string `mapstructure:"api_base_url"`
}

// HackerNewsConfig controls the Firebase API source.
type HackerNewsConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Limit   int    `mapstructure:"limit"`
}

// YouTubeConfig controls the mostPopular chart source.
type YouTubeConfig struct {
	APIKey     string `mapstructure:"api_key"`
	RegionCode string `mapstructure:"region_code"`
	MaxResults int64  `mapstructure:"max_results"`
	Endpoint   string `mapstructure:"endpoint"`
}

// CustomSearchConfig controls the Programmable Search source.
type CustomSearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	EngineID string `mapstructure:"engine_id"`
	Query    string `mapstructure:"query"`
	Pages    int    `mapstructure:"pages"`
	PageSize int64  `mapstructure:"page_size"`
	Endpoint string `mapstructure:"endpoint"`
}

// KnowledgeGraphConfig configures the Knowledge Graph Search API.
type KnowledgeGraphConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// NLPConfig configures the Cloud Natural Language client.
type NLPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// PubSubConfig enables per-row notifications when both fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ArchiveConfig enables per-run GCS snapshots when a bucket is set.
type ArchiveConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig enables a Pushgateway push at the end of a run.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	JobName        string `mapstructure:"job_name"`
}

// envAliases lets deployments keep the variable names they already export.
var envAliases = map[string][]string{
	"credentials.encoded":     {"GOOGLE_APPLICATION_CREDENTIALS_B64"},
	"database.dsn":            {"DATABASE_URL"},
	"database.supabase_url":   {"SUPABASE_URL"},
	"database.supabase_key":   {"SUPABASE_KEY"},
	"reddit.client_id":        {"REDDIT_CLIENT_ID"},
	"reddit.client_secret":    {"REDDIT_CLIENT_SECRET"},
	"reddit.user_agent":       {"REDDIT_USER_AGENT"},
	"youtube.api_key":         {"YOUTUBE_API_KEY"},
	"customsearch.api_key":    {"GOOGLE_CSE_API_KEY"},
	"customsearch.engine_id":  {"GOOGLE_CSE_ID"},
	"knowledgegraph.api_key":  {"GOOGLE_KG_API_KEY"},
	"metrics.pushgateway_url": {"PUSHGATEWAY_URL"},
}

// Load reads .env, the optional config file and the environment into a Config.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TRENDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnvAliases(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func bindEnvAliases(v *viper.Viper) error {
	for key, aliases := range envAliases {
		prefixed := "TRENDS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		names := append([]string{key, prefixed}, aliases...)
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("credentials.encoded", "")
	v.SetDefault("credentials.path", "/app/trend-aggregator-cloud-natural-language.json")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "trend-aggregator/1.0")
	v.SetDefault("http.rate_limit_rps", 0)
	v.SetDefault("http.rate_limit_burst", 1)
	v.SetDefault("database.provider", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", "hot_trends")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.supabase_url", "")
	v.SetDefault("database.supabase_key", "")
	v.SetDefault("catalog.platforms", map[string]any{
		"product hunt":         "1702afc5-9c21-47e8-9ca3-d7f1ae2a61e7",
		"youtube":              "6ef10c55-2825-4458-9f64-5c3899bc3023",
		"hacker news":          "b73cdd80-e499-478f-9a7a-d3eedfb0847a",
		"reddit":               "cc4fab21-1725-4ebd-b9f2-e0a326c8d099",
		"google custom search": "f4d7b076-70be-4157-bf57-a841dbedd44b",
	})
	v.SetDefault("catalog.categories", map[string]any{
		"ai":            "15926262-9bb5-40b8-b572-e8dfe3553f0d",
		"tech":          "4136b324-1f92-467a-8bcc-7f01926e2b6b",
		"entertainment": "503f42bc-4fc9-49b1-9d86-a3e16e13a59b",
		"finance":       "b35e3978-8e24-4e0c-b427-ae732eacc560",
		// Must be backfilled with the destination's current Other UUID.
		"other": "REPLACE_WITH_OTHER_CATEGORY_UUID",
	})
	v.SetDefault("collector.concurrency", 1)
	v.SetDefault("reddit.client_id", "")
	v.SetDefault("reddit.client_secret", "")
	v.SetDefault("reddit.user_agent", "")
	v.SetDefault("reddit.subreddit", "news")
	v.SetDefault("reddit.limit", 50)
	v.SetDefault("reddit.token_url", "https://www.reddit.com/api/v1/access_token")
	v.SetDefault("reddit.api_base_url", "https://oauth.reddit.com")
	v.SetDefault("hackernews.base_url", "https://hacker-news.firebaseio.com/v0")
	v.SetDefault("hackernews.limit", 50)
	v.SetDefault("youtube.api_key", "")
	v.SetDefault("youtube.region_code", "HK")
	v.SetDefault("youtube.max_results", 50)
	v.SetDefault("youtube.endpoint", "")
	v.SetDefault("customsearch.api_key", "")
	v.SetDefault("customsearch.engine_id", "")
	v.SetDefault("customsearch.query", "AI")
	v.SetDefault("customsearch.pages", 5)
	v.SetDefault("customsearch.page_size", 10)
	v.SetDefault("customsearch.endpoint", "")
	v.SetDefault("knowledgegraph.api_key", "")
	v.SetDefault("knowledgegraph.endpoint", "")
	v.SetDefault("nlp.enabled", true)
	v.SetDefault("nlp.endpoint", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_id", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.prefix", "snapshots")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job_name", "trend_aggregator")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("http.rate_limit_rps must be >= 0")
	}
	if c.Collector.Concurrency <= 0 {
		return fmt.Errorf("collector.concurrency must be > 0")
	}
	switch c.Database.Provider {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.provider is postgres")
		}
	case "supabase":
		if c.Database.SupabaseURL == "" || c.Database.SupabaseKey == "" {
			return fmt.Errorf("database.supabase_url and database.supabase_key must be set when database.provider is supabase")
		}
	case "noop":
	default:
		return fmt.Errorf("database.provider %q is not one of postgres, supabase, noop", c.Database.Provider)
	}
	if c.Database.MaxConnLifetime < 0 {
		return fmt.Errorf("database.max_conn_lifetime must be >= 0")
	}
	if c.Reddit.Limit <= 0 || c.Reddit.Limit > 100 {
		return fmt.Errorf("reddit.limit must be between 1 and 100")
	}
	if c.HackerNews.Limit <= 0 {
		return fmt.Errorf("hackernews.limit must be > 0")
	}
	if c.YouTube.MaxResults <= 0 || c.YouTube.MaxResults > 50 {
		return fmt.Errorf("youtube.max_results must be between 1 and 50")
	}
	if c.CustomSearch.PageSize <= 0 || c.CustomSearch.PageSize > 10 {
		return fmt.Errorf("customsearch.page_size must be between 1 and 10")
	}
	// The API refuses start+num beyond 100.
	if c.CustomSearch.Pages <= 0 || int64(c.CustomSearch.Pages)*c.CustomSearch.PageSize > 100 {
		return fmt.Errorf("customsearch.pages must be > 0 and pages*page_size must be <= 100")
	}
	return nil
}

// ValidatePlatform checks the credentials a selected platform needs.
func (c Config) ValidatePlatform(name string) error {
	switch name {
	case PlatformReddit:
		if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
			return fmt.Errorf("reddit.client_id and reddit.client_secret must be set")
		}
		if c.Reddit.UserAgent == "" {
			return fmt.Errorf("reddit.user_agent must be set")
		}
	case PlatformHackerNews:
	case PlatformYouTube:
		if c.YouTube.APIKey == "" {
			return fmt.Errorf("youtube.api_key must be set")
		}
	case PlatformCustomSearch:
		if c.CustomSearch.APIKey == "" || c.CustomSearch.EngineID == "" {
			return fmt.Errorf("customsearch.api_key and customsearch.engine_id must be set")
		}
	default:
		return fmt.Errorf("unknown platform %q", name)
	}
	return nil
}

// Timeout converts the HTTP timeout into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
