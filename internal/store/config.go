package store

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type LexiconGroup struct {
	Name   string   `yaml:"name"`
	Weight float64  `yaml:"weight"`
	Terms  []string `yaml:"terms"`
}

type WebSource struct {
	Name        string `yaml:"name"`
	Platform    string `yaml:"platform"`
	URLTemplate string `yaml:"url_template"` // "{query}" is replaced with the escaped search term
	Container   string `yaml:"container"`
	Text        string `yaml:"text"`
	PublishedAt string `yaml:"published_at"`
	DateLayout  string `yaml:"date_layout"`
}

type WatchItem struct {
	Product  string `yaml:"product"`
	Brand    string `yaml:"brand"`
	Platform string `yaml:"platform"`
}

type Config struct {
	Mode   string `yaml:"mode"`
	Server struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Sentiment struct {
		PositiveThreshold float64        `yaml:"positive_threshold"`
		NegativeThreshold float64        `yaml:"negative_threshold"`
		Lexicon           []LexiconGroup `yaml:"lexicon"`
	} `yaml:"sentiment"`
	Ingestion struct {
		Enabled      bool `yaml:"enabled"`
		CacheMinutes int  `yaml:"cache_minutes"`
		YouTube      struct {
			BaseURL        string `yaml:"base_url"`
			APIKeyEnv      string `yaml:"api_key_env"`
			MaxVideos      int    `yaml:"max_videos"`
			MaxComments    int    `yaml:"max_comments"`
			TimeoutSeconds int    `yaml:"timeout_seconds"`
			RequestsPerSec int    `yaml:"requests_per_sec"`
		} `yaml:"youtube"`
		Web struct {
			TimeoutSeconds int         `yaml:"timeout_seconds"`
			MaxComments    int         `yaml:"max_comments"`
			Sources        []WebSource `yaml:"sources"`
		} `yaml:"web"`
	} `yaml:"ingestion"`
	Scheduler struct {
		Schedule   string      `yaml:"schedule"`
		WindowDays int         `yaml:"window_days"`
		Watchlist  []WatchItem `yaml:"watchlist"`
	} `yaml:"scheduler"`
	Seed struct {
		Enabled  bool        `yaml:"enabled"`
		Days     int         `yaml:"days"`
		Products []WatchItem `yaml:"products"`
	} `yaml:"seed"`
}

// DefaultLexicon is the built-in positive/negative term table.
func DefaultLexicon() []LexiconGroup {
	return []LexiconGroup{
		{Name: "positive", Weight: 0.6, Terms: []string{"love", "great", "good", "awesome", "amazing"}},
		{Name: "negative", Weight: -0.7, Terms: []string{"bad", "terrible", "hate", "bug", "issue", "slow"}},
	}
}

// DefaultConfig returns a configuration usable without any file on disk.
func DefaultConfig() *Config {
	c := newConfig()
	c.applyDefaults()
	return &c
}

// newConfig presets fields whose zero value is a valid setting. YAML only
// overwrites keys that are present, so an explicit 0 survives loading.
func newConfig() Config {
	var c Config
	c.Sentiment.PositiveThreshold = 0.2
	c.Sentiment.NegativeThreshold = -0.2
	return c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DEV"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "salesrisk.db"
	}
	if len(c.Sentiment.Lexicon) == 0 {
		c.Sentiment.Lexicon = DefaultLexicon()
	}
	if c.Ingestion.CacheMinutes == 0 {
		c.Ingestion.CacheMinutes = 60
	}
	yt := &c.Ingestion.YouTube
	if yt.BaseURL == "" {
		yt.BaseURL = "https://www.googleapis.com/youtube/v3"
	}
	if yt.APIKeyEnv == "" {
		yt.APIKeyEnv = "YOUTUBE_API_KEY"
	}
	if yt.MaxVideos == 0 {
		yt.MaxVideos = 3
	}
	if yt.MaxComments == 0 {
		yt.MaxComments = 20
	}
	if yt.TimeoutSeconds == 0 {
		yt.TimeoutSeconds = 30
	}
	if yt.RequestsPerSec == 0 {
		yt.RequestsPerSec = 5
	}
	if c.Ingestion.Web.TimeoutSeconds == 0 {
		c.Ingestion.Web.TimeoutSeconds = 30
	}
	if c.Ingestion.Web.MaxComments == 0 {
		c.Ingestion.Web.MaxComments = 50
	}
	if c.Scheduler.WindowDays == 0 {
		c.Scheduler.WindowDays = 7
	}
	if c.Seed.Days == 0 {
		c.Seed.Days = 30
	}
}

func (c *Config) applyEnv() {
	envOverride(&c.Server.Addr, "SERVER_ADDR")
	envOverride(&c.Database.Driver, "DATABASE_DRIVER")
	envOverride(&c.Database.DSN, "DATABASE_DSN")
	envOverride(&c.Scheduler.Schedule, "SCHEDULER_CRON")
}

func envOverride(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

// YouTubeAPIKey reads the key from the environment variable named in config.
func (c *Config) YouTubeAPIKey() string {
	return os.Getenv(c.Ingestion.YouTube.APIKeyEnv)
}

func (c *Config) Validate() error {
	if c.Mode != "DEV" && c.Mode != "PROD" {
		return fmt.Errorf("invalid mode '%s': must be 'DEV' or 'PROD'", c.Mode)
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database.driver '%s': must be 'sqlite' or 'postgres'", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn cannot be empty")
	}
	if c.Sentiment.NegativeThreshold >= c.Sentiment.PositiveThreshold {
		return fmt.Errorf("sentiment.negative_threshold (%.2f) must be below positive_threshold (%.2f)",
			c.Sentiment.NegativeThreshold, c.Sentiment.PositiveThreshold)
	}
	for i, g := range c.Sentiment.Lexicon {
		if len(g.Terms) == 0 {
			return fmt.Errorf("sentiment.lexicon[%d] (%s) has no terms", i, g.Name)
		}
	}
	for i, s := range c.Ingestion.Web.Sources {
		if s.Platform == "" || s.URLTemplate == "" || s.Container == "" {
			return fmt.Errorf("ingestion.web.sources[%d] needs platform, url_template and container", i)
		}
	}
	return nil
}

// LoadConfig reads path if it exists, then applies defaults and env overrides.
// A missing file is not an error; the service runs on defaults.
func LoadConfig(path string) (*Config, error) {
	c := newConfig()
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	c.applyEnv()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
