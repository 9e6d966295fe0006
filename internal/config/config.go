package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Place is one gazetteer row. The YAML sequence order is the match order.
type Place struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

// AI configures the text-understanding capability used by the geollm
// resolver. The key may also come from the BEARWATCH_AI_KEY environment
// variable; without a key the extraction step is disabled and every
// candidate resolves to a miss.
type AI struct {
	Provider string `yaml:"provider"` // "openai" or "claude"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

type Geocoder struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Country   string        `yaml:"country"` // qualifier appended to every query
	Timeout   time.Duration `yaml:"timeout"`
	Delay     time.Duration `yaml:"delay"` // minimum gap between lookups
}

type Resolver struct {
	Type      string   `yaml:"type"` // "gazetteer" or "geollm"
	Gazetteer []Place  `yaml:"gazetteer,omitempty"`
	AI        AI       `yaml:"ai"`
	Geocoder  Geocoder `yaml:"geocoder"`
}

type Metrics struct {
	// TextfilePath, when set, receives the run counters in the Prometheus
	// textfile-collector format. Empty disables the export.
	TextfilePath string `yaml:"textfile_path"`
}

type Config struct {
	FeedURL      string        `yaml:"feed_url"`
	DataFile     string        `yaml:"data_file"`
	Keywords     []string      `yaml:"keywords"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Resolver     Resolver      `yaml:"resolver"`
	Metrics      Metrics       `yaml:"metrics"`
}

// DefaultPath is where Load looks when BEARWATCH_CONFIG is unset.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "bearwatch", "config.yaml")
}

// Load reads the YAML config at path (or the default location when path is
// empty) and fills in defaults. A missing file is not an error: the built-in
// defaults describe a complete, working run.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BEARWATCH_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}

	var c Config
	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.FeedURL == "" {
		c.FeedURL = "https://news.google.com/rss/search?q=熊+出没+when:1d&hl=ja&gl=JP&ceid=JP:ja"
	}
	if c.DataFile == "" {
		c.DataFile = filepath.Join(xdg.DataHome, "bearwatch", "bear_data.json")
	}
	if len(c.Keywords) == 0 {
		c.Keywords = []string{"熊", "クマ"}
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.Resolver.Type == "" {
		c.Resolver.Type = "gazetteer"
	}
	if c.Resolver.AI.Provider == "" {
		c.Resolver.AI.Provider = "openai"
	}
	if c.Resolver.Geocoder.BaseURL == "" {
		c.Resolver.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Resolver.Geocoder.UserAgent == "" {
		c.Resolver.Geocoder.UserAgent = "bear-watch/1.0"
	}
	if c.Resolver.Geocoder.Country == "" {
		c.Resolver.Geocoder.Country = "日本"
	}
	if c.Resolver.Geocoder.Timeout == 0 {
		c.Resolver.Geocoder.Timeout = 10 * time.Second
	}
	if c.Resolver.Geocoder.Delay == 0 {
		c.Resolver.Geocoder.Delay = time.Second
	}
}

// AIKey returns the resolved extraction credential, preferring the config
// value over the environment.
func (c *Config) AIKey() string {
	if c.Resolver.AI.APIKey != "" {
		return c.Resolver.AI.APIKey
	}
	return os.Getenv("BEARWATCH_AI_KEY")
}
