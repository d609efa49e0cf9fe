// Package config loads and validates movierank configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default source URLs for the fixed page set.
const (
	DefaultBaseURL      = "https://www.imdb.com"
	DefaultTopChartURL  = "https://www.imdb.com/chart/top/?ref_=nv_mv_250"
	DefaultGenresURL    = "https://help.imdb.com/article/contribution/titles/genres/GZDRMS6R742JRGAG#"
	DefaultCountriesURL = "https://restcountries.eu/rest/v2/all"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Cache     CacheConfig     `mapstructure:"cache"`
	DB        DBConfig        `mapstructure:"db"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Countries CountriesConfig `mapstructure:"countries"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the report server.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// HTTPConfig configures the outbound fetcher.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
	// RequestsPerSecond spaces out downloads per host; 0 disables the limit.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CacheConfig locates the response cache file.
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// DBConfig locates the SQLite database file.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// SourcesConfig lists the fixed pages the pipeline reads.
type SourcesConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	TopChartURL  string `mapstructure:"top_chart_url"`
	GenresURL    string `mapstructure:"genres_url"`
	CountriesURL string `mapstructure:"countries_url"`
	LoadGenres   bool   `mapstructure:"load_genres"`
	// MaxMovies caps how many detail pages are loaded; 0 loads the whole chart.
	MaxMovies int `mapstructure:"max_movies"`
}

// CountryAlias pins a legacy country name to a fixed Countries id.
type CountryAlias struct {
	Name string `mapstructure:"name"`
	ID   int64  `mapstructure:"id"`
}

// CountriesConfig holds country resolution overrides. Aliases are a list
// rather than a map because viper lowercases map keys.
type CountriesConfig struct {
	Aliases []CountryAlias `mapstructure:"aliases"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MOVIERANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "movierank/0.1 (+https://github.com/JakeFAU/movierank)")
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.requests_per_second", 0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("cache.path", "cache.json")
	v.SetDefault("db.path", "imdb-movies.sqlite")
	v.SetDefault("sources.base_url", DefaultBaseURL)
	v.SetDefault("sources.top_chart_url", DefaultTopChartURL)
	v.SetDefault("sources.genres_url", DefaultGenresURL)
	v.SetDefault("sources.countries_url", DefaultCountriesURL)
	v.SetDefault("sources.load_genres", true)
	v.SetDefault("sources.max_movies", 0)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("http.requests_per_second must be >= 0")
	}
	if c.HTTP.Burst < 0 {
		return fmt.Errorf("http.burst must be >= 0")
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		return fmt.Errorf("cache.path is required")
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path is required")
	}
	if c.Sources.MaxMovies < 0 {
		return fmt.Errorf("sources.max_movies must be >= 0")
	}
	sources := map[string]string{
		"sources.base_url":      c.Sources.BaseURL,
		"sources.top_chart_url": c.Sources.TopChartURL,
		"sources.countries_url": c.Sources.CountriesURL,
	}
	if c.Sources.LoadGenres {
		sources["sources.genres_url"] = c.Sources.GenresURL
	}
	for key, raw := range sources {
		if !isAbsoluteURL(raw) {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}
	seen := make(map[string]struct{}, len(c.Countries.Aliases))
	for _, alias := range c.Countries.Aliases {
		name := strings.TrimSpace(alias.Name)
		if name == "" {
			return fmt.Errorf("countries.aliases: name is required")
		}
		if alias.ID <= 0 {
			return fmt.Errorf("countries.aliases: id for %q must be > 0", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("countries.aliases: duplicate name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RequestTimeout is the per-request budget of the report server.
func (c Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// AliasMap flattens the configured aliases into a name -> id map.
func (c CountriesConfig) AliasMap() map[string]int64 {
	out := make(map[string]int64, len(c.Aliases))
	for _, alias := range c.Aliases {
		out[strings.TrimSpace(alias.Name)] = alias.ID
	}
	return out
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && u.IsAbs() && u.Host != ""
}
