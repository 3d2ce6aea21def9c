// Package config loads process configuration for the crawler and the API.
//
// Values are layered: built-in defaults, then a TOML file, then environment
// variables. Command-line flags are applied on top by the caller.
//
//	database_url = "redis://localhost:6379"
//	listen_port  = 8080
//	log_level    = "debug"
//
//	[github]
//	token     = "ghp_..."
//	timeout   = "30s"
//	cache_ttl = "24h"
//
//	[crawl]
//	interval = "1h"
//
//	[[fetchers]]
//	name   = "npm"
//	query  = "filename:package.json path:/"
//	enrich = true
//	tags   = ["npm"]
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Defaults.
const (
	DefaultDatabaseURL   = "redis://localhost:6379"
	DefaultListenPort    = 80
	DefaultLogLevel      = "info"
	DefaultGitHubTimeout = 30 * time.Second
	DefaultCrawlInterval = time.Hour
)

// Environment variables read by Load.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvListenPort  = "LISTEN_PORT"
	EnvLogLevel    = "LOG_LEVEL"
	EnvGitHubToken = "GITHUB_TOKEN"
)

// Config is the complete process configuration.
type Config struct {
	DatabaseURL string    `toml:"database_url"`
	ListenPort  int       `toml:"listen_port"`
	LogLevel    string    `toml:"log_level"`
	GitHub      GitHub    `toml:"github"`
	Crawl       Crawl     `toml:"crawl"`
	Fetchers    []Fetcher `toml:"fetchers"`
}

// GitHub configures the GitHub client.
type GitHub struct {
	Token    string        `toml:"token"`
	BaseURL  string        `toml:"base_url"`
	Timeout  time.Duration `toml:"timeout"`
	CacheTTL time.Duration `toml:"cache_ttl"`
	CacheDir string        `toml:"cache_dir"`
}

// Crawl configures the crawl scheduler.
type Crawl struct {
	Interval time.Duration `toml:"interval"`
}

// Fetcher configures one search strategy.
type Fetcher struct {
	Name   string   `toml:"name"`
	Query  string   `toml:"query"`
	Kind   string   `toml:"kind"` // "code" (default) or "repositories"
	Enrich bool     `toml:"enrich"`
	Tags   []string `toml:"tags"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatabaseURL: DefaultDatabaseURL,
		ListenPort:  DefaultListenPort,
		LogLevel:    DefaultLogLevel,
		GitHub:      GitHub{Timeout: DefaultGitHubTimeout},
		Crawl:       Crawl{Interval: DefaultCrawlInterval},
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// path is non-empty) and the process environment.
func Load(path string) (Config, error) {
	return LoadWith(path, os.Getenv)
}

// LoadWith is Load with the environment read through getenv.
func LoadWith(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides fields from the environment variables read through
// getenv. Empty variables are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv(EnvListenPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a port number", EnvListenPort, v)
		}
		c.ListenPort = port
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvGitHubToken); v != "" {
		c.GitHub.Token = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: database_url is required")
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("config: listen_port %d out of range", c.ListenPort)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.GitHub.Timeout < 0 || c.GitHub.CacheTTL < 0 || c.Crawl.Interval < 0 {
		return errors.New("config: durations must not be negative")
	}

	names := make(map[string]bool, len(c.Fetchers))
	for i, f := range c.Fetchers {
		if strings.TrimSpace(f.Query) == "" {
			return fmt.Errorf("config: fetchers[%d]: query is required", i)
		}
		switch f.Kind {
		case "", "code", "repositories":
		default:
			return fmt.Errorf("config: fetchers[%d]: unknown kind %q", i, f.Kind)
		}
		if f.Name != "" {
			if names[f.Name] {
				return fmt.Errorf("config: fetchers[%d]: duplicate name %q", i, f.Name)
			}
			names[f.Name] = true
		}
	}
	return nil
}

// Addr returns the listen address for ListenPort.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.ListenPort)
}

// Level returns the parsed log level. It falls back to info for values
// Validate would reject.
func (c Config) Level() log.Level {
	lvl, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// ParseLogLevel accepts level names (debug, info, warn, error, fatal) and
// the numeric levels 0-5 used by older deployments, where 0 is the least
// and 5 the most verbose.
func ParseLogLevel(s string) (log.Level, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		switch {
		case n <= 0:
			return log.FatalLevel, nil
		case n == 1:
			return log.ErrorLevel, nil
		case n == 2:
			return log.WarnLevel, nil
		case n == 3:
			return log.InfoLevel, nil
		default:
			return log.DebugLevel, nil
		}
	}
	lvl, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}
