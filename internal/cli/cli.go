package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgindex/pkg/buildinfo"
	"github.com/matzehuels/pkgindex/pkg/config"
	"github.com/matzehuels/pkgindex/pkg/fetch"
	fetchgithub "github.com/matzehuels/pkgindex/pkg/fetch/github"
	"github.com/matzehuels/pkgindex/pkg/httputil"
	"github.com/matzehuels/pkgindex/pkg/integrations/github"
	"github.com/matzehuels/pkgindex/pkg/observability"
	"github.com/matzehuels/pkgindex/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "pkgindex"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Global flags, bound by RootCommand.
	configPath  string
	databaseURL string
	port        int
	verbose     bool

	// getenv reads the environment; tests replace it.
	getenv func(string) string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		getenv: os.Getenv,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "pkgindex discovers and serves open-source package metadata",
		Long:         `pkgindex crawls the GitHub search API for repositories, turns them into package records keyed by source and identifier, and serves those records over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "path to a TOML config file")
	flags.StringVar(&c.databaseURL, "database-url", "", "store URL (redis://, mongodb://, file://, memory://)")
	flags.IntVarP(&c.port, "port", "p", 0, "API listen port")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.crawlCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.getCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig layers flags over the file and environment configuration and
// applies the resulting log level.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.LoadWith(c.configPath, c.getenv)
	if err != nil {
		return config.Config{}, err
	}

	if c.databaseURL != "" {
		cfg.DatabaseURL = c.databaseURL
	}
	if c.port != 0 {
		cfg.ListenPort = c.port
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	level := cfg.Level()
	if c.verbose {
		level = log.DebugLevel
	}
	c.SetLogLevel(level)
	return cfg, nil
}

// =============================================================================
// Factories
// =============================================================================

// newGitHubClient builds the GitHub client for cfg with traces routed to
// the CLI logger.
func (c *CLI) newGitHubClient(cfg config.Config) (*github.Client, error) {
	cacheDirPath := cfg.GitHub.CacheDir
	if cacheDirPath == "" && cfg.GitHub.CacheTTL > 0 {
		dir, err := cacheDir()
		if err != nil {
			return nil, err
		}
		cacheDirPath = dir
	}

	client, err := github.NewClient(github.Options{
		Token:    cfg.GitHub.Token,
		BaseURL:  cfg.GitHub.BaseURL,
		Timeout:  cfg.GitHub.Timeout,
		CacheTTL: cfg.GitHub.CacheTTL,
		CacheDir: cacheDirPath,
		Hooks:    observability.NewLogFetchHooks(c.Logger),
	})
	if err != nil {
		return nil, err
	}
	client.SetHooks(observability.NewLogHTTPHooks(c.Logger))
	return client, nil
}

// newFetchers builds one code search fetcher per configured entry.
func (c *CLI) newFetchers(cfg config.Config, client *github.Client) ([]fetch.Fetcher, error) {
	base := fetchgithub.NewBase(client, c.Logger)
	out := make([]fetch.Fetcher, 0, len(cfg.Fetchers))
	for _, fc := range cfg.Fetchers {
		f, err := fetchgithub.NewCodeSearchFetcher(base, fetchgithub.Config{
			Name:   fc.Name,
			Query:  fc.Query,
			Kind:   github.SearchKind(fc.Kind),
			Enrich: fc.Enrich,
			Tags:   fc.Tags,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// openStore connects to the configured store.
func (c *CLI) openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	s, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.Logger.Debug("connected to store", "url", redactURL(cfg.DatabaseURL))
	return s, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the GitHub response cache directory used when
// [github] cache_dir is unset: $XDG_CACHE_HOME/pkgindex or ~/.cache/pkgindex.
func cacheDir() (string, error) {
	return httputil.DefaultCacheDir()
}
