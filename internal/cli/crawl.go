package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgindex/pkg/crawl"
	"github.com/matzehuels/pkgindex/pkg/observability"
)

// crawlCommand creates the crawl command, which runs the discovery bot.
func (c *CLI) crawlCommand() *cobra.Command {
	var (
		once     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Discover packages on GitHub and write them to the store",
		Long: `Discover packages on GitHub and write them to the store.

Runs every configured [[fetchers]] entry in order and upserts each package
under its source:identifier key. Without --once, runs repeat every
[crawl] interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if len(cfg.Fetchers) == 0 {
				return errors.New("no fetchers configured: add a [[fetchers]] entry to the config file")
			}
			if interval > 0 {
				cfg.Crawl.Interval = interval
			}

			client, err := c.newGitHubClient(cfg)
			if err != nil {
				return err
			}
			fetchers, err := c.newFetchers(cfg, client)
			if err != nil {
				return err
			}
			s, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			runner := crawl.NewRunner(s, fetchers, loggerFromContext(ctx))
			runner.Hooks = observability.NewLogCrawlHooks(c.Logger)

			if !once {
				return runner.Run(ctx, cfg.Crawl.Interval)
			}

			prog := newProgress(c.Logger)
			report := runner.RunOnce(ctx)
			prog.done("Crawl complete", "run", report.RunID, "stored", report.Stored())
			printReport(report)

			if err := ctx.Err(); err != nil {
				return err
			}
			if failed := report.Failed(); len(failed) == len(report.Results) && len(failed) > 0 {
				return fmt.Errorf("all %d fetchers failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single crawl and exit")
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between runs (overrides [crawl] interval)")

	return cmd
}

// printReport prints one line per fetcher of a crawl run.
func printReport(r crawl.Report) {
	for _, res := range r.Results {
		if res.Err != nil {
			printError("%s: %d stored, %v", res.Fetcher, res.Stored, res.Err)
			continue
		}
		printSuccess("%s: %s stored", res.Fetcher, StyleNumber.Render(fmt.Sprint(res.Stored)))
	}
	for _, name := range r.Skipped {
		printWarning("%s: skipped (rate limited)", name)
	}
	if r.RateLimit != nil && !r.RateLimit.ResetAt.IsZero() {
		printDetail("Quota resets at %s", r.RateLimit.ResetAt.Local().Format(time.Kitchen))
	}
	printKeyValue("Run", r.RunID)
	printKeyValue("Stored", fmt.Sprint(r.Stored()))
}
