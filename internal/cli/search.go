package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgindex/pkg/fetch"
	fetchgithub "github.com/matzehuels/pkgindex/pkg/fetch/github"
	"github.com/matzehuels/pkgindex/pkg/integrations/github"
	"github.com/matzehuels/pkgindex/pkg/packages"
)

const defaultSearchLimit = 20

// searchCommand creates the search command, which runs one ad-hoc fetch
// without touching the store.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		limit   int
		enrich  bool
		kind    string
		tags    []string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search GitHub and print the packages a crawl would store",
		Long: `Search GitHub and print the packages a crawl would store.

Only as many result pages as needed for --limit packages are requested.

Examples:
  pkgindex search "filename:package.json path:/"
  pkgindex search "topic:cli language:go" --kind repositories --enrich
  pkgindex search "filename:go.mod" --limit 5 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client, err := c.newGitHubClient(cfg)
			if err != nil {
				return err
			}

			f, err := fetchgithub.NewCodeSearchFetcher(fetchgithub.NewBase(client, c.Logger), fetchgithub.Config{
				Query:  args[0],
				Kind:   github.SearchKind(kind),
				Enrich: enrich,
				Tags:   tags,
			})
			if err != nil {
				return err
			}

			spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Searching %q...", args[0]))
			spinner.Start()
			pkgs, err := fetch.Collect(fetch.Take(f.Fetch(ctx), limit))
			spinner.Stop()

			if jsonOut {
				if encErr := writePackagesJSON(pkgs); encErr != nil {
					return encErr
				}
				return err
			}

			for _, p := range pkgs {
				printPackageLine(p)
			}
			if err != nil {
				printError("Search stopped after %d packages", len(pkgs))
				return err
			}
			printSuccess("Found %d packages", len(pkgs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultSearchLimit, "maximum number of packages")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "fetch description, stars and topics for each repository")
	cmd.Flags().StringVar(&kind, "kind", string(github.SearchCode), "search endpoint: code or repositories")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "extra tag for every package (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print packages as JSON")

	return cmd
}

func writePackagesJSON(pkgs []packages.Package) error {
	if pkgs == nil {
		pkgs = []packages.Package{}
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pkgs)
}

// printPackageLine prints a package on one line with its popularity.
func printPackageLine(p packages.Package) {
	line := StyleHighlight.Render(p.Key())
	if p.Popularity > 0 {
		line += " " + StyleNumber.Render(fmt.Sprintf("★ %d", p.Popularity))
	}
	fmt.Fprintln(stdout, line)
	if p.Description != nil {
		printDetail("%s", *p.Description)
	}
}
