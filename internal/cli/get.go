package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	fetchgithub "github.com/matzehuels/pkgindex/pkg/fetch/github"
	"github.com/matzehuels/pkgindex/pkg/integrations/github"
	"github.com/matzehuels/pkgindex/pkg/packages"
)

// getCommand creates the get command, which looks up one package.
func (c *CLI) getCommand() *cobra.Command {
	var (
		fromStore bool
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "get <owner/repo>",
		Short: "Show one package, from GitHub or from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			var p packages.Package
			if fromStore {
				s, err := c.openStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer s.Close()
				if p, err = s.Get(ctx, packages.SourceGitHub, args[0]); err != nil {
					return fmt.Errorf("%s: %w", packages.Key(packages.SourceGitHub, args[0]), err)
				}
			} else {
				d, err := github.ParseDescriptor(args[0])
				if err != nil {
					return err
				}
				client, err := c.newGitHubClient(cfg)
				if err != nil {
					return err
				}
				spinner := newSpinnerWithContext(ctx, "Fetching "+d.String()+"...")
				spinner.Start()
				repo, err := client.FetchRepository(ctx, d)
				spinner.Stop()
				if err != nil {
					return err
				}
				p = fetchgithub.FromRepository(repo, nil)
			}

			if jsonOut {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			printPackage(p)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStore, "store", false, "read from the configured store instead of GitHub")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the package as JSON")

	return cmd
}

// printPackage prints every field of p as key-value lines.
func printPackage(p packages.Package) {
	fmt.Fprintln(stdout, StyleTitle.Render(p.Key()))
	printKeyValue("Name", p.Name)
	if p.Description != nil {
		printKeyValue("Description", *p.Description)
	}
	printKeyValue("Popularity", fmt.Sprint(p.Popularity))
	if len(p.Tags) > 0 {
		printKeyValue("Tags", strings.Join(p.Tags, ", "))
	}
	if !p.UpdatedAt.IsZero() {
		printKeyValue("Updated", p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}
