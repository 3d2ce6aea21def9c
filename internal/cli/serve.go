package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgindex/pkg/api"
)

// serveCommand creates the serve command, which runs the package API.
func (c *CLI) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve stored packages over HTTP",
		Long: `Serve stored packages over HTTP.

Routes:
  GET /packages?source=&q=&limit=
  GET /packages/{source}/{owner}/{repo}
  GET /packages/{source}/{identifier}
  GET /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			s, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			return api.New(s, loggerFromContext(ctx)).ListenAndServe(ctx, cfg.Addr())
		},
	}
}

// redactURL hides the password of a connection URL for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
