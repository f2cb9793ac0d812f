package cli

import (
	"github.com/spf13/cobra"

	"github.com/TFMV/forcegraph/metrics"
	"github.com/TFMV/forcegraph/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve graphs and live views over HTTP",
		Long: `Serve stores graph documents posted to /api/graphs and renders them on
request. Live views keep simulating on the server and accept pointer and
resize events. Prometheus metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			srv := server.New(cfg, c.Logger, metrics.DefaultRegistry())
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	return cmd
}
