package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/riskviz/internal/metrics"
	"github.com/matzehuels/riskviz/internal/server"
	"github.com/matzehuels/riskviz/pkg/buildinfo"
	"github.com/matzehuels/riskviz/pkg/pipeline"
)

// serveCommand creates the serve command, which serves layouts and figures
// for one dataset over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr string
		cf   composeFlags
		rf   renderFlags
	)

	cmd := &cobra.Command{
		Use:   "serve <cases> <attributions>",
		Short: "Serve layouts and figures over HTTP",
		Long: `Serve layouts and figures over HTTP.

Routes:
  GET /healthz
  GET /cases
  GET /cases/{id}/layout?format=json|yaml
  GET /cases/{id}/render?view=&format=&width=
  GET /compare?format=
  GET /metrics`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			opts := c.options(cmd, cfg, &cf, &rf)
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}

			cases, index, err := pipeline.Load(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, cfg, cf.noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			if err := metrics.Install(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			srv := server.New(server.Config{
				Runner:  runner,
				Options: opts,
				Cases:   cases,
				Index:   index,
				Logger:  c.Logger,
				Metrics: promhttp.Handler(),
			})
			c.Logger.Debug("starting server", "version", buildinfo.Short(), "view", opts.View)
			printInfo("Serving %d cases on %s", len(cases), StyleHighlight.Render(cfg.Server.Addr))
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	cf.bind(cmd)
	rf.bind(cmd, true)

	return cmd
}
