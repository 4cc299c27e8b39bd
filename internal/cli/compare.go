package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/riskviz/pkg/render/sink"
)

// compareCommand creates the compare command, a shortcut for
// "render --view comparison".
func (c *CLI) compareCommand() *cobra.Command {
	var (
		output string
		ids    []int
		cf     composeFlags
		rf     renderFlags
	)

	cmd := &cobra.Command{
		Use:   "compare <cases> <attributions>",
		Short: "Render all cases side by side",
		Long: `Render all cases side by side, sorted by mean risk.

Each column shows the case's interval, its three strongest attributions and
the semantic label configured for the case label.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := c.options(cmd, cfg, &cf, &rf)
			opts.View = string(sink.ViewComparison)
			return c.runRender(cmd.Context(), args[0], args[1], ids, output, cf.noCache, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().IntSliceVar(&ids, "case", nil, "compare only these case ids (repeatable)")
	cf.bind(cmd)
	rf.bind(cmd, false)

	return cmd
}
