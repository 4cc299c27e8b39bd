package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/riskviz/pkg/compose"
	"github.com/matzehuels/riskviz/pkg/config"
	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/io"
	"github.com/matzehuels/riskviz/pkg/pipeline"
	"github.com/matzehuels/riskviz/pkg/render/sink"
)

// layoutCommand creates the layout command, which prints the composed layout
// of every case.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		format string
		ids    []int
		cf     composeFlags
	)

	cmd := &cobra.Command{
		Use:   "layout <cases> <attributions>",
		Short: "Print the composed layout of each case as JSON or YAML",
		Long: `Print the composed layout of each case as JSON or YAML.

The layout holds the dotplot markers of the synthesized risk samples, the
confidence band and its zone, the top feature's markers and the ranked
attributions. It is the data every figure is drawn from.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := sink.ParseFormat(format)
			if err != nil {
				return err
			}
			if f != sink.FormatJSON && f != sink.FormatYAML {
				return errors.New(errors.ErrCodeInvalidFormat, "layout format must be json or yaml, got %q", format)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := c.options(cmd, cfg, &cf, nil)
			return c.runLayout(cmd.Context(), args[0], args[1], ids, output, f, cf.noCache, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, yaml")
	cmd.Flags().IntSliceVar(&ids, "case", nil, "lay out only these case ids (repeatable)")
	cf.bind(cmd)

	return cmd
}

// runLayout composes the cases and writes the results.
func (c *CLI) runLayout(ctx context.Context, casesPath, attrsPath string, ids []int, output string, format sink.Format, noCache bool, cfg config.Config, opts pipeline.Options) error {
	cases, index, err := pipeline.Load(ctx, casesPath, attrsPath)
	if err != nil {
		return err
	}
	if cases, err = selectCases(cases, ids); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	batch, hits, err := runner.ComposeWithCacheInfo(ctx, cases, index, opts)
	if err != nil {
		return err
	}
	c.Logger.Debug("composed", "run", batch.RunID, "cases", len(batch.Results), "cached", hits)
	for _, f := range batch.Failures {
		c.Logger.Warn("case skipped", "case", f.Case.ID, "code", errors.GetCode(f.Err), "err", errors.UserMessage(f.Err))
	}

	results := batch.Results
	if results == nil {
		results = []compose.Result{}
	}
	data, err := sink.RenderBatch(results, format)
	if err != nil {
		return err
	}

	if output == "" {
		return io.WriteTo(os.Stdout, data)
	}
	if err := io.WriteArtifact(output, data); err != nil {
		return err
	}
	printSuccess("Layout complete")
	printFile(output)
	printNextStep("Render", appName+" render "+casesPath+" "+attrsPath)
	return nil
}
