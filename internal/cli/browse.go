package cli

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/riskviz/pkg/config"
	"github.com/matzehuels/riskviz/pkg/io"
	"github.com/matzehuels/riskviz/pkg/pipeline"
	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/render/sink"
)

// browseCommand creates the browse command, an interactive case picker that
// renders the chosen case.
func (c *CLI) browseCommand() *cobra.Command {
	var (
		output string
		cf     composeFlags
		rf     renderFlags
	)

	cmd := &cobra.Command{
		Use:   "browse <cases> <attributions>",
		Short: "Pick a case interactively and render it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := c.options(cmd, cfg, &cf, &rf)
			return c.runBrowse(cmd.Context(), args[0], args[1], output, cf.noCache, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cf.bind(cmd)
	rf.bind(cmd, true)

	return cmd
}

func (c *CLI) runBrowse(ctx context.Context, casesPath, attrsPath, outDir string, noCache bool, cfg config.Config, opts pipeline.Options) error {
	cases, index, err := pipeline.Load(ctx, casesPath, attrsPath)
	if err != nil {
		return err
	}

	view := sink.View(opts.View)
	if opts.IsComparison() {
		view = sink.ViewDotplot
	}
	final, err := tea.NewProgram(NewCaseListModel(cases, cfg.Labels, view), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("case picker: %w", err)
	}
	m, ok := final.(CaseListModel)
	if !ok || m.Selected == nil {
		printInfo("No case selected")
		return nil
	}

	opts.View = string(m.Selected.View)
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	result, err := runner.Execute(ctx, []record.Case{m.Selected.Case}, index, opts)
	if err != nil {
		return err
	}
	if len(result.Batch.Failures) > 0 {
		printFailures(result.Batch.Failures)
		return result.Batch.Failures[0]
	}

	res := result.Batch.Results[0]
	printSuccess("%s", res.Summary())
	printKeyValue("Zone", res.Zone.String())
	printKeyValue("Top feature", res.TopFeatureName)
	for _, f := range opts.Formats {
		path := filepath.Join(outDir, fileStem(res.Case)+"_"+opts.View+"."+sink.Format(f).Ext())
		if err := io.WriteArtifact(path, result.Artifacts[0].Files[f]); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}
