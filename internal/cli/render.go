package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/riskviz/pkg/compose"
	"github.com/matzehuels/riskviz/pkg/config"
	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/io"
	"github.com/matzehuels/riskviz/pkg/pipeline"
	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/render/sink"
)

// renderCommand creates the render command, which writes one file per case,
// view and format.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output string
		ids    []int
		cf     composeFlags
		rf     renderFlags
	)

	cmd := &cobra.Command{
		Use:   "render <cases> <attributions>",
		Short: "Render figures for every case",
		Long: `Render figures for every case in a case table.

Both tables may be CSV or JSON, local files or http(s) URLs. Each case gets
one file per format, named <label>_<view>.<ext>, in the output directory.
Cases that cannot be laid out (for example an inverted confidence interval)
are reported and skipped.

With --view comparison a single comparison.<ext> covering all cases is written.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := c.options(cmd, cfg, &cf, &rf)
			return c.runRender(cmd.Context(), args[0], args[1], ids, output, cf.noCache, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().IntSliceVar(&ids, "case", nil, "render only these case ids (repeatable)")
	cf.bind(cmd)
	rf.bind(cmd, true)

	return cmd
}

// runRender loads the tables, runs the pipeline and writes the artifacts.
func (c *CLI) runRender(ctx context.Context, casesPath, attrsPath string, ids []int, outDir string, noCache bool, cfg config.Config, opts pipeline.Options) error {
	prog := newProgress(c.Logger)

	cases, index, err := pipeline.Load(ctx, casesPath, attrsPath)
	if err != nil {
		return err
	}
	if cases, err = selectCases(cases, ids); err != nil {
		return err
	}
	c.Logger.Info("loaded cases", "cases", len(cases), "attributions", index.Len())

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %d cases...", len(cases)))
	spinner.Start()
	result, err := runner.Execute(ctx, cases, index, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, writeFailures := writeArtifacts(outDir, result, opts)

	if len(paths) > 0 {
		printSuccess("Rendered %s view", opts.View)
	} else {
		printWarning("Nothing rendered")
	}
	for _, p := range paths {
		printFile(p)
	}
	printFailures(result.Batch.Failures)
	printFailures(writeFailures)
	cached := result.CacheInfo.LayoutHits == len(cases) && len(cases) > 0
	printStats(result.Stats.Cases, result.Stats.Failed, prog.elapsed(), cached)
	prog.done(fmt.Sprintf("Rendered %d cases", result.Stats.Cases))

	if len(result.Batch.Results) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no case could be laid out")
	}
	if len(writeFailures) > 0 {
		errs := make([]error, len(writeFailures))
		for i, f := range writeFailures {
			errs[i] = f
		}
		return fmt.Errorf("write outputs for %d cases: %w", len(writeFailures), stderrors.Join(errs...))
	}
	return nil
}

// writeArtifacts writes every rendered file below dir and returns the paths
// in write order. A case whose files cannot be written is returned as a
// failure and the remaining cases are still written.
func writeArtifacts(dir string, result *pipeline.Result, opts pipeline.Options) ([]string, []compose.Failure) {
	var (
		paths    []string
		failures []compose.Failure
	)
	write := func(stem string, files map[string][]byte) error {
		for _, f := range opts.Formats {
			data, ok := files[f]
			if !ok {
				continue
			}
			path := filepath.Join(dir, stem+"."+sink.Format(f).Ext())
			if err := io.WriteArtifact(path, data); err != nil {
				return err
			}
			paths = append(paths, path)
		}
		return nil
	}

	if opts.IsComparison() {
		if result.Comparison == nil {
			return nil, nil
		}
		if err := write(string(sink.ViewComparison), result.Comparison); err != nil {
			failures = append(failures, compose.Failure{Case: record.Case{Label: string(sink.ViewComparison)}, Err: err})
		}
		return paths, failures
	}

	seen := make(map[string]bool, len(result.Artifacts))
	for _, a := range result.Artifacts {
		stem := fileStem(a.Case)
		if seen[stem] {
			stem = fmt.Sprintf("%s_%d", stem, a.Case.ID)
		}
		seen[stem] = true
		if err := write(stem+"_"+opts.View, a.Files); err != nil {
			failures = append(failures, compose.Failure{Case: a.Case, Err: err})
		}
	}
	return paths, failures
}

// fileStem returns a safe file name stem for a case: its label, or
// case<ID> when the label cannot be used as a file name.
func fileStem(c record.Case) string {
	label := strings.TrimSpace(c.Label)
	if errors.ValidatePath(label) != nil || strings.ContainsAny(label, `/:*?"<>|`) || strings.HasPrefix(label, ".") {
		return fmt.Sprintf("case%d", c.ID)
	}
	return strings.ReplaceAll(label, " ", "_")
}

// selectCases keeps the cases whose ids are listed, in the listed order.
// An empty list keeps every case.
func selectCases(cases []record.Case, ids []int) ([]record.Case, error) {
	if len(ids) == 0 {
		return cases, nil
	}
	out := make([]record.Case, 0, len(ids))
	for _, id := range ids {
		c, ok := record.FindCase(cases, id)
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "case %d not found", id)
		}
		out = append(out, c)
	}
	return out, nil
}
