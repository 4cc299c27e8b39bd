package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/riskviz/pkg/config"
	"github.com/matzehuels/riskviz/pkg/pipeline"
)

// composeFlags holds the flags shared by every command that lays out cases.
// Flags override the config file and environment only when set explicitly.
type composeFlags struct {
	seed        uint64
	samples     int
	bins        int
	margin      float64
	maxFeatures int
	workers     int
	noCache     bool
	refresh     bool
}

func (f *composeFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Uint64Var(&f.seed, "seed", 0, "random seed for sample synthesis (default 42)")
	fs.IntVarP(&f.samples, "samples", "n", 0, "samples drawn per case (default 200)")
	fs.IntVar(&f.bins, "bins", 0, "dotplot bins (default 20)")
	fs.Float64Var(&f.margin, "margin", 0, "domain padding of the attribution dotplot (default 0.05)")
	fs.IntVar(&f.maxFeatures, "max-features", 0, "ranked features kept per case (0 = all)")
	fs.IntVarP(&f.workers, "workers", "j", 0, "cases composed in parallel (default 1)")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	fs.BoolVar(&f.refresh, "refresh", false, "recompute layouts even when cached")
}

// renderFlags holds the artifact flags.
type renderFlags struct {
	view    string
	formats string
	width   int
	dataset string
}

func (f *renderFlags) bind(cmd *cobra.Command, withView bool) {
	fs := cmd.Flags()
	if withView {
		fs.StringVarP(&f.view, "view", "t", "", "view: dotplot (default), interval, spectrum, dashboard, comparison")
	}
	fs.StringVarP(&f.formats, "format", "f", "", "output format(s): svg (default), png, pdf, json, yaml (comma-separated)")
	fs.IntVar(&f.width, "width", 0, "figure width (default 720)")
	fs.StringVar(&f.dataset, "dataset", "", "dataset name shown in figure captions")
}

// options builds pipeline options from the config with explicitly set flags
// applied on top. rf may be nil for commands that do not render.
func (c *CLI) options(cmd *cobra.Command, cfg config.Config, cf *composeFlags, rf *renderFlags) pipeline.Options {
	margin := cfg.Core.Margin
	opts := pipeline.Options{
		Samples:     cfg.Core.Samples,
		Bins:        cfg.Core.Bins,
		Margin:      &margin,
		MaxFeatures: cfg.Core.MaxFeatures,
		Seed:        cfg.Core.Seed,
		Workers:     cfg.Core.Workers,
		View:        cfg.Render.View,
		Formats:     append([]string(nil), cfg.Render.Formats...),
		Width:       cfg.Render.Width,
		Dataset:     cfg.Render.Dataset,
		Labels:      cfg.Labels,
		Logger:      c.Logger,
	}

	changed := cmd.Flags().Changed
	if changed("seed") {
		opts.Seed = cf.seed
	}
	if changed("samples") {
		opts.Samples = cf.samples
	}
	if changed("bins") {
		opts.Bins = cf.bins
	}
	if changed("margin") {
		opts.Margin = &cf.margin
	}
	if changed("max-features") {
		opts.MaxFeatures = cf.maxFeatures
	}
	if changed("workers") {
		opts.Workers = cf.workers
	}
	opts.Refresh = cf.refresh

	if rf == nil {
		return opts
	}
	if changed("view") {
		opts.View = strings.ToLower(strings.TrimSpace(rf.view))
	}
	if changed("format") {
		opts.Formats = parseFormats(rf.formats)
	}
	if changed("width") {
		opts.Width = rf.width
	}
	if changed("dataset") {
		opts.Dataset = rf.dataset
	}
	return opts
}

// parseFormats parses a comma-separated format string into a slice.
// "yml" is accepted for yaml.
func parseFormats(s string) []string {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case "":
			continue
		case "yml":
			f = "yaml"
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return append([]string(nil), pipeline.DefaultFormats...)
	}
	return formats
}
