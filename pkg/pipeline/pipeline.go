// Package pipeline provides the load → compose → render pipeline for riskviz.
//
// The CLI and the HTTP server both drive this package so that defaults,
// validation and caching behave the same at every entry point.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read the case and attribution tables (see [Load])
//  2. Compose: Lay out every case (see [compose.Compose])
//  3. Render: Produce artifacts for a view in the requested formats
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	cases, index, err := pipeline.Load(ctx, "cases.csv", "https://example.org/shap.csv")
//	result, err := runner.Execute(ctx, cases, index, pipeline.Options{
//	    View:    "dashboard",
//	    Formats: []string{"svg", "png"},
//	})
//	for _, a := range result.Artifacts {
//	    svg := a.Files["svg"]
//	}
//
// Composed layouts and rendered artifacts are cached by the Runner; see
// [cache.Keyer] for how keys are derived.
//
// [compose.Compose]: github.com/matzehuels/riskviz/pkg/compose.Compose
// [cache.Keyer]: github.com/matzehuels/riskviz/pkg/cache.Keyer
package pipeline

import (
	"io"
	"maps"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/riskviz/pkg/cache"
	"github.com/matzehuels/riskviz/pkg/compose"
	"github.com/matzehuels/riskviz/pkg/dotplot"
	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/render/sink"
	"github.com/matzehuels/riskviz/pkg/sample"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultView is the figure rendered when no view is requested.
	DefaultView = string(sink.ViewDotplot)

	// DefaultWidth is the default figure width in SVG user units.
	DefaultWidth = sink.DefaultWidth
)

// DefaultFormats are rendered when no format is requested.
var DefaultFormats = []string{string(sink.FormatSVG)}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Compose options
	Samples     int      `json:"samples,omitempty"`
	Bins        int      `json:"bins,omitempty"`
	Margin      *float64 `json:"margin,omitempty"` // nil selects the default, 0 disables padding
	MaxFeatures int      `json:"max_features,omitempty"`
	Seed        uint64   `json:"seed,omitempty"`
	Workers     int      `json:"workers,omitempty"`
	Refresh     bool     `json:"refresh,omitempty"` // bypass cached layouts

	// Render options
	View    string            `json:"view,omitempty"`
	Formats []string          `json:"formats,omitempty"`
	Width   int               `json:"width,omitempty"`
	Dataset string            `json:"dataset,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Batch holds the composed layouts and the failed cases.
	Batch *compose.Batch

	// Artifacts holds per-case outputs in Batch.Results order. Empty for the
	// comparison view.
	Artifacts []CaseArtifacts

	// Comparison holds the batch-level outputs of the comparison view,
	// keyed by format.
	Comparison map[string][]byte

	// Stats contains timing and count information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// CaseArtifacts holds the rendered outputs of one case keyed by format.
type CaseArtifacts struct {
	Case  record.Case
	Files map[string][]byte
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Cases       int
	Failed      int
	ComposeTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHits int // cases whose layout came from cache
	RenderHits int // cases (or batches) whose artifacts all came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	f, err := sink.ParseFormat(format)
	if err != nil {
		return err
	}
	if string(f) != format {
		return errors.New(errors.ErrCodeInvalidFormat, "format %q must be written as %q", format, f)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateView checks that a view is valid.
func ValidateView(view string) error {
	v, err := sink.ParseView(view)
	if err != nil {
		return err
	}
	if string(v) != view {
		return errors.New(errors.ErrCodeInvalidView, "view %q must be written as %q", view, v)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every field and applies defaults for the full
// pipeline. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForCompose(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetComposeDefaults sets default values for composition.
func (o *Options) SetComposeDefaults() {
	if o.Samples == 0 {
		o.Samples = sample.DefaultCount
	}
	if o.Bins == 0 {
		o.Bins = dotplot.DefaultBins
	}
	if o.Margin == nil {
		m := dotplot.DefaultMargin
		o.Margin = &m
	}
	if o.Seed == 0 {
		o.Seed = compose.DefaultSeed
	}
	if o.Workers == 0 {
		o.Workers = compose.DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForCompose validates and sets defaults for composition.
func (o *Options) ValidateForCompose() error {
	o.SetComposeDefaults()
	switch {
	case o.Samples < 0:
		return errors.New(errors.ErrCodeInvalidCount, "samples must be positive, got %d", o.Samples)
	case o.Bins < 0:
		return errors.New(errors.ErrCodeInvalidInput, "bins must be positive, got %d", o.Bins)
	case *o.Margin < 0:
		return errors.New(errors.ErrCodeInvalidInput, "margin cannot be negative, got %g", *o.Margin)
	case o.MaxFeatures < 0:
		return errors.New(errors.ErrCodeInvalidInput, "max_features cannot be negative, got %d", o.MaxFeatures)
	case o.Workers < 0:
		return errors.New(errors.ErrCodeInvalidInput, "workers must be positive, got %d", o.Workers)
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if o.View == "" {
		o.View = DefaultView
	}
	if len(o.Formats) == 0 {
		o.Formats = append([]string(nil), DefaultFormats...)
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateView(o.View); err != nil {
		return err
	}
	if o.Width < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "width cannot be negative, got %d", o.Width)
	}
	return ValidateFormats(o.Formats)
}

// IsComparison reports whether the batch-level comparison view is selected.
func (o *Options) IsComparison() bool {
	return o.View == string(sink.ViewComparison)
}

// ComposeOptions returns the options for [compose.Compose].
func (o *Options) ComposeOptions() compose.Options {
	return compose.Options{
		Samples:     o.Samples,
		Bins:        o.Bins,
		Margin:      o.Margin,
		MaxFeatures: o.MaxFeatures,
		Seed:        o.Seed,
		Workers:     o.Workers,
		Logger:      o.Logger,
	}
}

// SinkOptions returns the rendering options for [sink.Render].
func (o *Options) SinkOptions() []sink.Option {
	opts := []sink.Option{sink.WithWidth(o.Width)}
	if o.Dataset != "" {
		opts = append(opts, sink.WithDataset(o.Dataset))
	}
	if len(o.Labels) > 0 {
		opts = append(opts, sink.WithLabels(maps.Clone(o.Labels)))
	}
	return opts
}

// LayoutKeyOpts returns cache key options for composition.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	margin := dotplot.DefaultMargin
	if o.Margin != nil {
		margin = *o.Margin
	}
	return cache.LayoutKeyOpts{
		Samples:     o.Samples,
		Bins:        o.Bins,
		Margin:      margin,
		MaxFeatures: o.MaxFeatures,
		Seed:        o.Seed,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		View:    o.View,
		Format:  format,
		Width:   o.Width,
		Dataset: o.Dataset,
		Labels:  o.Labels,
	}
}
