// Package compose sequences synthesis, layout and ranking for a batch of cases.
//
// For every case it produces a [Result]: the risk dotplot markers, the
// interval band, the top feature's dotplot markers and the ranked attribution
// subset. A Result is a description for a renderer; nothing here draws or
// writes files.
//
// A case that fails (inverted interval, no attributions, ...) becomes a
// [Failure] in the batch and the remaining cases still run. Each case draws
// from its own random source derived from Options.Seed and the case ID, so the
// output of a case does not depend on batch order or on Options.Workers.
package compose

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/riskviz/pkg/dotplot"
	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/observability"
	"github.com/matzehuels/riskviz/pkg/rank"
	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/sample"
	"github.com/matzehuels/riskviz/pkg/zone"
)

// Default option values.
const (
	DefaultSeed    = uint64(42)
	DefaultWorkers = 1
)

// Options controls a compose run. Zero values (and a nil Margin) are
// replaced by defaults.
type Options struct {
	Samples     int      // population size per case (default 200)
	Bins        int      // dotplot bins (default 20)
	Margin      *float64 // attribution domain padding, nil selects 0.05
	MaxFeatures int      // ranked features kept per case, 0 keeps all
	Seed        uint64   // base seed (default 42)
	Workers     int      // concurrent cases (default 1)

	Logger *log.Logger
}

// WithDefaults returns a copy of o with defaults applied.
func (o Options) WithDefaults() Options {
	if o.Samples == 0 {
		o.Samples = sample.DefaultCount
	}
	if o.Bins <= 0 {
		o.Bins = dotplot.DefaultBins
	}
	if o.Margin == nil {
		m := dotplot.DefaultMargin
		o.Margin = &m
	}
	if o.MaxFeatures < 0 {
		o.MaxFeatures = 0
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Result is the layout description of one case.
type Result struct {
	Case record.Case `json:"case" yaml:"case"`
	Zone zone.Zone   `json:"zone" yaml:"zone"`

	RiskMarkers []dotplot.Point `json:"risk_markers" yaml:"risk_markers"`
	RiskBand    zone.Band       `json:"risk_band" yaml:"risk_band"`
	RiskDropped int             `json:"risk_dropped,omitempty" yaml:"risk_dropped,omitempty"`

	TopFeature     record.Attribution   `json:"top_feature" yaml:"top_feature"`
	TopFeatureName string               `json:"top_feature_name" yaml:"top_feature_name"`
	FeatureMarkers []dotplot.Point      `json:"feature_markers" yaml:"feature_markers"`
	FeatureDomain  dotplot.Domain       `json:"feature_domain" yaml:"feature_domain"`
	RankedFeatures []record.Attribution `json:"ranked_features" yaml:"ranked_features"`
}

// Summary returns the one-line caption used above rendered figures, e.g.
// "MID_wide | risk=0.512, 95% CI=[0.310, 0.700]".
func (r *Result) Summary() string {
	c := r.Case
	return fmt.Sprintf("%s | risk=%.3f, 95%% CI=[%.3f, %.3f]", c.Label, c.RiskMean, c.CILow, c.CIHigh)
}

// Failure records a case that could not be laid out.
type Failure struct {
	Case record.Case
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("case %d (%s): %v", f.Case.ID, f.Case.Label, f.Err)
}

// Unwrap exposes the underlying error so errors.Is matches its code.
func (f Failure) Unwrap() error { return f.Err }

// Batch is the outcome of a compose run. Results and Failures keep the input
// order of the cases.
type Batch struct {
	RunID    string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Results  []Result  `json:"results" yaml:"results"`
	Failures []Failure `json:"-" yaml:"-"`
}

// Compose lays out every case. It only returns an error if ctx is cancelled;
// per-case failures are collected in Batch.Failures.
func Compose(ctx context.Context, cases []record.Case, index record.Index, opts Options) (*Batch, error) {
	opts = opts.WithDefaults()
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnComposeStart(ctx, len(cases))

	results := make([]*Result, len(cases))
	errs := make([]error, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			caseStart := time.Now()
			res, err := Case(c, index.For(c.ID), opts)
			hooks.OnCaseComplete(gctx, c.ID, time.Since(caseStart), err)
			results[i], errs[i] = res, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &Batch{Results: make([]Result, 0, len(cases))}
	for i, c := range cases {
		if errs[i] != nil {
			opts.Logger.Warn("skipping case", "case", c.ID, "label", c.Label, "code", errors.GetCode(errs[i]), "err", errors.UserMessage(errs[i]))
			batch.Failures = append(batch.Failures, Failure{Case: c, Err: errs[i]})
			continue
		}
		opts.Logger.Debug("composed case", "case", c.ID, "zone", results[i].Zone, "top", rank.Format(results[i].TopFeature))
		batch.Results = append(batch.Results, *results[i])
	}

	hooks.OnComposeComplete(ctx, len(batch.Results), len(batch.Failures), time.Since(start))
	return batch, nil
}

// Case lays out a single case with its attribution records. opts must
// already carry defaults (see Options.WithDefaults).
func Case(c record.Case, attrs []record.Attribution, opts Options) (*Result, error) {
	src := sample.NewSource(opts.Seed, uint64(c.ID))

	risk, err := sample.Synthesize(src, c.RiskMean, c.CILow, c.CIHigh, opts.Samples, sample.KindBounded)
	if err != nil {
		return nil, err
	}
	riskMarkers, err := dotplot.Layout(risk, 0, 1, opts.Bins)
	if err != nil {
		return nil, err
	}
	band, err := zone.NewBand(c.CILow, c.CIHigh)
	if err != nil {
		return nil, err
	}
	z, err := zone.Classify(c.RiskMean)
	if err != nil {
		return nil, err
	}

	top, err := rank.Top(attrs)
	if err != nil {
		return nil, err
	}
	featurePop, err := sample.Synthesize(src, top.Value, 0, 0, opts.Samples, sample.KindUnbounded)
	if err != nil {
		return nil, err
	}
	for _, v := range featurePop {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, errors.New(errors.ErrCodeOutOfDomain, "attribution %q value %g overflows its sample population", top.Feature, top.Value)
		}
	}
	domain := dotplot.PaddedDomain(featurePop, *opts.Margin)
	featureMarkers, err := dotplot.Layout(featurePop, domain.Min, domain.Max, opts.Bins)
	if err != nil {
		return nil, err
	}
	ranked, err := rank.Rank(attrs, rank.Ascending, opts.MaxFeatures)
	if err != nil {
		return nil, err
	}

	return &Result{
		Case:           c,
		Zone:           z,
		RiskMarkers:    riskMarkers,
		RiskBand:       band,
		RiskDropped:    dotplot.Dropped(risk, 0, 1),
		TopFeature:     top,
		TopFeatureName: top.Feature,
		FeatureMarkers: featureMarkers,
		FeatureDomain:  domain,
		RankedFeatures: ranked,
	}, nil
}
