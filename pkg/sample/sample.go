// Package sample synthesizes value populations from summary statistics.
//
// Given a mean and a confidence interval (or a single attribution value) the
// synthesizer draws independent Gaussian values that look like a bootstrap
// distribution around the summary. The draws are for display only; they do
// not come from any fitted posterior.
//
// Randomness is always supplied by the caller through a [Source]. Two calls
// with sources built from the same seed and stream produce identical output:
//
//	src := sample.NewSource(42, uint64(c.ID))
//	values, err := sample.Synthesize(src, c.RiskMean, c.CILow, c.CIHigh, 200, sample.KindBounded)
package sample

import (
	"math"
	"math/rand/v2"

	"github.com/matzehuels/riskviz/pkg/errors"
)

const (
	// Z95 is the two-sided 95% normal quantile used to turn an interval width
	// into a standard deviation.
	Z95 = 1.96

	// Epsilon keeps the spread denominator away from zero.
	Epsilon = 1e-8

	// FallbackSpread replaces a non-positive bounded spread so a zero-width
	// interval still yields a visible cloud rather than one stacked value.
	FallbackSpread = 0.01

	// ProportionalSpread and SpreadFloor define the unbounded spread:
	// 0.3*|mean| + 0.02.
	ProportionalSpread = 0.3
	SpreadFloor        = 0.02

	// DefaultCount is the population size used by the pipeline.
	DefaultCount = 200
)

// Kind selects the synthesis rule.
type Kind int

const (
	// KindBounded synthesizes risk probabilities: spread from the interval,
	// values clamped into [0, 1].
	KindBounded Kind = iota
	// KindUnbounded synthesizes attribution values: spread proportional to
	// the magnitude, no clamping.
	KindUnbounded
)

func (k Kind) String() string {
	switch k {
	case KindBounded:
		return "bounded"
	case KindUnbounded:
		return "unbounded"
	}
	return "unknown"
}

// Source produces standard normal draws. *rand.Rand satisfies it.
type Source interface {
	NormFloat64() float64
}

// NewSource returns a PCG-backed generator for the given seed and stream.
// The pipeline uses the case ID as the stream so every case draws from its own
// generator and cases can be processed in any order.
func NewSource(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream^0x9e3779b97f4a7c15))
}

// Spread returns the standard deviation used for the given kind.
// For KindBounded the interval [low, high] determines it; for KindUnbounded
// only the mean does.
func Spread(mean, low, high float64, kind Kind) float64 {
	if kind == KindUnbounded {
		return ProportionalSpread*math.Abs(mean) + SpreadFloor
	}
	s := (high - low) / (2*Z95 + Epsilon)
	if s <= 0 {
		return FallbackSpread
	}
	return s
}

// Synthesize draws count values around mean.
//
// For KindBounded, low and high are the confidence interval and every value is
// clamped into [0, 1]. For KindUnbounded, low and high are ignored.
//
// Errors:
//   - INVALID_COUNT if count <= 0
//   - INVALID_RANGE if high < low (KindBounded) or an input is not finite
func Synthesize(src Source, mean, low, high float64, count int, kind Kind) ([]float64, error) {
	if count <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidCount, "sample count must be positive, got %d", count)
	}
	if !finite(mean) {
		return nil, errors.New(errors.ErrCodeInvalidRange, "mean is not a finite number")
	}
	if kind == KindBounded {
		if !finite(low) || !finite(high) {
			return nil, errors.New(errors.ErrCodeInvalidRange, "interval bounds must be finite")
		}
		if high < low {
			return nil, errors.New(errors.ErrCodeInvalidRange, "interval high (%g) is below low (%g)", high, low)
		}
	}

	sigma := Spread(mean, low, high, kind)
	out := make([]float64, count)
	for i := range out {
		v := mean + sigma*src.NormFloat64()
		if kind == KindBounded {
			v = max(0, min(v, 1))
		}
		out[i] = v
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
