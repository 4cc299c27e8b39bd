package dotplot

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/riskviz/pkg/errors"
)

const (
	// DefaultBins is the number of bins used when none is given.
	DefaultBins = 20

	// DefaultSpread is the half-height of the stacking range.
	DefaultSpread = 0.4

	// DefaultMargin pads attribution domains on both sides.
	DefaultMargin = 0.05
)

// Point is a single marker position.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Domain is a closed value range used for layout and axis drawing.
type Domain struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Layout bins values over [domainMin, domainMax) and returns one Point per
// retained value, in ascending value order. The domain must be finite and
// non-empty. bins <= 0 selects DefaultBins.
// values is not modified.
func Layout(values []float64, domainMin, domainMax float64, bins int) ([]Point, error) {
	span := domainMax - domainMin
	if math.IsNaN(span) || math.IsInf(span, 0) || span <= 0 {
		return nil, errors.New(errors.ErrCodeEmptyDomain, "layout domain [%g, %g] is empty", domainMin, domainMax)
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	slices.SortStableFunc(sorted, cmp.Compare[float64])

	edges := Edges(domainMin, domainMax, bins)
	points := make([]Point, 0, len(sorted))

	i := 0
	for b := 0; b < bins; b++ {
		lo, hi := edges[b], edges[b+1]
		for i < len(sorted) && sorted[i] < lo {
			i++
		}
		start := i
		for i < len(sorted) && sorted[i] < hi {
			i++
		}
		points = appendStack(points, sorted[start:i])
	}
	return points, nil
}

// Edges returns the bins+1 bin boundaries of [domainMin, domainMax]. The first
// edge is exactly domainMin and the last exactly domainMax.
func Edges(domainMin, domainMax float64, bins int) []float64 {
	if bins <= 0 {
		bins = DefaultBins
	}
	edges := make([]float64, bins+1)
	step := (domainMax - domainMin) / float64(bins)
	for i := range edges {
		edges[i] = domainMin + float64(i)*step
	}
	edges[bins] = domainMax
	return edges
}

// Offsets returns the k stacking offsets of a bin.
func Offsets(k int) []float64 {
	switch {
	case k <= 0:
		return nil
	case k == 1:
		return []float64{0}
	}
	ys := make([]float64, k)
	step := 2 * DefaultSpread / float64(k-1)
	for j := range ys {
		ys[j] = -DefaultSpread + float64(j)*step
	}
	ys[k-1] = DefaultSpread
	return ys
}

// Dropped counts the values Layout discards for the domain
// [domainMin, domainMax).
func Dropped(values []float64, domainMin, domainMax float64) int {
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || v < domainMin || v >= domainMax {
			n++
		}
	}
	return n
}

// PaddedDomain returns a domain that covers values and zero, widened by margin
// on each side. It is used for attribution populations, which carry a sign.
func PaddedDomain(values []float64, margin float64) Domain {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return Domain{Min: lo - margin, Max: hi + margin}
}

func appendStack(points []Point, bin []float64) []Point {
	for j, y := range Offsets(len(bin)) {
		points = append(points, Point{X: bin[j], Y: y})
	}
	return points
}
