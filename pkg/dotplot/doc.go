// Package dotplot lays out value populations as quantile dotplots.
//
// A quantile dotplot draws every value as its own marker. Markers are binned
// along the value axis and stacked vertically inside their bin so that no two
// markers of a bin share a y position. The result approximates the shape of
// the distribution without any smoothing.
//
// # Binning
//
// The domain [min, max] is split into equal-width half-open bins [lo, hi).
// The last bin is half-open too: a value exactly equal to max is dropped, as
// is anything outside the domain. Callers that want to report dropped values
// use [Dropped].
//
// # Stacking
//
// A bin holding k > 1 values assigns offsets evenly spaced over
// [-DefaultSpread, +DefaultSpread] in ascending value order. A bin holding a
// single value places it on the centre line (y = 0).
//
// # Usage
//
//	points, err := dotplot.Layout(values, 0, 1, dotplot.DefaultBins)
//	if err != nil {
//	    return err // EMPTY_DOMAIN
//	}
//	for _, p := range points {
//	    drawCircle(p.X, p.Y)
//	}
package dotplot
