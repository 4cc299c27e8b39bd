package sink

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/riskviz/pkg/compose"
	"github.com/matzehuels/riskviz/pkg/dotplot"
	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/zone"
)

const (
	marginX     = 40.0
	panelGap    = 50.0
	headerH     = 36.0
	axisH       = 40.0
	barRowH     = 20.0
	labelGutter = 110.0

	// comparisonFeatures is how many attributions each comparison column shows.
	comparisonFeatures = 3
)

var (
	unitDomain = dotplot.Domain{Min: 0, Max: 1}
	unitTicks  = []float64{0, 0.25, 0.5, 0.75, 1}
)

// ============================================================================
// Per-case views
// ============================================================================

func (r renderer) dotplotSVG(res *compose.Result) []byte {
	const panelTop, panelH = headerH + 40, 140.0
	h := panelTop + panelH + axisH + 10
	c := newCanvas(r.width, h)
	c.text(r.width/2, 22, 12, "middle", r.caption(res.Summary()))

	avail := r.width - 2*marginX - panelGap
	left := panel{x: marginX, y: panelTop, w: avail * 1.2 / 2.2, h: panelH, dom: unitDomain}
	right := panel{x: left.x + left.w + panelGap, y: panelTop, w: avail / 2.2, h: panelH, dom: res.FeatureDomain}

	r.riskDotplot(c, left, res)
	left.title(c, "Prediction uncertainty", res.Case.Label)

	right.markers(c, res.FeatureMarkers, 2.5)
	right.vline(c, 0, "black", 1, false)
	right.axis(c, ticksFor(res.FeatureDomain), "Attribution value")
	right.title(c, "Explanation uncertainty", "Top feature: "+res.TopFeatureName)

	return c.bytes()
}

func (r renderer) intervalSVG(res *compose.Result) []byte {
	barsH := max(120, float64(len(res.RankedFeatures))*barRowH)
	panelTop := headerH + 40
	h := panelTop + barsH + axisH + 10
	c := newCanvas(r.width, h)
	c.text(r.width/2, 22, 12, "middle", r.caption(res.Summary()))

	avail := r.width - 2*marginX - panelGap
	left := panel{x: marginX, y: panelTop, w: avail / 2.2, h: barsH, dom: unitDomain}
	right := panel{x: left.x + left.w + panelGap + labelGutter, y: panelTop, w: avail*1.2/2.2 - labelGutter, h: barsH}

	intervalLine(c, left, res.Case, 2, 5)
	left.axis(c, unitTicks, "Predicted risk")
	left.title(c, "Risk interval", res.Case.Label)

	attributionBars(c, right, res.RankedFeatures)
	right.title(c, "Feature contributions")

	return c.bytes()
}

func (r renderer) spectrumSVG(res *compose.Result) []byte {
	const barTop = headerH + 34
	h := barTop + 40 + axisH
	c := newCanvas(r.width, h)
	c.text(r.width/2, 22, 12, "middle", r.caption(res.Summary()))

	p := panel{x: marginX, y: barTop, w: r.width - 2*marginX, h: 40, dom: unitDomain}
	spectrumBar(c, p, res, true)
	p.axis(c, unitTicks, "Predicted risk")
	return c.bytes()
}

func (r renderer) dashboardSVG(res *compose.Result) []byte {
	w := r.width - 2*marginX
	strip := panel{x: marginX, y: headerH + 40, w: w, h: 36, dom: unitDomain}
	dots := panel{x: marginX, y: strip.bottom() + axisH + 36, w: w, h: 140, dom: unitDomain}
	barsH := max(100, float64(len(res.RankedFeatures))*barRowH)
	bars := panel{x: marginX + labelGutter, y: dots.bottom() + axisH + 36, w: w - labelGutter, h: barsH}
	h := bars.bottom() + axisH + 10

	c := newCanvas(r.width, h)
	c.text(r.width/2, 22, 13, "middle", r.caption(res.Summary()))

	spectrumBar(c, strip, res, false)
	strip.axis(c, unitTicks, "")
	strip.title(c, "Risk summary - "+res.Case.Label)

	r.riskDotplot(c, dots, res)
	dots.title(c, "Prediction uncertainty")

	attributionBars(c, bars, res.RankedFeatures)
	bars.title(c, "Feature contributions")

	return c.bytes()
}

// ============================================================================
// Batch view
// ============================================================================

func (r renderer) comparisonSVG(results []compose.Result) []byte {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b compose.Result) int {
		return cmp.Compare(a.Case.RiskMean, b.Case.RiskMean)
	})

	const (
		intervalTop = headerH + 40
		intervalH   = 40.0
		colGap      = 30.0
	)
	barsTop := intervalTop + intervalH + axisH + 20
	barsH := comparisonFeatures * barRowH * 1.4
	h := barsTop + barsH + axisH + 30

	c := newCanvas(r.width, h)
	c.text(r.width/2, 22, 13, "middle", r.caption("Comparative view across cases"))

	n := float64(len(sorted))
	colW := (r.width - 2*marginX - (n-1)*colGap) / n
	for i := range sorted {
		res := &sorted[i]
		x := marginX + float64(i)*(colW+colGap)

		iv := panel{x: x, y: intervalTop, w: colW, h: intervalH, dom: unitDomain}
		intervalLine(c, iv, res.Case, 2, 3.5)
		iv.axis(c, []float64{0, 0.5, 1}, "")
		iv.title(c, res.Case.Label)

		gutter := min(labelGutter, colW/2)
		bars := panel{x: x + gutter, y: barsTop, w: colW - gutter, h: barsH}
		top := res.RankedFeatures
		if len(top) > comparisonFeatures {
			top = top[len(top)-comparisonFeatures:]
		}
		attributionBars(c, bars, top)

		if sem := r.labels[res.Case.Label]; sem != "" {
			c.text(x+colW/2, bars.bottom()+axisH+14, 10, "middle", sem)
		}
	}
	return c.bytes()
}

// ============================================================================
// Shared elements
// ============================================================================

// riskDotplot draws the risk markers over [0, 1] with the mean line and
// dashed interval guides.
func (r renderer) riskDotplot(c *canvas, p panel, res *compose.Result) {
	p.markers(c, res.RiskMarkers, 2.5)
	p.vline(c, res.Case.RiskMean, "black", 1, false)
	p.vline(c, res.Case.CILow, colorGuide, 1, true)
	p.vline(c, res.Case.CIHigh, colorGuide, 1, true)
	p.axis(c, unitTicks, "Predicted risk")
}

// intervalLine draws [ci_low, ci_high] as a line with a dot at the mean and a
// light 0.5 reference.
func intervalLine(c *canvas, p panel, cs record.Case, width, dot float64) {
	p.vline(c, 0.5, colorRefLine, 1, true)
	y := p.py(0)
	c.line(p.px(cs.CILow), y, p.px(cs.CIHigh), y, "black", width, false)
	c.circle(p.px(cs.RiskMean), y, dot, "black", 1)
}

// spectrumBar draws the zone segments, the interval band and the mean tick.
func spectrumBar(c *canvas, p panel, res *compose.Result, labelsAbove bool) {
	c.group("spectrum", func() {
		for _, seg := range zone.Segments() {
			x0, x1 := p.px(seg.Start), p.px(seg.End)
			c.rect(x0, p.y, x1-x0, p.h, zoneFill[seg.Zone], 1)
			ly := p.y - 8
			if !labelsAbove {
				ly = p.y + p.h/2 + 4
			}
			c.text(p.px(seg.Anchor), ly, 10, "middle", seg.Zone.String())
		}
	})
	band := res.RiskBand
	c.rect(p.px(band.Low), p.y, p.px(band.High)-p.px(band.Low), p.h, colorBand, 0.5)
	x := p.px(res.Case.RiskMean)
	c.line(x, p.y, x, p.bottom(), "black", 2, false)
}

// attributionBars draws a horizontal bar per attribution. attrs are in
// ascending magnitude order; the largest is drawn on top. Feature names go in
// the gutter left of p.
func attributionBars(c *canvas, p panel, attrs []record.Attribution) {
	m := 0.0
	for _, a := range attrs {
		m = max(m, math.Abs(a.Value))
	}
	if m == 0 {
		m = 0.01
	}
	m *= 1.1
	if math.IsInf(m, 0) || math.IsNaN(m) {
		c.text(p.x+p.w/2, p.y+p.h/2, 10, "middle", "attributions out of range")
		p.axis(c, nil, "Attribution value")
		return
	}
	p.dom = dotplot.Domain{Min: -m, Max: m}

	n := len(attrs)
	rowH := barRowH
	if n > 0 {
		rowH = min(barRowH*1.4, p.h/float64(n))
	}
	zero := p.px(0)
	c.group("bars", func() {
		for i, a := range attrs {
			y := p.y + float64(n-1-i)*rowH
			x := p.px(a.Value)
			c.rect(min(x, zero), y+rowH*0.15, math.Abs(x-zero), rowH*0.7, colorBar, 1)
			c.text(p.x-6, y+rowH*0.5+3, 9, "end", a.Feature)
		}
	})
	if n == 0 {
		c.text(p.x+p.w/2, p.y+p.h/2, 10, "middle", "no attributions")
	}
	c.line(zero, p.y, zero, p.bottom(), "black", 1, false)
	p.axis(c, ticksFor(p.dom), "Attribution value")
}
