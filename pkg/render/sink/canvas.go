package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"

	"github.com/matzehuels/riskviz/pkg/dotplot"
	"github.com/matzehuels/riskviz/pkg/zone"
)

const (
	colorMarker  = "#1f77b4"
	colorBar     = "#8888ff"
	colorGuide   = "gray"
	colorRefLine = "lightgray"
	colorBand    = "gray"
	colorText    = "#222222"
	fontFamily   = "Helvetica, Arial, sans-serif"
)

var zoneFill = map[zone.Zone]string{
	zone.Low:    "#d0f0d0",
	zone.Medium: "#fff3b0",
	zone.High:   "#f4b2b0",
}

// canvas accumulates SVG elements.
type canvas struct {
	buf bytes.Buffer
}

func newCanvas(w, h float64) *canvas {
	c := &canvas{}
	fmt.Fprintf(&c.buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="%s">`+"\n",
		w, h, w, h, fontFamily)
	fmt.Fprintf(&c.buf, `  <rect width="%.1f" height="%.1f" fill="white"/>`+"\n", w, h)
	return c
}

func (c *canvas) bytes() []byte {
	c.buf.WriteString("</svg>\n")
	return c.buf.Bytes()
}

func (c *canvas) rect(x, y, w, h float64, fill string, opacity float64) {
	fmt.Fprintf(&c.buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"`, x, y, w, h, fill)
	if opacity < 1 {
		fmt.Fprintf(&c.buf, ` fill-opacity="%.2f"`, opacity)
	}
	c.buf.WriteString("/>\n")
}

func (c *canvas) line(x1, y1, x2, y2 float64, stroke string, width float64, dashed bool) {
	fmt.Fprintf(&c.buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="%.1f"`,
		x1, y1, x2, y2, stroke, width)
	if dashed {
		c.buf.WriteString(` stroke-dasharray="4 3"`)
	}
	c.buf.WriteString("/>\n")
}

func (c *canvas) circle(cx, cy, r float64, fill string, opacity float64) {
	fmt.Fprintf(&c.buf, `  <circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"`, cx, cy, r, fill)
	if opacity < 1 {
		fmt.Fprintf(&c.buf, ` fill-opacity="%.2f"`, opacity)
	}
	c.buf.WriteString("/>\n")
}

// text writes a label. anchor is start, middle or end.
func (c *canvas) text(x, y, size float64, anchor, s string) {
	fmt.Fprintf(&c.buf, `  <text x="%.1f" y="%.1f" font-size="%.0f" text-anchor="%s" fill="%s">%s</text>`+"\n",
		x, y, size, anchor, colorText, escapeXML(s))
}

func (c *canvas) group(class string, fn func()) {
	fmt.Fprintf(&c.buf, `  <g class="%s">`+"\n", class)
	fn()
	c.buf.WriteString("  </g>\n")
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// panel maps data coordinates into a pixel box. The x axis spans dom; the y
// axis spans [-0.5, 0.5] so dotplot stacks in [-0.4, 0.4] keep a margin.
type panel struct {
	x, y, w, h float64
	dom        dotplot.Domain
}

func (p panel) px(v float64) float64 {
	span := p.dom.Max - p.dom.Min
	if span <= 0 {
		return p.x + p.w/2
	}
	return p.x + (v-p.dom.Min)/span*p.w
}

func (p panel) py(v float64) float64 { return p.y + p.h/2 - v*p.h }

func (p panel) bottom() float64 { return p.y + p.h }

// vline draws a full-height guide at data value v if it is inside the domain.
func (p panel) vline(c *canvas, v float64, stroke string, width float64, dashed bool) {
	if v < p.dom.Min || v > p.dom.Max {
		return
	}
	x := p.px(v)
	c.line(x, p.y, x, p.bottom(), stroke, width, dashed)
}

// axis draws the baseline, tick labels and an axis label under the panel.
func (p panel) axis(c *canvas, ticks []float64, label string) {
	c.line(p.x, p.bottom(), p.x+p.w, p.bottom(), colorText, 1, false)
	for _, t := range ticks {
		x := p.px(t)
		c.line(x, p.bottom(), x, p.bottom()+4, colorText, 1, false)
		c.text(x, p.bottom()+15, 9, "middle", formatTick(t))
	}
	if label != "" {
		c.text(p.x+p.w/2, p.bottom()+30, 10, "middle", label)
	}
}

func (p panel) title(c *canvas, lines ...string) {
	for i, l := range lines {
		c.text(p.x+p.w/2, p.y-8-float64(len(lines)-1-i)*13, 10, "middle", l)
	}
}

// markers draws dotplot points.
func (p panel) markers(c *canvas, pts []dotplot.Point, r float64) {
	c.group("markers", func() {
		for _, pt := range pts {
			c.circle(p.px(pt.X), p.py(pt.Y), r, colorMarker, 0.8)
		}
	})
}

func formatTick(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	for len(s) > 3 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s
}

// ticksFor returns about five evenly spaced ticks inside dom.
func ticksFor(dom dotplot.Domain) []float64 {
	span := dom.Max - dom.Min
	if math.IsNaN(span) || math.IsInf(span, 0) {
		return nil
	}
	if span <= 0 {
		return []float64{dom.Min}
	}
	step := niceStep(span / 4)
	start := ceilTo(dom.Min, step)
	var ticks []float64
	for t := start; t <= dom.Max+step*1e-9; t += step {
		ticks = append(ticks, roundTo(t, step))
	}
	return ticks
}

func niceStep(raw float64) float64 {
	if !(raw > 0) || math.IsInf(raw, 0) {
		return 1
	}
	mag := 1.0
	for raw >= 10*mag {
		mag *= 10
	}
	for raw < mag {
		mag /= 10
	}
	switch f := raw / mag; {
	case f <= 1:
		return mag
	case f <= 2:
		return 2 * mag
	case f <= 5:
		return 5 * mag
	}
	return 10 * mag
}

func ceilTo(v, step float64) float64 {
	n := int(v / step)
	if float64(n)*step < v {
		n++
	}
	return float64(n) * step
}

func roundTo(v, step float64) float64 {
	n := v / step
	if n < 0 {
		return float64(int(n-0.5)) * step
	}
	return float64(int(n+0.5)) * step
}
