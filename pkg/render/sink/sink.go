package sink

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/riskviz/pkg/compose"
	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/render"
)

// View names a figure design.
type View string

const (
	ViewDotplot    View = "dotplot"
	ViewInterval   View = "interval"
	ViewSpectrum   View = "spectrum"
	ViewDashboard  View = "dashboard"
	ViewComparison View = "comparison"
)

// Views lists the per-case views. ViewComparison is batch-level and rendered
// with [RenderBatch].
var Views = []View{ViewDotplot, ViewInterval, ViewSpectrum, ViewDashboard}

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	if v == ViewComparison || slices.Contains(Views, v) {
		return v, nil
	}
	return "", errors.New(errors.ErrCodeInvalidView, "unknown view %q (valid: dotplot, interval, spectrum, dashboard, comparison)", s)
}

// Format names an output encoding.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatSVG, FormatPNG, FormatPDF, FormatJSON, FormatYAML}

// ParseFormat validates a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "yml" {
		f = FormatYAML
	}
	if slices.Contains(Formats, f) {
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (valid: svg, png, pdf, json, yaml)", s)
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string { return string(f) }

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	}
	return "application/octet-stream"
}

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	width   float64
	title   string
	dataset string
	labels  map[string]string
	scale   float64
}

// DefaultWidth is the figure width in SVG user units.
const DefaultWidth = 720

func WithWidth(w int) Option {
	return func(r *renderer) {
		if w > 0 {
			r.width = float64(w)
		}
	}
}

// WithTitle replaces the generated figure title.
func WithTitle(t string) Option { return func(r *renderer) { r.title = t } }

// WithDataset prefixes titles with a dataset name such as "HEART".
func WithDataset(name string) Option { return func(r *renderer) { r.dataset = name } }

// WithLabels maps case labels to the semantic labels shown in the
// comparison view.
func WithLabels(labels map[string]string) Option { return func(r *renderer) { r.labels = labels } }

// WithScale sets the PNG scale factor (default 2.0).
func WithScale(s float64) Option { return func(r *renderer) { r.scale = s } }

func newRenderer(opts ...Option) renderer {
	r := renderer{width: DefaultWidth, scale: 2.0}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// caption builds the figure title from the dataset name and text.
func (r renderer) caption(text string) string {
	if r.title != "" {
		return r.title
	}
	if r.dataset != "" {
		return r.dataset + " - " + text
	}
	return text
}

// Render renders one case in the given view and format. For JSON and YAML the
// view is ignored and the layout data is exported.
func Render(res *compose.Result, view View, format Format, opts ...Option) ([]byte, error) {
	if res == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil result")
	}
	switch format {
	case FormatJSON:
		return RenderJSON(res)
	case FormatYAML:
		return RenderYAML(res)
	}

	r := newRenderer(opts...)
	var svg []byte
	switch view {
	case ViewDotplot:
		svg = r.dotplotSVG(res)
	case ViewInterval:
		svg = r.intervalSVG(res)
	case ViewSpectrum:
		svg = r.spectrumSVG(res)
	case ViewDashboard:
		svg = r.dashboardSVG(res)
	case ViewComparison:
		svg = r.comparisonSVG([]compose.Result{*res})
	default:
		return nil, errors.New(errors.ErrCodeInvalidView, "unknown view %q", view)
	}
	return r.encode(svg, format)
}

// RenderBatch renders the comparison view over several cases.
func RenderBatch(results []compose.Result, format Format, opts ...Option) ([]byte, error) {
	switch format {
	case FormatJSON:
		return RenderJSON(results)
	case FormatYAML:
		return RenderYAML(results)
	}
	if len(results) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "comparison needs at least one case")
	}
	r := newRenderer(opts...)
	return r.encode(r.comparisonSVG(results), format)
}

func (r renderer) encode(svg []byte, format Format) ([]byte, error) {
	switch format {
	case FormatSVG:
		return svg, nil
	case FormatPNG:
		return render.ToPNG(svg, r.scale)
	case FormatPDF:
		return render.ToPDF(svg)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", format)
}

// RenderJSON exports v as indented JSON.
func RenderJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderYAML exports v as YAML.
func RenderYAML(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return data, nil
}
