// Package render turns composed case layouts into figures.
//
// # Overview
//
// The figures themselves are drawn by the [sink] subpackage as SVG. This
// package holds the format conversion shared by every view:
//
//	svg, err := sink.Render(result, sink.ViewDashboard, sink.FormatSVG)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert SVG using the external rsvg-convert tool (from
// librsvg). SVG, JSON and YAML output need no external tools.
//
// [sink]: github.com/matzehuels/riskviz/pkg/render/sink
package render
