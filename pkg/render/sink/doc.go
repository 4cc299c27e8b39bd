// Package sink renders composed case layouts into output formats.
//
// # Views
//
// A view is one figure design over [compose.Result]:
//
//   - dotplot: risk quantile dotplot with mean and interval guides, next to
//     the dotplot of the top feature's attribution with a zero guide
//   - interval: the interval as a line with a mean marker and a 0.5 guide,
//     next to a bar chart of every attribution
//   - spectrum: the Low/Medium/High risk bar with the interval band and a
//     mean tick
//   - dashboard: spectrum, risk dotplot and attribution bars stacked
//   - comparison: a batch view with one column per case, sorted by risk,
//     each holding a small interval plot, the top attributions and the
//     semantic label of the case
//
// # Formats
//
// SVG is built directly into a buffer. PNG and PDF convert that SVG with
// [render.ToPNG] and [render.ToPDF] and need rsvg-convert. JSON and YAML
// export the layout data itself, which is independent of the view.
//
//	svg, err := sink.Render(result, sink.ViewDashboard, sink.FormatSVG,
//	    sink.WithWidth(900),
//	    sink.WithDataset("HEART"),
//	)
//	cmp, err := sink.RenderBatch(results, sink.FormatPNG, sink.WithLabels(labels))
//
// [compose.Result]: github.com/matzehuels/riskviz/pkg/compose.Result
// [render.ToPNG]: github.com/matzehuels/riskviz/pkg/render.ToPNG
// [render.ToPDF]: github.com/matzehuels/riskviz/pkg/render.ToPDF
package sink
