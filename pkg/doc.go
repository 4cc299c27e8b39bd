// Package pkg provides the core libraries for riskviz.
//
// # Overview
//
// riskviz draws a model's risk estimate for a case together with its
// uncertainty and the features that drove it. The libraries are organized in
// three layers:
//
//  1. Core: [sample], [dotplot], [rank], [zone] and [compose] turn a case and
//     its attributions into a layout.
//  2. Boundary: [record], [io], [httputil], [config] and [errors] read and
//     validate input and settings.
//  3. Output: [render/sink], [pipeline], [cache] and [observability] draw,
//     cache and instrument layouts.
//
// # Data Flow
//
//	cases.csv + shap.csv
//	         ↓
//	    [io] (decode and validate records)
//	         ↓
//	    [compose] (samples → dotplot markers, confidence band → zone,
//	               attributions → ranking and top-feature markers)
//	         ↓
//	    [render/sink] (dotplot, interval, spectrum, dashboard, comparison)
//	         ↓
//	    SVG/PNG/PDF/JSON/YAML
//
// # Quick Start
//
//	cases, index, err := pipeline.Load(ctx, "cases.csv", "shap.csv")
//	if err != nil {
//	    return err
//	}
//	batch, err := compose.Compose(ctx, cases, index, compose.Options{Seed: 42})
//	if err != nil {
//	    return err
//	}
//	svg, err := sink.Render(&batch.Results[0], sink.ViewDashboard, sink.FormatSVG)
//
// Cases that cannot be laid out are collected in batch.Failures; the rest of
// the batch is unaffected.
//
// [sample]: github.com/matzehuels/riskviz/pkg/sample
// [dotplot]: github.com/matzehuels/riskviz/pkg/dotplot
// [rank]: github.com/matzehuels/riskviz/pkg/rank
// [zone]: github.com/matzehuels/riskviz/pkg/zone
// [compose]: github.com/matzehuels/riskviz/pkg/compose
// [record]: github.com/matzehuels/riskviz/pkg/record
// [io]: github.com/matzehuels/riskviz/pkg/io
// [httputil]: github.com/matzehuels/riskviz/pkg/httputil
// [config]: github.com/matzehuels/riskviz/pkg/config
// [errors]: github.com/matzehuels/riskviz/pkg/errors
// [render/sink]: github.com/matzehuels/riskviz/pkg/render/sink
// [pipeline]: github.com/matzehuels/riskviz/pkg/pipeline
// [cache]: github.com/matzehuels/riskviz/pkg/cache
// [observability]: github.com/matzehuels/riskviz/pkg/observability
package pkg
