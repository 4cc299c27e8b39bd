package sink

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/riskviz/pkg/compose"
	"github.com/matzehuels/riskviz/pkg/dotplot"
	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/record"
	"github.com/matzehuels/riskviz/pkg/render"
)

var (
	midCase = record.Case{ID: 2, RiskMean: 0.5, CILow: 0.3, CIHigh: 0.7, Label: "MID_wide"}
	midAttr = []record.Attribution{
		{CaseID: 2, Feature: "age", Value: 0.12},
		{CaseID: 2, Feature: "chol", Value: -0.31},
		{CaseID: 2, Feature: "thalach", Value: 0.05},
		{CaseID: 2, Feature: "oldpeak", Value: -0.02},
	}
	lowCase = record.Case{ID: 1, RiskMean: 0.1, CILow: 0.08, CIHigh: 0.12, Label: "LOW_tight"}
	lowAttr = []record.Attribution{{CaseID: 1, Feature: "age", Value: -0.2}}
)

func mustResult(t *testing.T, c record.Case, attrs []record.Attribution) *compose.Result {
	t.Helper()
	res, err := compose.Case(c, attrs, compose.Options{}.WithDefaults())
	if err != nil {
		t.Fatalf("compose.Case: %v", err)
	}
	return res
}

// wellFormed fails the test unless data parses as XML.
func wellFormed(t *testing.T, data []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("invalid SVG: %v\n%s", err, data)
		}
	}
}

func TestRenderViews(t *testing.T) {
	res := mustResult(t, midCase, midAttr)
	tests := []struct {
		view View
		want []string
	}{
		{ViewDotplot, []string{"Prediction uncertainty", "Explanation uncertainty", "Top feature: chol", "MID_wide | risk=0.500"}},
		{ViewInterval, []string{"Risk interval", "Feature contributions", "oldpeak", "thalach"}},
		{ViewSpectrum, []string{"Low", "Medium", "High", "#fff3b0"}},
		{ViewDashboard, []string{"Risk summary - MID_wide", "Prediction uncertainty", "Feature contributions"}},
		{ViewComparison, []string{"Comparative view across cases", "MID_wide"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			svg, err := Render(res, tt.view, FormatSVG, WithDataset("HEART"))
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			wellFormed(t, svg)
			if !bytes.HasPrefix(svg, []byte("<svg")) {
				t.Errorf("output does not start with <svg")
			}
			for _, w := range tt.want {
				if !strings.Contains(string(svg), w) {
					t.Errorf("%s view missing %q", tt.view, w)
				}
			}
		})
	}
}

func TestRenderDotplotMarkers(t *testing.T) {
	res := mustResult(t, midCase, midAttr)
	svg, err := Render(res, ViewDotplot, FormatSVG)
	if err != nil {
		t.Fatal(err)
	}
	want := len(res.RiskMarkers) + len(res.FeatureMarkers)
	if got := strings.Count(string(svg), "<circle"); got != want {
		t.Errorf("circles = %d, want %d", got, want)
	}
}

func TestRenderOptions(t *testing.T) {
	res := mustResult(t, midCase, midAttr)
	svg, err := Render(res, ViewSpectrum, FormatSVG, WithWidth(900), WithTitle("Custom & title"))
	if err != nil {
		t.Fatal(err)
	}
	s := string(svg)
	if !strings.Contains(s, `width="900"`) {
		t.Error("WithWidth not applied")
	}
	if !strings.Contains(s, "Custom &amp; title") {
		t.Error("title not escaped or not applied")
	}
}

func TestRenderData(t *testing.T) {
	res := mustResult(t, midCase, midAttr)

	data, err := Render(res, ViewDotplot, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var decoded compose.Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("JSON output does not decode: %v", err)
	}
	if decoded.Zone != res.Zone || len(decoded.RiskMarkers) != len(res.RiskMarkers) {
		t.Errorf("decoded result differs: zone %v markers %d", decoded.Zone, len(decoded.RiskMarkers))
	}

	data, err = Render(res, ViewDotplot, FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "zone: Medium") {
		t.Errorf("YAML output missing zone:\n%s", data)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		t.Errorf("YAML output does not parse: %v", err)
	}
}

func TestRenderBatch(t *testing.T) {
	results := []compose.Result{*mustResult(t, midCase, midAttr), *mustResult(t, lowCase, lowAttr)}
	labels := map[string]string{"LOW_tight": "Confident low", "MID_wide": "Uncertain mid"}

	svg, err := RenderBatch(results, FormatSVG, WithLabels(labels))
	if err != nil {
		t.Fatal(err)
	}
	wellFormed(t, svg)
	s := string(svg)

	// Columns run from lowest to highest risk.
	low, mid := strings.Index(s, ">LOW_tight<"), strings.Index(s, ">MID_wide<")
	if low < 0 || mid < 0 || low > mid {
		t.Errorf("columns not sorted by risk: LOW at %d, MID at %d", low, mid)
	}
	for _, sem := range []string{"Confident low", "Uncertain mid"} {
		if !strings.Contains(s, sem) {
			t.Errorf("missing semantic label %q", sem)
		}
	}
	// Only the three largest attributions per column.
	if strings.Contains(s, ">oldpeak<") {
		t.Error("comparison column shows more than three features")
	}

	if _, err := RenderBatch(nil, FormatSVG); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty batch: err = %v, want INVALID_INPUT", err)
	}
	data, err := RenderBatch(results, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []compose.Result
	if err := json.Unmarshal(data, &decoded); err != nil || len(decoded) != 2 {
		t.Errorf("batch JSON = %d results, %v", len(decoded), err)
	}
}

func TestRenderErrors(t *testing.T) {
	res := mustResult(t, midCase, midAttr)
	if _, err := Render(nil, ViewDotplot, FormatSVG); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("nil result: err = %v", err)
	}
	if _, err := Render(res, View("radar"), FormatSVG); !errors.Is(err, errors.ErrCodeInvalidView) {
		t.Errorf("bad view: err = %v", err)
	}
	if _, err := Render(res, ViewDotplot, Format("gif")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad format: err = %v", err)
	}
}

func TestRenderPNG(t *testing.T) {
	res := mustResult(t, midCase, midAttr)
	png, err := Render(res, ViewSpectrum, FormatPNG, WithScale(1))
	if !render.Available() {
		if !errors.Is(err, errors.ErrCodeUnsupported) {
			t.Errorf("without rsvg-convert: err = %v, want UNSUPPORTED", err)
		}
		return
	}
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestParse(t *testing.T) {
	for _, s := range []string{"dotplot", "Interval", " spectrum ", "dashboard", "comparison"} {
		if _, err := ParseView(s); err != nil {
			t.Errorf("ParseView(%q): %v", s, err)
		}
	}
	if _, err := ParseView("pie"); !errors.Is(err, errors.ErrCodeInvalidView) {
		t.Errorf("ParseView(pie) = %v", err)
	}

	if f, err := ParseFormat("yml"); err != nil || f != FormatYAML {
		t.Errorf("ParseFormat(yml) = %v, %v", f, err)
	}
	if _, err := ParseFormat("bmp"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ParseFormat(bmp) = %v", err)
	}
	if FormatSVG.ContentType() != "image/svg+xml" || FormatPDF.Ext() != "pdf" {
		t.Error("format metadata mismatch")
	}
}

func TestTicksFor(t *testing.T) {
	ticks := ticksFor(dotplot.Domain{Min: -0.13, Max: 0.42})
	if len(ticks) < 3 {
		t.Fatalf("ticks = %v, want at least 3", ticks)
	}
	for _, v := range ticks {
		if v < -0.13 || v > 0.42 {
			t.Errorf("tick %g outside domain", v)
		}
	}
	if got := formatTick(0.5); got != "0.5" {
		t.Errorf("formatTick(0.5) = %q", got)
	}
	if got := formatTick(1); got != "1.0" {
		t.Errorf("formatTick(1) = %q", got)
	}
}

func TestTicksForNonFiniteDomain(t *testing.T) {
	tests := []struct {
		name string
		dom  dotplot.Domain
	}{
		{"infinite max", dotplot.Domain{Min: -0.05, Max: math.Inf(1)}},
		{"infinite min", dotplot.Domain{Min: math.Inf(-1), Max: 1}},
		{"overflowing span", dotplot.Domain{Min: -math.MaxFloat64, Max: math.MaxFloat64}},
		{"nan", dotplot.Domain{Min: math.NaN(), Max: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ticks := ticksFor(tt.dom); len(ticks) != 0 {
				t.Errorf("ticksFor(%+v) = %v, want none", tt.dom, ticks)
			}
		})
	}
	for _, raw := range []float64{math.Inf(1), math.NaN(), 0, -1} {
		if got := niceStep(raw); got != 1 {
			t.Errorf("niceStep(%g) = %g, want 1", raw, got)
		}
	}
}

func TestRenderExtremeAttributions(t *testing.T) {
	res := mustResult(t, midCase, midAttr)
	res.RankedFeatures[len(res.RankedFeatures)-1].Value = -math.MaxFloat64
	res.FeatureDomain = dotplot.Domain{Min: -math.MaxFloat64, Max: 0.05}

	for _, view := range []View{ViewDotplot, ViewInterval, ViewDashboard} {
		t.Run(string(view), func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				_, err := Render(res, view, FormatSVG)
				done <- err
			}()
			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("Render: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Render did not return")
			}
		})
	}
}
