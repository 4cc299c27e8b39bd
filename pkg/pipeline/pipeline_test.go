package pipeline

import (
	"testing"

	"github.com/matzehuels/riskviz/pkg/errors"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"yaml", false},
		{"yml", true}, // accepted by the sink parser, but not in canonical form
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Invalid format should fail with INVALID_FORMAT, got %v", err)
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateView(t *testing.T) {
	tests := []struct {
		view    string
		wantErr bool
	}{
		{"dotplot", false},
		{"interval", false},
		{"spectrum", false},
		{"dashboard", false},
		{"comparison", false},
		{"Dotplot", true},
		{"violin", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateView(tt.view)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateView(%q) error = %v, wantErr %v", tt.view, err, tt.wantErr)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("zero options should validate: %v", err)
	}

	if opts.Samples != 200 || opts.Bins != 20 || *opts.Margin != 0.05 || opts.Seed != 42 || opts.Workers != 1 {
		t.Errorf("compose defaults not applied: %+v", opts)
	}
	if opts.View != DefaultView || opts.Width != DefaultWidth {
		t.Errorf("render defaults not applied: view=%q width=%d", opts.View, opts.Width)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != "svg" {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discarding logger")
	}

	// Defaults must not alias the package-level slice.
	opts.Formats[0] = "png"
	if DefaultFormats[0] != "svg" {
		t.Error("SetRenderDefaults aliased DefaultFormats")
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"negative samples", Options{Samples: -1}, errors.ErrCodeInvalidCount},
		{"negative margin", Options{Margin: ptr(-0.1)}, errors.ErrCodeInvalidInput},
		{"negative max features", Options{MaxFeatures: -2}, errors.ErrCodeInvalidInput},
		{"unknown view", Options{View: "pie"}, errors.ErrCodeInvalidView},
		{"unknown format", Options{Formats: []string{"svg", "tiff"}}, errors.ErrCodeInvalidFormat},
		{"negative width", Options{Width: -10}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestOptionsZeroMargin(t *testing.T) {
	opts := Options{Margin: ptr(0.0)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if *opts.Margin != 0 {
		t.Errorf("Margin = %g, want explicit 0 kept", *opts.Margin)
	}
	if got := *opts.ComposeOptions().Margin; got != 0 {
		t.Errorf("ComposeOptions().Margin = %g, want 0", got)
	}
	var def Options
	if err := def.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.LayoutKeyOpts() == def.LayoutKeyOpts() {
		t.Error("zero margin should key differently from the default margin")
	}
}

func TestOptionsKeyOpts(t *testing.T) {
	opts := Options{Seed: 7, MaxFeatures: 3, View: "spectrum", Dataset: "PIMA"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}

	lk := opts.LayoutKeyOpts()
	if lk.Seed != 7 || lk.MaxFeatures != 3 || lk.Samples != 200 {
		t.Errorf("LayoutKeyOpts = %+v", lk)
	}
	ak := opts.ArtifactKeyOpts("png")
	if ak.View != "spectrum" || ak.Format != "png" || ak.Dataset != "PIMA" {
		t.Errorf("ArtifactKeyOpts = %+v", ak)
	}

	co := opts.ComposeOptions()
	if co.Seed != 7 || co.Logger != opts.Logger {
		t.Errorf("ComposeOptions = %+v", co)
	}
}
