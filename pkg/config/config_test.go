package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/riskviz/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "riskviz.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no riskviz.toml here

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[core]
seed = 7
samples = 500
workers = 4

[render]
formats = ["svg", "png"]

[cache]
backend = "none"
ttl = "1h"

[labels]
LOW_tight = "Clearly low"
EDGE_case = "Borderline"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Core.Seed = 7
	want.Core.Samples = 500
	want.Core.Workers = 4
	want.Render.Formats = []string{"svg", "png"}
	want.Cache.Backend = BackendNone
	want.Cache.TTL = time.Hour
	want.Labels = map[string]string{
		"LOW_tight":  "Clearly low",
		"MID_wide":   "Uncertain mid",
		"HIGH_tight": "Confident high",
		"EDGE_case":  "Borderline",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[core]\nseed = 7\n")
	t.Setenv("RISKVIZ_SEED", "99")
	t.Setenv("RISKVIZ_FORMATS", "pdf,json")
	t.Setenv("RISKVIZ_ADDR", "127.0.0.1:9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Core.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.Core.Seed)
	}
	if diff := cmp.Diff([]string{"pdf", "json"}, cfg.Render.Formats); diff != "" {
		t.Errorf("Formats mismatch (-want +got):\n%s", diff)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"bad toml", "[core\nseed = 1", errors.ErrCodeInvalidInput},
		{"zero samples", "[core]\nsamples = 0", errors.ErrCodeInvalidInput},
		{"negative margin", "[core]\nmargin = -0.1", errors.ErrCodeInvalidInput},
		{"unknown backend", "[cache]\nbackend = \"memcached\"", errors.ErrCodeInvalidInput},
		{"redis without url", "[cache]\nbackend = \"redis\"", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("explicit missing file: err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestSemanticLabel(t *testing.T) {
	cfg := Default()
	if got := cfg.SemanticLabel("MID_wide"); got != "Uncertain mid" {
		t.Errorf("SemanticLabel(MID_wide) = %q", got)
	}
	if got := cfg.SemanticLabel("id9"); got != "id9" {
		t.Errorf("SemanticLabel(id9) = %q", got)
	}
}

func TestComposeOptions(t *testing.T) {
	cfg := Default()
	cfg.Core.MaxFeatures = 3
	opts := cfg.ComposeOptions()
	if opts.Samples != 200 || opts.Bins != 20 || *opts.Margin != 0.05 || opts.MaxFeatures != 3 || opts.Seed != 42 {
		t.Errorf("ComposeOptions = %+v", opts)
	}

	cfg.Core.Margin = 0
	if got := *cfg.ComposeOptions().Margin; got != 0 {
		t.Errorf("ComposeOptions().Margin = %g, want explicit 0", got)
	}
}
