package dotplot

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/sample"
)

func TestLayoutEmptyValues(t *testing.T) {
	points, err := Layout(nil, 0, 1, 20)
	if err != nil {
		t.Fatalf("Layout(nil) error: %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Errorf("Layout(nil) = %v, want empty non-nil slice", points)
	}
}

func TestLayoutEmptyDomain(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
	}{
		{"equal bounds", 0.5, 0.5},
		{"inverted", 1, 0},
		{"nan", math.NaN(), 1},
		{"infinite max", -0.05, math.Inf(1)},
		{"infinite min", math.Inf(-1), 0},
		{"overflowing span", -math.MaxFloat64, math.MaxFloat64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Layout([]float64{0.5}, tt.min, tt.max, 20)
			if !errors.Is(err, errors.ErrCodeEmptyDomain) {
				t.Errorf("Layout() error = %v, want EMPTY_DOMAIN", err)
			}
		})
	}
}

func TestLayoutStacksWithinBin(t *testing.T) {
	// Bins of width 0.25 over [0, 1).
	values := []float64{0.30, 0.10, 0.35, 0.26, 0.80}
	got, err := Layout(values, 0, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []Point{
		{X: 0.10, Y: 0},
		{X: 0.26, Y: -0.4},
		{X: 0.30, Y: 0},
		{X: 0.35, Y: 0.4},
		{X: 0.80, Y: 0},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Layout() mismatch (-want +got):\n%s", diff)
	}
}

func TestLayoutDropsOutOfDomain(t *testing.T) {
	values := []float64{-0.1, 0, 0.5, 1.0, 1.5, math.NaN()}
	got, err := Layout(values, 0, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	want := []Point{{X: 0, Y: 0}, {X: 0.5, Y: 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Layout() mismatch (-want +got):\n%s", diff)
	}
	if n := Dropped(values, 0, 1); n != 4 {
		t.Errorf("Dropped() = %d, want 4", n)
	}
}

func TestLayoutDoesNotModifyInput(t *testing.T) {
	values := []float64{0.9, 0.1, 0.5}
	if _, err := Layout(values, 0, 1, 20); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{0.9, 0.1, 0.5}, values); diff != "" {
		t.Errorf("input modified (-want +got):\n%s", diff)
	}
}

func TestLayoutDefaultBins(t *testing.T) {
	a, _ := Layout([]float64{0.01, 0.02, 0.049}, 0, 1, 0)
	b, _ := Layout([]float64{0.01, 0.02, 0.049}, 0, 1, DefaultBins)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("bins <= 0 should use DefaultBins (-a +b):\n%s", diff)
	}
}

func TestLayoutProperties(t *testing.T) {
	values, err := sample.Synthesize(sample.NewSource(42, 9), 0.5, 0.3, 0.7, 500, sample.KindBounded)
	if err != nil {
		t.Fatal(err)
	}
	points, err := Layout(values, 0, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(points)+Dropped(values, 0, 1) != len(values) {
		t.Errorf("retained %d + dropped %d != %d", len(points), Dropped(values, 0, 1), len(values))
	}

	edges := Edges(0, 1, 20)
	seen := map[int]map[float64]bool{}
	for _, p := range points {
		if p.X < 0 || p.X >= 1 {
			t.Fatalf("x = %v outside [0, 1)", p.X)
		}
		if p.Y < -DefaultSpread || p.Y > DefaultSpread {
			t.Fatalf("y = %v outside stacking range", p.Y)
		}
		bin := binOf(edges, p.X)
		if seen[bin] == nil {
			seen[bin] = map[float64]bool{}
		}
		if seen[bin][p.Y] {
			t.Fatalf("bin %d has two points at y = %v", bin, p.Y)
		}
		seen[bin][p.Y] = true
	}

	for i := 1; i < len(points); i++ {
		if points[i].X < points[i-1].X {
			t.Fatalf("points not in ascending x order at %d", i)
		}
	}
}

func binOf(edges []float64, x float64) int {
	for b := 0; b < len(edges)-1; b++ {
		if x >= edges[b] && x < edges[b+1] {
			return b
		}
	}
	return -1
}

func TestEdges(t *testing.T) {
	edges := Edges(-0.2, 0.3, 5)
	if len(edges) != 6 {
		t.Fatalf("len(Edges) = %d, want 6", len(edges))
	}
	if edges[0] != -0.2 || edges[5] != 0.3 {
		t.Errorf("Edges endpoints = %v, %v", edges[0], edges[5])
	}
	if math.Abs(edges[1]-(-0.1)) > 1e-12 {
		t.Errorf("edges[1] = %v, want -0.1", edges[1])
	}
}

func TestOffsets(t *testing.T) {
	tests := []struct {
		k    int
		want []float64
	}{
		{0, nil},
		{1, []float64{0}},
		{2, []float64{-0.4, 0.4}},
		{3, []float64{-0.4, 0, 0.4}},
		{5, []float64{-0.4, -0.2, 0, 0.2, 0.4}},
	}
	for _, tt := range tests {
		got := Offsets(tt.k)
		if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("Offsets(%d) mismatch (-want +got):\n%s", tt.k, diff)
		}
	}
}

func TestPaddedDomain(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Domain
	}{
		{"positive values include zero", []float64{0.2, 0.5}, Domain{Min: -0.05, Max: 0.55}},
		{"negative values include zero", []float64{-0.4, -0.1}, Domain{Min: -0.45, Max: 0.05}},
		{"straddling zero", []float64{-0.1, 0.3}, Domain{Min: -0.15, Max: 0.35}},
		{"empty", nil, Domain{Min: -0.05, Max: 0.05}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PaddedDomain(tt.values, DefaultMargin)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("PaddedDomain() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
