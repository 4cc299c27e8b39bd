package sample

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/riskviz/pkg/errors"
)

// seqSource replays fixed standard normal draws.
type seqSource struct {
	draws []float64
	i     int
}

func (s *seqSource) NormFloat64() float64 {
	v := s.draws[s.i%len(s.draws)]
	s.i++
	return v
}

func TestSpread(t *testing.T) {
	tests := []struct {
		name            string
		mean, low, high float64
		kind            Kind
		want            float64
	}{
		{"bounded interval", 0.5, 0.4, 0.6, KindBounded, 0.2 / (2*Z95 + Epsilon)},
		{"bounded zero width", 0.5, 0.5, 0.5, KindBounded, FallbackSpread},
		{"unbounded positive", 0.5, 0, 0, KindUnbounded, 0.17},
		{"unbounded negative", -0.5, 0, 0, KindUnbounded, 0.17},
		{"unbounded zero", 0, 0, 0, KindUnbounded, SpreadFloor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Spread(tt.mean, tt.low, tt.high, tt.kind)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Spread() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSynthesizeBoundedCountAndRange(t *testing.T) {
	src := NewSource(42, 1)
	for _, count := range []int{1, 7, 200, 1000} {
		values, err := Synthesize(src, 0.9, 0.7, 1.0, count, KindBounded)
		if err != nil {
			t.Fatalf("Synthesize(count=%d) error: %v", count, err)
		}
		if len(values) != count {
			t.Errorf("len = %d, want %d", len(values), count)
		}
		for _, v := range values {
			if v < 0 || v > 1 {
				t.Fatalf("value %v outside [0, 1]", v)
			}
		}
	}
}

func TestSynthesizeBoundedClamps(t *testing.T) {
	src := &seqSource{draws: []float64{-1000, 0, 1000}}
	got, err := Synthesize(src, 0.5, 0.4, 0.6, 3, KindBounded)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{0, 0.5, 1}, got); diff != "" {
		t.Errorf("Synthesize() mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesizeUnboundedDoesNotClamp(t *testing.T) {
	src := &seqSource{draws: []float64{-10, 10}}
	got, err := Synthesize(src, -0.5, 0, 0, 2, KindUnbounded)
	if err != nil {
		t.Fatal(err)
	}
	// spread = 0.3*0.5 + 0.02 = 0.17
	want := []float64{-0.5 - 1.7, -0.5 + 1.7}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("value[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSynthesizeZeroWidthFallback(t *testing.T) {
	for _, mean := range []float64{0, 0.5, 1} {
		values, err := Synthesize(NewSource(7, 3), mean, mean, mean, 200, KindBounded)
		if err != nil {
			t.Fatalf("mean=%v: %v", mean, err)
		}
		distinct := map[float64]bool{}
		for _, v := range values {
			if v < 0 || v > 1 {
				t.Fatalf("mean=%v: value %v outside [0, 1]", mean, v)
			}
			distinct[v] = true
		}
		if len(distinct) < 2 {
			t.Errorf("mean=%v: all %d values identical", mean, len(values))
		}
	}
}

func TestSynthesizeScenario(t *testing.T) {
	values, err := Synthesize(NewSource(42, 0), 0.5, 0.4, 0.6, 200, KindBounded)
	if err != nil {
		t.Fatal(err)
	}

	spread := Spread(0.5, 0.4, 0.6, KindBounded)
	if math.Abs(spread-0.051) > 0.001 {
		t.Errorf("spread = %v, want ~0.051", spread)
	}

	var sum float64
	for _, v := range values {
		if v < 0 || v > 1 {
			t.Fatalf("value %v outside [0, 1]", v)
		}
		sum += v
	}
	mean := sum / float64(len(values))
	se := spread / math.Sqrt(float64(len(values)))
	if math.Abs(mean-0.5) > 4*se {
		t.Errorf("sample mean = %v, want within 4 standard errors (%v) of 0.5", mean, 4*se)
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	a, _ := Synthesize(NewSource(42, 5), 0.3, 0.2, 0.4, 50, KindBounded)
	b, _ := Synthesize(NewSource(42, 5), 0.3, 0.2, 0.4, 50, KindBounded)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed and stream should reproduce (-a +b):\n%s", diff)
	}

	c, _ := Synthesize(NewSource(42, 6), 0.3, 0.2, 0.4, 50, KindBounded)
	if cmp.Equal(a, c) {
		t.Error("different streams should not reproduce each other")
	}
}

func TestSynthesizeSourceNotReset(t *testing.T) {
	src := NewSource(1, 1)
	a, _ := Synthesize(src, 0.5, 0.4, 0.6, 20, KindBounded)
	b, _ := Synthesize(src, 0.5, 0.4, 0.6, 20, KindBounded)
	if cmp.Equal(a, b) {
		t.Error("consecutive calls on one source should draw independent values")
	}
}

func TestSynthesizeErrors(t *testing.T) {
	tests := []struct {
		name            string
		mean, low, high float64
		count           int
		kind            Kind
		want            errors.Code
	}{
		{"zero count", 0.5, 0.4, 0.6, 0, KindBounded, errors.ErrCodeInvalidCount},
		{"negative count", 0.5, 0.4, 0.6, -1, KindUnbounded, errors.ErrCodeInvalidCount},
		{"inverted interval", 0.5, 0.6, 0.4, 10, KindBounded, errors.ErrCodeInvalidRange},
		{"nan mean", math.NaN(), 0.4, 0.6, 10, KindBounded, errors.ErrCodeInvalidRange},
		{"inf bound", 0.5, 0.4, math.Inf(1), 10, KindBounded, errors.ErrCodeInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Synthesize(NewSource(1, 1), tt.mean, tt.low, tt.high, tt.count, tt.kind)
			if !errors.Is(err, tt.want) {
				t.Errorf("Synthesize() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSynthesizeUnboundedIgnoresInterval(t *testing.T) {
	if _, err := Synthesize(NewSource(1, 1), 0.2, 0.6, 0.4, 10, KindUnbounded); err != nil {
		t.Errorf("unbounded kind should ignore the interval, got %v", err)
	}
}
