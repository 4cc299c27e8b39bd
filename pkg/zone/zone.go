// Package zone classifies risk probabilities into coarse bands.
//
// The scale [0, 1] is split at [LowUpper] and [MediumUpper]:
//
//	[0, 0.33)    Low
//	[0.33, 0.66) Medium
//	[0.66, 1]    High
//
// [NewBand] describes the uncertainty overlay of a confidence interval. The
// band is drawn straight from the interval and does not snap to zone
// boundaries; its Zone field only records where the interval's midpoint lies.
package zone

import (
	"fmt"
	"math"

	"github.com/matzehuels/riskviz/pkg/errors"
)

// Zone thresholds.
const (
	LowUpper    = 0.33
	MediumUpper = 0.66
)

// Zone is a coarse risk level.
type Zone int

const (
	Low Zone = iota
	Medium
	High
)

var zoneNames = [...]string{"Low", "Medium", "High"}

// String returns "Low", "Medium" or "High".
func (z Zone) String() string {
	if z < Low || z > High {
		return fmt.Sprintf("Zone(%d)", int(z))
	}
	return zoneNames[z]
}

// MarshalText encodes the zone by name.
func (z Zone) MarshalText() ([]byte, error) {
	if z < Low || z > High {
		return nil, fmt.Errorf("invalid zone %d", int(z))
	}
	return []byte(z.String()), nil
}

// UnmarshalText decodes a zone name.
func (z *Zone) UnmarshalText(b []byte) error {
	for i, name := range zoneNames {
		if string(b) == name {
			*z = Zone(i)
			return nil
		}
	}
	return fmt.Errorf("unknown zone %q", b)
}

// Classify maps a probability to its zone.
// Values outside [0, 1] and NaN fail with OUT_OF_DOMAIN.
func Classify(v float64) (Zone, error) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, errors.New(errors.ErrCodeOutOfDomain, "risk %g is outside [0, 1]", v)
	}
	switch {
	case v < LowUpper:
		return Low, nil
	case v < MediumUpper:
		return Medium, nil
	default:
		return High, nil
	}
}

// Band is the uncertainty overlay region of a confidence interval.
type Band struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
	Zone Zone    `json:"zone" yaml:"zone"`
}

// Width returns High - Low.
func (b Band) Width() float64 { return b.High - b.Low }

// NewBand builds the overlay for the interval [low, high].
func NewBand(low, high float64) (Band, error) {
	if err := errors.ValidateProbability("ci_low", low); err != nil {
		return Band{}, err
	}
	if err := errors.ValidateProbability("ci_high", high); err != nil {
		return Band{}, err
	}
	if high < low {
		return Band{}, errors.New(errors.ErrCodeInvalidRange, "band high (%g) is below low (%g)", high, low)
	}
	z, err := Classify((low + high) / 2)
	if err != nil {
		return Band{}, err
	}
	return Band{Low: low, High: high, Zone: z}, nil
}

// Segment is one background region of the risk spectrum bar.
type Segment struct {
	Zone   Zone    `json:"zone" yaml:"zone"`
	Start  float64 `json:"start" yaml:"start"`
	End    float64 `json:"end" yaml:"end"`
	Anchor float64 `json:"anchor" yaml:"anchor"` // label position, the segment centre
}

// Segments returns the three zone regions covering [0, 1] in order.
func Segments() []Segment {
	bounds := [...]float64{0, LowUpper, MediumUpper, 1}
	segs := make([]Segment, 0, len(zoneNames))
	for i := range zoneNames {
		start, end := bounds[i], bounds[i+1]
		segs = append(segs, Segment{
			Zone:   Zone(i),
			Start:  start,
			End:    end,
			Anchor: (start + end) / 2,
		})
	}
	return segs
}
