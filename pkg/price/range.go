package price

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange is returned for ranges violating 0 <= Min < Max.
var ErrInvalidRange = errors.New("invalid price range")

// Range is an inclusive price window.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// FromLegacy converts a single upper-bound price into {0, n}.
func FromLegacy(n float64) Range {
	return Range{Min: 0, Max: n}
}

// Validate checks that both ends are finite, non-negative and Min < Max.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return fmt.Errorf("%w: non-finite bound", ErrInvalidRange)
	}
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("%w: negative bound", ErrInvalidRange)
	}
	if r.Min >= r.Max {
		return fmt.Errorf("%w: min %s >= max %s", ErrInvalidRange, Format(r.Min), Format(r.Max))
	}
	return nil
}

// Contains reports whether Min <= p <= Max.
func (r Range) Contains(p float64) bool {
	return p >= r.Min && p <= r.Max
}

// IsZero reports whether r was never set.
func (r Range) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", Format(r.Min), Format(r.Max))
}

// Normalize resolves the range a flow should use: an explicit range wins,
// otherwise a legacy single price n becomes {0, n}.
func Normalize(r Range, legacy float64) (Range, error) {
	if r.IsZero() && legacy > 0 {
		r = FromLegacy(legacy)
	}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}
