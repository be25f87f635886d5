package engine

import (
	"math/rand/v2"

	"worksim/internal/domain"
)

// BreakSource decides, once per hour, whether an employee who is not on a
// break starts one. A nil break means keep working.
type BreakSource interface {
	Next(hour int) *domain.Break
}

// RandomBreaks starts a break with a fixed probability per hour, picking
// the type and its duration uniformly.
type RandomBreaks struct {
	probability float64
	rng         *rand.Rand
}

func NewRandomBreaks(probability float64, rng *rand.Rand) *RandomBreaks {
	return &RandomBreaks{probability: probability, rng: rng}
}

func (r *RandomBreaks) Next(int) *domain.Break {
	if r.probability <= 0 || r.rng.Float64() >= r.probability {
		return nil
	}
	t := domain.BreakTypes[r.rng.IntN(len(domain.BreakTypes))]
	return domain.SampleBreak(t, r.rng)
}

// NoBreaks never interrupts.
type NoBreaks struct{}

func (NoBreaks) Next(int) *domain.Break { return nil }

// randomBreakFactory derives one independent stream per employee so a seed
// reproduces the whole simulation regardless of goroutine scheduling.
func randomBreakFactory(probability float64, seed uint64) BreakFactory {
	return func(index int, _ *domain.Employee) BreakSource {
		if probability <= 0 {
			return NoBreaks{}
		}
		src := rand.NewPCG(seed, uint64(index)*17+99)
		return NewRandomBreaks(probability, rand.New(src))
	}
}
