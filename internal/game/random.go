package game

import (
	"math/rand/v2"
)

// RandomSource supplies the initial conditions of a spin. It is the only
// place randomness enters the settlement pipeline.
type RandomSource interface {
	// Uniform returns a value in [lo, hi).
	Uniform(lo, hi float64) float64
}

// MathSource is a seeded PCG stream, used for local play and simulations.
type MathSource struct {
	rng *rand.Rand
}

func NewMathSource(seed1, seed2 uint64) *MathSource {
	return &MathSource{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

func (m *MathSource) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*m.rng.Float64()
}

// FixedSource replays scripted values in order. Values are clamped into the
// requested range; once exhausted it returns lo.
type FixedSource struct {
	values []float64
	pos    int
}

func NewFixedSource(values ...float64) *FixedSource {
	return &FixedSource{values: values}
}

func (f *FixedSource) Uniform(lo, hi float64) float64 {
	if f.pos >= len(f.values) {
		return lo
	}
	v := f.values[f.pos]
	f.pos++
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Draws reports how many values have been consumed.
func (f *FixedSource) Draws() int {
	return f.pos
}
