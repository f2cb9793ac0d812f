package physics

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// jiggleScale keeps coincidence jitter far below any visible distance.
const jiggleScale = 1e-6

// Jitter is a deterministic noise source. Initial placement samples it by
// node index; forces draw from it when two bodies coincide so they separate
// in a reproducible direction.
type Jitter struct {
	noise opensimplex.Noise
	n     int
}

// NewJitter returns a noise source for the given seed.
func NewJitter(seed int64) *Jitter {
	return &Jitter{noise: opensimplex.New(seed)}
}

// Offset returns a placement nudge in [-1, 1] for node i along axis 0 or 1.
func (j *Jitter) Offset(i, axis int) float64 {
	return j.noise.Eval2(float64(i)*0.37+0.5, float64(axis)*17.1+0.5)
}

// Jiggle returns a tiny non-zero value. Successive calls walk the noise
// field so repeated coincidences do not cancel each other.
func (j *Jitter) Jiggle() float64 {
	j.n++
	v := j.noise.Eval2(float64(j.n)*0.618, 0.25)
	if v == 0 {
		v = 0.5
	}
	return v * jiggleScale
}
