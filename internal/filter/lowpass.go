// Package filter implements the per-landmark noise filters: a
// speed-adaptive low-pass stage, a dead-zone stage that removes residual
// micro-motion, and the Landmark type that composes both behind a
// visibility gate.
package filter

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DerivativeCutoff is the fixed cutoff used to smooth the speed estimate.
const DerivativeCutoff = 1.0

// AdaptiveLowPass is an exponential smoothing filter whose cutoff rises
// with the estimated speed of the signal. Near-static input is smoothed
// heavily; fast motion is followed with little lag.
type AdaptiveLowPass struct {
	minCutoff float64
	beta      float64

	initialised bool
	tPrev       float64
	xPrev       r3.Vec // previous output
	dxPrev      r3.Vec // previous smoothed derivative
}

// NewAdaptiveLowPass returns a filter with the given baseline cutoff and
// speed sensitivity. beta = 0 gives constant-cutoff smoothing.
func NewAdaptiveLowPass(minCutoff, beta float64) *AdaptiveLowPass {
	return &AdaptiveLowPass{minCutoff: minCutoff, beta: beta}
}

// MinCutoff returns the baseline cutoff.
func (f *AdaptiveLowPass) MinCutoff() float64 { return f.minCutoff }

// Beta returns the speed sensitivity.
func (f *AdaptiveLowPass) Beta() float64 { return f.beta }

// Next feeds sample x observed at time t and returns the filtered value.
// Non-increasing timestamps return the previous output unchanged.
func (f *AdaptiveLowPass) Next(t float64, x r3.Vec) r3.Vec {
	if !f.initialised {
		f.initialised = true
		f.tPrev = t
		f.xPrev = x
		f.dxPrev = r3.Vec{}
		return x
	}

	te := t - f.tPrev
	if te <= 0 {
		return f.xPrev
	}

	dx := r3.Scale(1/te, r3.Sub(x, f.xPrev))
	edx := lowPass(smoothingFactor(te, DerivativeCutoff), dx, f.dxPrev)

	cutoff := f.minCutoff + f.beta*r3.Norm(edx)
	out := lowPass(smoothingFactor(te, cutoff), x, f.xPrev)

	f.tPrev = t
	f.xPrev = out
	f.dxPrev = edx
	return out
}

// Reset clears accumulated state; the next sample is passed through.
func (f *AdaptiveLowPass) Reset() {
	f.initialised = false
	f.tPrev = 0
	f.xPrev = r3.Vec{}
	f.dxPrev = r3.Vec{}
}

func smoothingFactor(te, cutoff float64) float64 {
	tau := 1 / (2 * math.Pi * cutoff)
	return 1 / (1 + tau/te)
}

func lowPass(alpha float64, x, prev r3.Vec) r3.Vec {
	return r3.Add(prev, r3.Scale(alpha, r3.Sub(x, prev)))
}
