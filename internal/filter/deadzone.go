package filter

import "gonum.org/v1/gonum/spatial/r3"

// DeadZone holds a reference point and only moves it when a sample lands
// further than Threshold away.
type DeadZone struct {
	threshold   float64
	initialised bool
	ref         r3.Vec
}

// NewDeadZone returns a dead-zone filter with the given distance threshold.
func NewDeadZone(threshold float64) *DeadZone {
	return &DeadZone{threshold: threshold}
}

// Threshold returns the snap distance.
func (d *DeadZone) Threshold() float64 { return d.threshold }

// Next returns the held reference, snapping it to x first if x is
// strictly further than the threshold.
func (d *DeadZone) Next(x r3.Vec) r3.Vec {
	if !d.initialised {
		d.initialised = true
		d.ref = x
		return x
	}
	if r3.Norm(r3.Sub(x, d.ref)) > d.threshold {
		d.ref = x
	}
	return d.ref
}

// Reset forgets the reference point.
func (d *DeadZone) Reset() {
	d.initialised = false
	d.ref = r3.Vec{}
}
