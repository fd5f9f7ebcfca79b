package filter

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Unobserved is the visibility of a landmark that has never accepted an
// update.
const Unobserved = -1.0

// ErrInvalidParameter is returned when filter parameters fail validation.
var ErrInvalidParameter = errors.New("invalid filter parameter")

// TimeMode selects how a Landmark advances its internal clock.
type TimeMode string

const (
	// TimeModeTick advances by exactly 1 per accepted update, ignoring dt.
	// Filter behaviour is then independent of camera frame-rate jitter.
	TimeModeTick TimeMode = "tick"
	// TimeModeElapsed accumulates the measured dt in seconds.
	TimeModeElapsed TimeMode = "elapsed"
)

// ParseTimeMode converts a config string into a TimeMode.
func ParseTimeMode(s string) (TimeMode, error) {
	switch TimeMode(s) {
	case TimeModeTick, TimeModeElapsed:
		return TimeMode(s), nil
	}
	return "", fmt.Errorf("%w: unknown time mode %q", ErrInvalidParameter, s)
}

// Params configures a Landmark.
type Params struct {
	MinCutoff           float64  // baseline low-pass cutoff
	Beta                float64  // speed sensitivity of the cutoff
	DeadZoneThreshold   float64  // snap distance of the dead-zone stage
	VisibilityThreshold float64  // updates below this visibility are rejected
	TimeMode            TimeMode // tick (default) or elapsed
}

// DefaultParams returns the built-in filter defaults.
func DefaultParams() Params {
	return Params{
		MinCutoff:           0.05,
		Beta:                10,
		DeadZoneThreshold:   0.003,
		VisibilityThreshold: 0.6,
		TimeMode:            TimeModeTick,
	}
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	if err := validateCutoff(p.MinCutoff); err != nil {
		return err
	}
	if err := validateBeta(p.Beta); err != nil {
		return err
	}
	if !(p.DeadZoneThreshold >= 0) || math.IsInf(p.DeadZoneThreshold, 0) {
		return fmt.Errorf("%w: dead-zone threshold must be finite and >= 0, got %v", ErrInvalidParameter, p.DeadZoneThreshold)
	}
	if !(p.VisibilityThreshold >= 0 && p.VisibilityThreshold <= 1) {
		return fmt.Errorf("%w: visibility threshold must be within [0,1], got %v", ErrInvalidParameter, p.VisibilityThreshold)
	}
	if _, err := ParseTimeMode(string(p.TimeMode)); err != nil {
		return err
	}
	return nil
}

func validateCutoff(v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: min cutoff must be finite and > 0, got %v", ErrInvalidParameter, v)
	}
	return nil
}

func validateBeta(v float64) error {
	if !(v >= 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: beta must be finite and >= 0, got %v", ErrInvalidParameter, v)
	}
	return nil
}

// Update holds optional replacement low-pass parameters. Nil fields keep
// their current value.
type Update struct {
	MinCutoff *float64
	Beta      *float64
}

// Validate checks the fields that are set.
func (u Update) Validate() error {
	if u.MinCutoff != nil {
		if err := validateCutoff(*u.MinCutoff); err != nil {
			return err
		}
	}
	if u.Beta != nil {
		if err := validateBeta(*u.Beta); err != nil {
			return err
		}
	}
	return nil
}

// Landmark owns the temporal state of one anatomical landmark: a
// low-pass stage followed by a dead-zone stage, behind a visibility gate.
type Landmark struct {
	lowPass  AdaptiveLowPass
	deadZone DeadZone

	mode                TimeMode
	visibilityThreshold float64

	t          float64 // advances only on accepted updates
	position   r3.Vec
	visibility float64
}

// NewLandmark returns an unobserved landmark. Params are assumed valid.
func NewLandmark(p Params) *Landmark {
	mode := p.TimeMode
	if mode == "" {
		mode = TimeModeTick
	}
	return &Landmark{
		lowPass:             AdaptiveLowPass{minCutoff: p.MinCutoff, beta: p.Beta},
		deadZone:            DeadZone{threshold: p.DeadZoneThreshold},
		mode:                mode,
		visibilityThreshold: p.VisibilityThreshold,
		visibility:          Unobserved,
	}
}

// Update feeds one raw observation. It returns false when the sample is
// rejected by the visibility gate, in which case nothing changes.
// A nil visibility is accepted and stored as fully visible. In elapsed
// mode only a positive, finite dt advances the clock.
func (l *Landmark) Update(dt float64, raw r3.Vec, visibility *float64) bool {
	if visibility != nil && *visibility < l.visibilityThreshold {
		return false
	}

	switch l.mode {
	case TimeModeElapsed:
		// the clock never runs backwards; a bad dt holds it in place
		if dt > 0 && !math.IsInf(dt, 0) {
			l.t += dt
		}
	default:
		l.t++
	}

	smoothed := l.lowPass.Next(l.t, raw)
	l.position = l.deadZone.Next(smoothed)
	if visibility != nil {
		l.visibility = *visibility
	} else {
		l.visibility = 1
	}
	return true
}

// Reconfigure replaces low-pass parameters without resetting state.
func (l *Landmark) Reconfigure(u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.MinCutoff != nil {
		l.lowPass.minCutoff = *u.MinCutoff
	}
	if u.Beta != nil {
		l.lowPass.beta = *u.Beta
	}
	return nil
}

// Position returns the current filtered position.
func (l *Landmark) Position() r3.Vec { return l.position }

// Visibility returns the visibility of the last accepted update, or
// Unobserved.
func (l *Landmark) Visibility() float64 { return l.visibility }

// Observed reports whether any update has been accepted.
func (l *Landmark) Observed() bool { return l.visibility != Unobserved }

// Time returns the internal filter clock.
func (l *Landmark) Time() float64 { return l.t }

// MinCutoff returns the current low-pass baseline cutoff.
func (l *Landmark) MinCutoff() float64 { return l.lowPass.minCutoff }

// Beta returns the current low-pass speed sensitivity.
func (l *Landmark) Beta() float64 { return l.lowPass.beta }
