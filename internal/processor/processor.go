// Package processor turns per-frame detector output into stabilised
// landmark sets and a face orientation estimate. A Processor is one
// processing session: it owns every filter for that session and is not
// safe for concurrent use.
package processor

import (
	"errors"
	"fmt"

	"github.com/banshee-data/pose.stabilizer/internal/config"
	"github.com/banshee-data/pose.stabilizer/internal/filter"
	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"github.com/banshee-data/pose.stabilizer/internal/orientation"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrMalformedInput is returned when a landmark list does not have the
// fixed length of its set. The offending set is skipped for that frame.
var ErrMalformedInput = errors.New("malformed landmark input")

// PoseSource selects which detector pose list feeds the body set.
type PoseSource string

const (
	PoseSourceImage PoseSource = "image"
	PoseSourceWorld PoseSource = "world"
)

// Config holds configuration for a processing session.
type Config struct {
	Filter     filter.Params
	PoseSource PoseSource
}

// DefaultConfig returns the built-in session configuration.
func DefaultConfig() Config {
	return Config{
		Filter:     filter.DefaultParams(),
		PoseSource: PoseSourceImage,
	}
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) (Config, error) {
	mode, err := filter.ParseTimeMode(cfg.GetTimeMode())
	if err != nil {
		return Config{}, err
	}
	c := Config{
		Filter: filter.Params{
			MinCutoff:           cfg.GetMinCutoff(),
			Beta:                cfg.GetBeta(),
			DeadZoneThreshold:   cfg.GetDeadZoneThreshold(),
			VisibilityThreshold: cfg.GetVisibilityThreshold(),
			TimeMode:            mode,
		},
		PoseSource: PoseSource(cfg.GetPoseSource()),
	}
	return c, c.Validate()
}

// Validate checks the session configuration.
func (c Config) Validate() error {
	if err := c.Filter.Validate(); err != nil {
		return err
	}
	switch c.PoseSource {
	case PoseSourceImage, PoseSourceWorld:
		return nil
	}
	return fmt.Errorf("%w: unknown pose source %q", filter.ErrInvalidParameter, c.PoseSource)
}

// Processor runs calibration, coordinate transform, filtering and
// orientation estimation for one session.
type Processor struct {
	id  string
	cfg Config

	pose      *LandmarkSet
	face      *LandmarkSet
	estimator *orientation.Estimator

	calibrated bool
	offset     float64 // vertical re-centering for the pose set

	frames      uint64
	posePresent bool // pose set updated on the last frame
	facePresent bool // face set updated on the last frame
	orientation orientation.Result
	regions     []orientation.RegionPoints
}

// New allocates every filter for a new session.
func New(cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Processor{
		id:        uuid.New().String(),
		cfg:       cfg,
		pose:      NewLandmarkSet(landmark.PoseCount, cfg.Filter),
		face:      NewLandmarkSet(landmark.FaceCount, cfg.Filter),
		estimator: orientation.NewEstimator(),
	}
	p.orientation = orientation.Result{Normal: orientation.DefaultNormal, Source: orientation.SourceNone}
	diagf("session %s: created (min_cutoff=%g beta=%g dead_zone=%g time_mode=%s pose_source=%s)",
		p.id, cfg.Filter.MinCutoff, cfg.Filter.Beta, cfg.Filter.DeadZoneThreshold, cfg.Filter.TimeMode, cfg.PoseSource)
	return p, nil
}

// ID returns the session identifier.
func (p *Processor) ID() string { return p.id }

// Process runs one frame. Missing sets and low-visibility landmarks are
// routine and never produce an error. A set with the wrong length is
// skipped and reported through an error wrapping ErrMalformedInput once
// the rest of the frame has been processed.
func (p *Processor) Process(res landmark.DetectorResult, dt float64) error {
	p.frames++
	var errs []error

	poseRaw := res.PoseLandmarks
	if p.cfg.PoseSource == PoseSourceWorld {
		poseRaw = res.PoseWorldLandmarks
	}

	p.posePresent = false
	if poseRaw != nil {
		if len(poseRaw) != landmark.PoseCount {
			opsf("session %s frame %d: pose list has %d landmarks, want %d; skipped",
				p.id, p.frames, len(poseRaw), landmark.PoseCount)
			errs = append(errs, fmt.Errorf("%w: pose has %d landmarks, want %d", ErrMalformedInput, len(poseRaw), landmark.PoseCount))
		} else {
			p.calibrate(poseRaw)
			offset := p.offset
			n := p.pose.update(dt, poseRaw, func(v r3.Vec) r3.Vec {
				return r3.Vec{X: v.X, Y: offset - v.Y, Z: v.Z}
			})
			p.posePresent = true
			tracef("session %s frame %d: pose accepted %d/%d", p.id, p.frames, n, landmark.PoseCount)
		}
	}

	p.facePresent = false
	if res.FaceLandmarks != nil {
		if len(res.FaceLandmarks) != landmark.FaceCount {
			opsf("session %s frame %d: face list has %d landmarks, want %d; skipped",
				p.id, p.frames, len(res.FaceLandmarks), landmark.FaceCount)
			errs = append(errs, fmt.Errorf("%w: face has %d landmarks, want %d", ErrMalformedInput, len(res.FaceLandmarks), landmark.FaceCount))
		} else {
			n := p.face.update(dt, res.FaceLandmarks, func(v r3.Vec) r3.Vec {
				return r3.Vec{X: v.X, Y: -v.Y, Z: v.Z}
			})
			p.facePresent = true
			tracef("session %s frame %d: face accepted %d/%d", p.id, p.frames, n, landmark.FaceCount)
		}
	}

	var in orientation.Input
	if p.facePresent {
		in.Face = p.face
	}
	if p.posePresent {
		in.Pose = p.pose
	}
	p.orientation = p.estimator.Estimate(in)
	p.regions = nil
	if p.facePresent {
		p.regions = orientation.Regions(p.face)
	}

	return errors.Join(errs...)
}

// calibrate records the hip midpoint once, on the first frame where both
// hips pass the visibility threshold.
func (p *Processor) calibrate(raw []landmark.Landmark) {
	if p.calibrated {
		return
	}
	threshold := p.cfg.Filter.VisibilityThreshold
	left, right := raw[landmark.PoseLeftHip], raw[landmark.PoseRightHip]
	if !left.Visible(threshold) || !right.Visible(threshold) || !finite(left) || !finite(right) {
		return
	}
	p.offset = (left.Y + right.Y) / 2
	p.calibrated = true
	diagf("session %s frame %d: calibrated vertical offset %.4f", p.id, p.frames, p.offset)
}

// Calibration returns the vertical offset and whether it has been set.
func (p *Processor) Calibration() (float64, bool) {
	return p.offset, p.calibrated
}

// ResetCalibration re-arms calibration; the next qualifying frame sets a
// new offset. Filter state is kept.
func (p *Processor) ResetCalibration() {
	p.calibrated = false
	p.offset = 0
	diagf("session %s: calibration reset", p.id)
}

// Reconfigure updates low-pass parameters on every landmark of both sets
// without resetting filter state.
func (p *Processor) Reconfigure(u filter.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := p.pose.reconfigure(u); err != nil {
		return err
	}
	if err := p.face.reconfigure(u); err != nil {
		return err
	}
	if u.MinCutoff != nil {
		p.cfg.Filter.MinCutoff = *u.MinCutoff
	}
	if u.Beta != nil {
		p.cfg.Filter.Beta = *u.Beta
	}
	diagf("session %s: reconfigured min_cutoff=%g beta=%g", p.id, p.cfg.Filter.MinCutoff, p.cfg.Filter.Beta)
	return nil
}

// Config returns the current session configuration.
func (p *Processor) Config() Config { return p.cfg }

// Orientation returns the estimate from the last processed frame.
func (p *Processor) Orientation() orientation.Result { return p.orientation }
