// Package landmark defines the detector-facing data model: raw landmarks,
// the per-frame detector result contract, plain snapshot points and the
// anatomical index tables for the body-pose and face-mesh sets.
package landmark

import "gonum.org/v1/gonum/spatial/r3"

// Fixed set lengths. These never change for the lifetime of a session.
const (
	PoseCount = 33  // coarse body pose
	FaceCount = 478 // 468 surface points + 10 iris points
)

// Landmark is one raw detector keypoint. X and Y are normalised image
// coordinates (Y grows downward), Z is relative depth.
type Landmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// Vec returns the landmark position as a vector.
func (l Landmark) Vec() r3.Vec {
	return r3.Vec{X: l.X, Y: l.Y, Z: l.Z}
}

// Visible reports whether the landmark passes a visibility threshold.
// A landmark without a reported visibility is treated as visible.
func (l Landmark) Visible(threshold float64) bool {
	return l.Visibility == nil || *l.Visibility >= threshold
}

// DetectorResult is the per-frame output of the landmark detector.
// Any list may be nil when the detector found nothing for that set.
type DetectorResult struct {
	PoseLandmarks []Landmark `json:"pose_landmarks,omitempty"`
	// PoseWorldLandmarks is the optional world-space pose list. Detectors
	// that do not produce it leave it nil.
	PoseWorldLandmarks []Landmark `json:"pose_world_landmarks,omitempty"`
	FaceLandmarks      []Landmark `json:"face_landmarks,omitempty"`
}

// Point is a self-contained filtered landmark, safe to hand across a
// goroutine or process boundary.
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Vec returns the point position as a vector.
func (p Point) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Float returns a pointer to v, for building landmarks with a visibility.
func Float(v float64) *float64 { return &v }
