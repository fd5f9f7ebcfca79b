// Package orientation estimates a unit face-forward normal from filtered
// landmark positions. It prefers the dense face mesh and falls back to the
// coarse pose set when no mesh is available for the frame.
package orientation

import (
	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"gonum.org/v1/gonum/spatial/r3"
)

// MinEdgeLength is the smallest edge or cross-product magnitude accepted
// when forming a triangle normal. Anything shorter is degenerate.
const MinEdgeLength = 1e-9

// Source names the landmark set a normal was derived from.
type Source string

const (
	SourceMesh Source = "mesh"
	SourcePose Source = "pose"
	SourceNone Source = "none"
)

// DefaultNormal is reported before any valid estimate exists. It points
// towards the camera (negative detector depth).
var DefaultNormal = r3.Vec{Z: -1}

// PointSet is a read-only view of one filtered landmark set.
type PointSet interface {
	Len() int
	Point(i int) landmark.Point
	Observed(i int) bool
}

// Input carries the sets that were updated this frame. A nil set is
// treated as unavailable.
type Input struct {
	Face PointSet
	Pose PointSet
}

// Result is one frame's estimate.
type Result struct {
	Normal    r3.Vec
	Valid     bool
	Source    Source
	Triangles int // triangles that contributed
}

// keyPoints lists the six corners in the fixed order
// right eye outer, right eye inner, left eye inner, left eye outer,
// mouth right, mouth left.
type keyPoints [6]int

const (
	rightEyeOuter = iota
	rightEyeInner
	leftEyeInner
	leftEyeOuter
	mouthRight
	mouthLeft
)

var (
	meshKeyPoints = keyPoints{
		landmark.FaceRightEyeOuter, landmark.FaceRightEyeInner,
		landmark.FaceLeftEyeInner, landmark.FaceLeftEyeOuter,
		landmark.FaceMouthRight, landmark.FaceMouthLeft,
	}
	poseKeyPoints = keyPoints{
		landmark.PoseRightEyeOuter, landmark.PoseRightEyeInner,
		landmark.PoseLeftEyeInner, landmark.PoseLeftEyeOuter,
		landmark.PoseMouthRight, landmark.PoseMouthLeft,
	}
)

// triangles are fixed vertex orderings over keyPoints. The winding makes a
// frontal face (Y up, subject's right eye on the image left) produce -Z.
var triangles = [4][3]int{
	{rightEyeInner, leftEyeInner, mouthLeft},
	{rightEyeOuter, leftEyeOuter, mouthRight},
	{rightEyeInner, mouthLeft, mouthRight},
	{leftEyeOuter, mouthLeft, mouthRight},
}

// Estimator computes one normal per frame. It keeps the last valid normal
// only to have something to report on frames with no usable geometry.
type Estimator struct {
	last r3.Vec
}

// NewEstimator returns an estimator reporting DefaultNormal until the
// first valid frame.
func NewEstimator() *Estimator {
	return &Estimator{last: DefaultNormal}
}

// Estimate derives the face normal from the sets available this frame.
func (e *Estimator) Estimate(in Input) Result {
	if in.Face != nil {
		if n, count, ok := aggregateNormal(in.Face, meshKeyPoints); ok {
			e.last = n
			return Result{Normal: n, Valid: true, Source: SourceMesh, Triangles: count}
		}
	}
	if in.Pose != nil {
		if n, count, ok := aggregateNormal(in.Pose, poseKeyPoints); ok {
			e.last = n
			return Result{Normal: n, Valid: true, Source: SourcePose, Triangles: count}
		}
	}
	return Result{Normal: e.last, Source: SourceNone}
}

// Normal computes the aggregate normal of six corner positions given in
// the order right eye outer, right eye inner, left eye inner, left eye
// outer, mouth right, mouth left.
func Normal(corners [6]r3.Vec) (r3.Vec, bool) {
	all := [6]bool{true, true, true, true, true, true}
	n, _, ok := combine(corners, all)
	return n, ok
}

func aggregateNormal(set PointSet, kp keyPoints) (r3.Vec, int, bool) {
	var corners [6]r3.Vec
	var present [6]bool
	for role, idx := range kp {
		if usable(set, idx) {
			corners[role] = set.Point(idx).Vec()
			present[role] = true
		}
	}
	return combine(corners, present)
}

// combine sums the unit normals of every non-degenerate triangle whose
// vertices are all present and renormalises the sum.
func combine(corners [6]r3.Vec, present [6]bool) (r3.Vec, int, bool) {
	var sum r3.Vec
	valid := 0
	for _, tri := range triangles {
		if !present[tri[0]] || !present[tri[1]] || !present[tri[2]] {
			continue
		}
		n, ok := triangleNormal(corners[tri[0]], corners[tri[1]], corners[tri[2]])
		if !ok {
			continue
		}
		sum = r3.Add(sum, n)
		valid++
	}
	if valid == 0 || r3.Norm(sum) < MinEdgeLength {
		return r3.Vec{}, 0, false
	}
	return r3.Unit(sum), valid, true
}

func usable(set PointSet, i int) bool {
	return i < set.Len() && set.Observed(i)
}

// triangleNormal returns the unit normal of (a, b, c) with a fixed
// winding, or false when the triangle is degenerate.
func triangleNormal(a, b, c r3.Vec) (r3.Vec, bool) {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	if r3.Norm(ab) < MinEdgeLength || r3.Norm(ac) < MinEdgeLength {
		return r3.Vec{}, false
	}
	n := r3.Cross(ab, ac)
	if r3.Norm(n) < MinEdgeLength {
		return r3.Vec{}, false
	}
	return r3.Unit(n), true
}
