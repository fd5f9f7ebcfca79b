// Package testutil provides shared test helpers and landmark fixtures.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"gonum.org/v1/gonum/spatial/r3"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AngleBetween returns the angle between a and b in radians.
func AngleBetween(a, b r3.Vec) float64 {
	cos := r3.Dot(a, b) / (r3.Norm(a) * r3.Norm(b))
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

// AssertVecNear fails when any component of got differs from want by more than tol.
func AssertVecNear(t testing.TB, got, want r3.Vec, tol float64) {
	t.Helper()
	d := r3.Sub(got, want)
	if math.Abs(d.X) > tol || math.Abs(d.Y) > tol || math.Abs(d.Z) > tol {
		t.Errorf("vector = %+v, want %+v (tol %g)", got, want, tol)
	}
}

// Landmarks returns n identical landmarks at (x, y, z) with visibility vis.
func Landmarks(n int, x, y, z, vis float64) []landmark.Landmark {
	out := make([]landmark.Landmark, n)
	for i := range out {
		out[i] = landmark.Landmark{X: x, Y: y, Z: z, Visibility: landmark.Float(vis)}
	}
	return out
}

// PoseResult returns a detector result carrying only a full pose list.
func PoseResult(x, y, z, vis float64) landmark.DetectorResult {
	return landmark.DetectorResult{PoseLandmarks: Landmarks(landmark.PoseCount, x, y, z, vis)}
}
