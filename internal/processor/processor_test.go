package processor

import (
	"math"
	"testing"

	"github.com/banshee-data/pose.stabilizer/internal/config"
	"github.com/banshee-data/pose.stabilizer/internal/filter"
	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"github.com/banshee-data/pose.stabilizer/internal/orientation"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameDt = 1.0 / 30

// corners in image coordinates (Y down) for a face looking at the camera,
// keyed by role: right eye outer/inner, left eye inner/outer, mouth right/left.
var imageCorners = [6][2]float64{
	{0.30, 0.40}, {0.45, 0.40}, {0.55, 0.40}, {0.70, 0.40}, {0.40, 0.70}, {0.60, 0.70},
}

func poseFrame(hipY, hipVisibility float64) []landmark.Landmark {
	lms := make([]landmark.Landmark, landmark.PoseCount)
	for i := range lms {
		lms[i] = landmark.Landmark{X: 0.5, Y: 0.5, Visibility: landmark.Float(0.95)}
	}
	roles := []int{
		landmark.PoseRightEyeOuter, landmark.PoseRightEyeInner,
		landmark.PoseLeftEyeInner, landmark.PoseLeftEyeOuter,
		landmark.PoseMouthRight, landmark.PoseMouthLeft,
	}
	for role, idx := range roles {
		lms[idx].X, lms[idx].Y = imageCorners[role][0], imageCorners[role][1]
	}
	lms[landmark.PoseLeftHip] = landmark.Landmark{X: 0.55, Y: hipY - 0.01, Visibility: landmark.Float(hipVisibility)}
	lms[landmark.PoseRightHip] = landmark.Landmark{X: 0.45, Y: hipY + 0.01, Visibility: landmark.Float(hipVisibility)}
	return lms
}

func faceFrame() []landmark.Landmark {
	lms := make([]landmark.Landmark, landmark.FaceCount)
	for i := range lms {
		lms[i] = landmark.Landmark{X: 0.5, Y: 0.5, Z: 0.01}
	}
	roles := []int{
		landmark.FaceRightEyeOuter, landmark.FaceRightEyeInner,
		landmark.FaceLeftEyeInner, landmark.FaceLeftEyeOuter,
		landmark.FaceMouthRight, landmark.FaceMouthLeft,
	}
	for role, idx := range roles {
		lms[idx] = landmark.Landmark{X: imageCorners[role][0], Y: imageCorners[role][1]}
	}
	return lms
}

func newProcessor(t *testing.T) *Processor {
	t.Helper()
	p, err := New(DefaultConfig())
	require.NoError(t, err)
	return p
}

func TestNew_AllSetsUnobserved(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	snap := p.Snapshot()

	require.Len(t, snap.Pose, landmark.PoseCount)
	require.Len(t, snap.Face, landmark.FaceCount)
	for _, pt := range append(snap.Pose, snap.Face...) {
		assert.Equal(t, filter.Unobserved, pt.Visibility)
	}
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, [3]float64{0, 0, -1}, snap.Normal)
	assert.False(t, snap.NormalValid)
	assert.False(t, snap.Calibrated)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Filter.MinCutoff = -1
	_, err := New(cfg)
	assert.ErrorIs(t, err, filter.ErrInvalidParameter)

	cfg = DefaultConfig()
	cfg.PoseSource = "depth"
	_, err = New(cfg)
	assert.ErrorIs(t, err, filter.ErrInvalidParameter)
}

func TestProcess_SessionsAreIndependent(t *testing.T) {
	t.Parallel()

	a, b := newProcessor(t), newProcessor(t)
	assert.NotEqual(t, a.ID(), b.ID())

	require.NoError(t, a.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.8, 0.9)}, frameDt))
	_, calibrated := b.Calibration()
	assert.False(t, calibrated)
	assert.Equal(t, filter.Unobserved, b.Snapshot().Pose[0].Visibility)
}

func TestProcess_CalibrationIsFixedByFirstQualifyingFrame(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)

	// hips hidden: no calibration yet
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.9, 0.2)}, frameDt))
	_, ok := p.Calibration()
	require.False(t, ok)

	// first qualifying frame
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.9)}, frameDt))
	offset, ok := p.Calibration()
	require.True(t, ok)
	assert.InDelta(t, 0.75, offset, 1e-12)

	// hips now hidden, then visible somewhere else, then pose missing
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.2, 0.1)}, frameDt))
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.4, 0.99)}, frameDt))
	require.NoError(t, p.Process(landmark.DetectorResult{}, frameDt))

	offset, ok = p.Calibration()
	require.True(t, ok)
	assert.InDelta(t, 0.75, offset, 1e-12)
	snap := p.Snapshot()
	assert.True(t, snap.Calibrated)
	assert.InDelta(t, 0.75, snap.VerticalOffset, 1e-12)
}

func TestProcess_PoseTransform(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	raw := poseFrame(0.75, 0.9)
	raw[landmark.PoseNose] = landmark.Landmark{X: 0.52, Y: 0.25, Z: -0.1, Visibility: landmark.Float(0.99)}
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: raw}, frameDt))

	// first accepted sample passes both filters unchanged
	nose := p.Snapshot().Pose[landmark.PoseNose]
	assert.InDelta(t, 0.52, nose.X, 1e-12)
	assert.InDelta(t, 0.5, nose.Y, 1e-12, "y flipped and re-centred on the hips")
	assert.InDelta(t, -0.1, nose.Z, 1e-12)
	assert.Equal(t, 0.99, nose.Visibility)

	hipMid := (p.Snapshot().Pose[landmark.PoseLeftHip].Y + p.Snapshot().Pose[landmark.PoseRightHip].Y) / 2
	assert.InDelta(t, 0, hipMid, 1e-12)
}

func TestProcess_UncalibratedPoseOnlyFlips(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.1)}, frameDt))
	assert.InDelta(t, -0.5, p.Snapshot().Pose[landmark.PoseNose].Y, 1e-12)
}

func TestProcess_FaceTransformHasNoOffset(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	require.NoError(t, p.Process(landmark.DetectorResult{
		PoseLandmarks: poseFrame(0.75, 0.9),
		FaceLandmarks: faceFrame(),
	}, frameDt))

	pt := p.Snapshot().Face[0]
	assert.Equal(t, landmark.Point{X: 0.5, Y: -0.5, Z: 0.01, Visibility: 1}, pt)
}

func TestProcess_MissingSetRetainsState(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.9)}, frameDt))
	before := p.Snapshot()

	require.NoError(t, p.Process(landmark.DetectorResult{FaceLandmarks: faceFrame()}, frameDt))
	after := p.Snapshot()

	assert.Equal(t, before.Pose, after.Pose)
	assert.False(t, after.PosePresent)
	assert.True(t, after.FacePresent)
}

func TestProcess_LowVisibilityFreezesLandmark(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.9)}, frameDt))
	frozen := p.Snapshot().Pose[landmark.PoseLeftWrist]

	for i := 0; i < 20; i++ {
		raw := poseFrame(0.75, 0.9)
		raw[landmark.PoseLeftWrist] = landmark.Landmark{X: 0.1 * float64(i), Y: 0.9, Visibility: landmark.Float(0.3)}
		require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: raw}, frameDt))
		assert.Equal(t, frozen, p.Snapshot().Pose[landmark.PoseLeftWrist], "frame %d", i)
	}
}

func TestProcess_NonFiniteLandmarkSkipped(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.9)}, frameDt))
	before := p.Snapshot().Pose[landmark.PoseNose]

	raw := poseFrame(0.75, 0.9)
	raw[landmark.PoseNose].X = math.NaN()
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: raw}, frameDt))
	assert.Equal(t, before, p.Snapshot().Pose[landmark.PoseNose])
}

func TestProcess_MalformedInput(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.9)}, frameDt))
	before := p.Snapshot()

	err := p.Process(landmark.DetectorResult{
		PoseLandmarks: poseFrame(0.75, 0.9)[:10],
		FaceLandmarks: faceFrame(),
	}, frameDt)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)

	after := p.Snapshot()
	assert.Equal(t, before.Pose, after.Pose, "malformed set is not applied")
	assert.False(t, after.PosePresent)
	assert.True(t, after.FacePresent, "well-formed set is still processed")
	assert.Equal(t, 1.0, after.Face[0].Visibility)

	err = p.Process(landmark.DetectorResult{FaceLandmarks: faceFrame()[:468]}, frameDt)
	assert.ErrorIs(t, err, ErrMalformedInput)

	// an empty but non-nil list is malformed, not missing
	err = p.Process(landmark.DetectorResult{PoseLandmarks: []landmark.Landmark{}}, frameDt)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestProcess_OrientationSourceSwitch(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)

	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.9)}, frameDt))
	snap := p.Snapshot()
	require.True(t, snap.NormalValid)
	assert.Equal(t, string(orientation.SourcePose), snap.NormalSource)
	assert.Nil(t, snap.Regions)

	require.NoError(t, p.Process(landmark.DetectorResult{
		PoseLandmarks: poseFrame(0.75, 0.9),
		FaceLandmarks: faceFrame(),
	}, frameDt))
	snap = p.Snapshot()
	require.True(t, snap.NormalValid)
	assert.Equal(t, string(orientation.SourceMesh), snap.NormalSource)
	assert.InDelta(t, -1, snap.Normal[2], 1e-6)
	assert.Len(t, snap.Regions, len(landmark.FaceRegions))

	require.NoError(t, p.Process(landmark.DetectorResult{}, frameDt))
	snap = p.Snapshot()
	assert.False(t, snap.NormalValid)
	assert.Equal(t, string(orientation.SourceNone), snap.NormalSource)
	assert.InDelta(t, 1, math.Sqrt(snap.Normal[0]*snap.Normal[0]+snap.Normal[1]*snap.Normal[1]+snap.Normal[2]*snap.Normal[2]), 1e-6)
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	require.NoError(t, p.Process(landmark.DetectorResult{
		PoseLandmarks: poseFrame(0.75, 0.9),
		FaceLandmarks: faceFrame(),
	}, frameDt))

	first := p.Snapshot()
	first.Pose[0].X = 42
	first.Face[0].Y = 42
	first.Regions[0].Points[0].Z = 42
	first.Regions[0].Indices[0] = -1

	second := p.Snapshot()
	third := p.Snapshot()
	if diff := cmp.Diff(second, third); diff != "" {
		t.Errorf("snapshots differ without a frame in between (-got +want):\n%s", diff)
	}
	assert.NotEqual(t, 42.0, second.Pose[0].X)
	assert.NotEqual(t, 42.0, second.Face[0].Y)
	assert.NotEqual(t, 42.0, second.Regions[0].Points[0].Z)
	assert.NotEqual(t, -1, second.Regions[0].Indices[0])
}

func TestProcess_WorldPoseSource(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.PoseSource = PoseSourceWorld
	p, err := New(cfg)
	require.NoError(t, err)

	// image landmarks alone are ignored in world mode
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.9)}, frameDt))
	assert.False(t, p.Snapshot().PosePresent)

	world := poseFrame(0.1, 0.9)
	require.NoError(t, p.Process(landmark.DetectorResult{PoseWorldLandmarks: world}, frameDt))
	snap := p.Snapshot()
	assert.True(t, snap.PosePresent)
	assert.InDelta(t, 0.1, snap.VerticalOffset, 1e-12)
}

func TestReconfigure(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.9)}, frameDt))
	before := p.Snapshot()

	cutoff := 2.0
	require.NoError(t, p.Reconfigure(filter.Update{MinCutoff: &cutoff}))
	assert.Equal(t, 2.0, p.Config().Filter.MinCutoff)
	assert.Equal(t, 10.0, p.Config().Filter.Beta)
	assert.Equal(t, before.Pose, p.Snapshot().Pose, "reconfigure keeps state")

	bad := -3.0
	err := p.Reconfigure(filter.Update{Beta: &bad})
	assert.ErrorIs(t, err, filter.ErrInvalidParameter)
	assert.Equal(t, 10.0, p.Config().Filter.Beta)
}

func TestProcess_CalibrationThresholdBoundary(t *testing.T) {
	t.Parallel()

	threshold := DefaultConfig().Filter.VisibilityThreshold
	require.Equal(t, 0.6, threshold)

	tests := []struct {
		name       string
		visibility *float64
		want       bool
	}{
		{"exactly at threshold", landmark.Float(threshold), true},
		{"just below threshold", landmark.Float(0.5999), false},
		{"unreported", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newProcessor(t)
			lms := poseFrame(0.7, 0.95)
			lms[landmark.PoseLeftHip].Visibility = tt.visibility
			lms[landmark.PoseRightHip].Visibility = tt.visibility
			require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: lms}, frameDt))

			offset, ok := p.Calibration()
			require.Equal(t, tt.want, ok)
			if tt.want {
				assert.InDelta(t, 0.7, offset, 1e-12)
			}
		})
	}
}

func TestResetCalibration(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.75, 0.9)}, frameDt))
	p.ResetCalibration()
	_, ok := p.Calibration()
	require.False(t, ok)

	require.NoError(t, p.Process(landmark.DetectorResult{PoseLandmarks: poseFrame(0.6, 0.9)}, frameDt))
	offset, ok := p.Calibration()
	require.True(t, ok)
	assert.InDelta(t, 0.6, offset, 1e-12)
}

func TestConfigFromTuning(t *testing.T) {
	t.Parallel()

	cfg, err := ConfigFromTuning(config.MustLoadDefaultConfig())
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults file disagrees with DefaultConfig (-want +got):\n%s", diff)
	}

	mode := "elapsed"
	source := "world"
	tc := config.EmptyTuningConfig()
	tc.TimeMode = &mode
	tc.PoseSource = &source
	cfg, err = ConfigFromTuning(tc)
	require.NoError(t, err)
	assert.Equal(t, filter.TimeModeElapsed, cfg.Filter.TimeMode)
	assert.Equal(t, PoseSourceWorld, cfg.PoseSource)

	bad := "sometimes"
	tc.TimeMode = &bad
	_, err = ConfigFromTuning(tc)
	assert.ErrorIs(t, err, filter.ErrInvalidParameter)
}
