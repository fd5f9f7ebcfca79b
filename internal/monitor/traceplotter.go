// Package monitor records raw and filtered landmark traces during a run
// and renders them for offline tuning of the filter parameters.
package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/banshee-data/pose.stabilizer/internal/filter"
	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"github.com/banshee-data/pose.stabilizer/internal/processor"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Set names the landmark set a plotter follows.
type Set string

const (
	SetPose Set = "pose"
	SetFace Set = "face"
)

// TraceSample is one frame of a traced landmark. Raw is the detector
// value mapped into output coordinates; a missing side is NaN.
type TraceSample struct {
	Frame      uint64
	Raw        [3]float64
	Filtered   [3]float64
	Visibility float64
}

var axisNames = [3]string{"x", "y", "z"}

// TracePlotter follows one landmark across frames.
type TracePlotter struct {
	mu         sync.Mutex
	set        Set
	index      int
	poseSource processor.PoseSource
	samples    []TraceSample
}

// NewTracePlotter validates the landmark reference. poseSource selects
// which raw pose list is compared against the filtered pose set.
func NewTracePlotter(set Set, index int, poseSource processor.PoseSource) (*TracePlotter, error) {
	var n int
	switch set {
	case SetPose:
		n = landmark.PoseCount
	case SetFace:
		n = landmark.FaceCount
	default:
		return nil, fmt.Errorf("unknown landmark set %q", set)
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("%s landmark index %d out of range [0, %d)", set, index, n)
	}
	return &TracePlotter{set: set, index: index, poseSource: poseSource}, nil
}

// Name returns a short label such as "pose_23".
func (tp *TracePlotter) Name() string {
	return fmt.Sprintf("%s_%02d", tp.set, tp.index)
}

// Sample records the traced landmark from one processed frame.
func (tp *TracePlotter) Sample(res landmark.DetectorResult, snap processor.Snapshot) {
	nan := math.NaN()
	s := TraceSample{
		Frame:      snap.Frame,
		Raw:        [3]float64{nan, nan, nan},
		Filtered:   [3]float64{nan, nan, nan},
		Visibility: filter.Unobserved,
	}

	var raw []landmark.Landmark
	var filtered []landmark.Point
	var present bool
	switch tp.set {
	case SetPose:
		raw = res.PoseLandmarks
		if tp.poseSource == processor.PoseSourceWorld {
			raw = res.PoseWorldLandmarks
		}
		filtered, present = snap.Pose, snap.PosePresent
	case SetFace:
		raw, filtered, present = res.FaceLandmarks, snap.Face, snap.FacePresent
	}

	if present && tp.index < len(raw) {
		l := raw[tp.index]
		y := -l.Y
		if tp.set == SetPose {
			y = snap.VerticalOffset - l.Y
		}
		s.Raw = [3]float64{l.X, y, l.Z}
	}
	if tp.index < len(filtered) {
		p := filtered[tp.index]
		s.Visibility = p.Visibility
		if p.Visibility != filter.Unobserved {
			s.Filtered = [3]float64{p.X, p.Y, p.Z}
		}
	}

	tp.mu.Lock()
	tp.samples = append(tp.samples, s)
	tp.mu.Unlock()
}

// Samples returns a copy of the recorded samples.
func (tp *TracePlotter) Samples() []TraceSample {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	out := make([]TraceSample, len(tp.samples))
	copy(out, tp.samples)
	return out
}

// GeneratePlots writes one PNG per axis into outputDir, comparing raw and
// filtered values over frames. Returns the number of plots written.
func (tp *TracePlotter) GeneratePlots(outputDir string) (int, error) {
	samples := tp.Samples()
	if len(samples) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	rawColor := color.RGBA{R: 200, G: 60, B: 60, A: 255}
	filteredColor := color.RGBA{R: 30, G: 90, B: 200, A: 255}

	count := 0
	for axis, name := range axisNames {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s - %s (raw vs filtered)", tp.Name(), name)
		p.X.Label.Text = "Frame"
		p.Y.Label.Text = name

		rawPts := make(plotter.XYs, 0, len(samples))
		filteredPts := make(plotter.XYs, 0, len(samples))
		for _, s := range samples {
			if !math.IsNaN(s.Raw[axis]) {
				rawPts = append(rawPts, plotter.XY{X: float64(s.Frame), Y: s.Raw[axis]})
			}
			if !math.IsNaN(s.Filtered[axis]) {
				filteredPts = append(filteredPts, plotter.XY{X: float64(s.Frame), Y: s.Filtered[axis]})
			}
		}

		if len(rawPts) > 0 {
			rawLine, err := plotter.NewLine(rawPts)
			if err != nil {
				return count, err
			}
			rawLine.Color = rawColor
			rawLine.Width = vg.Points(0.5)
			p.Add(rawLine)
			p.Legend.Add("raw", rawLine)
		}
		if len(filteredPts) > 0 {
			filteredLine, err := plotter.NewLine(filteredPts)
			if err != nil {
				return count, err
			}
			filteredLine.Color = filteredColor
			filteredLine.Width = vg.Points(1.5)
			p.Add(filteredLine)
			p.Legend.Add("filtered", filteredLine)
		}

		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10

		file := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", tp.Name(), name))
		if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
			return count, fmt.Errorf("save %s plot: %w", name, err)
		}
		count++
	}
	return count, nil
}
