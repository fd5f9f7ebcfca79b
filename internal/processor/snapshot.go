package processor

import (
	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"github.com/banshee-data/pose.stabilizer/internal/orientation"
)

// Snapshot is a self-contained copy of a session's output after a frame.
// It shares no memory with the Processor and carries no filter state.
type Snapshot struct {
	SessionID string `json:"session_id"`
	Frame     uint64 `json:"frame"`

	Pose []landmark.Point `json:"pose"`
	Face []landmark.Point `json:"face"`

	PosePresent bool `json:"pose_present"`
	FacePresent bool `json:"face_present"`

	Calibrated     bool    `json:"calibrated"`
	VerticalOffset float64 `json:"vertical_offset"`

	Normal       [3]float64 `json:"normal"`
	NormalValid  bool       `json:"normal_valid"`
	NormalSource string     `json:"normal_source"`

	// Regions is debug output, only filled when the face mesh was present.
	Regions []orientation.RegionPoints `json:"regions,omitempty"`
}

// Snapshot copies the current filtered state out of the processor.
// Unobserved landmarks carry filter.Unobserved as their visibility.
func (p *Processor) Snapshot() Snapshot {
	n := p.orientation.Normal
	s := Snapshot{
		SessionID:      p.id,
		Frame:          p.frames,
		Pose:           p.pose.Points(),
		Face:           p.face.Points(),
		PosePresent:    p.posePresent,
		FacePresent:    p.facePresent,
		Calibrated:     p.calibrated,
		VerticalOffset: p.offset,
		Normal:         [3]float64{n.X, n.Y, n.Z},
		NormalValid:    p.orientation.Valid,
		NormalSource:   string(p.orientation.Source),
	}
	if p.regions != nil {
		s.Regions = make([]orientation.RegionPoints, len(p.regions))
		for i, r := range p.regions {
			s.Regions[i] = orientation.RegionPoints{
				Name:    r.Name,
				Indices: append([]int(nil), r.Indices...),
				Points:  append([]landmark.Point(nil), r.Points...),
			}
		}
	}
	return s
}
