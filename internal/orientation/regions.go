package orientation

import "github.com/banshee-data/pose.stabilizer/internal/landmark"

// RegionPoints pairs a facial sub-region with its filtered points.
// It is debug output only; the normal does not depend on it.
type RegionPoints struct {
	Name    string           `json:"name"`
	Indices []int            `json:"indices"`
	Points  []landmark.Point `json:"points"`
}

// Regions copies the named face mesh regions out of the filtered set.
// Indices beyond the set length are skipped.
func Regions(face PointSet) []RegionPoints {
	if face == nil {
		return nil
	}
	out := make([]RegionPoints, 0, len(landmark.FaceRegions))
	for _, r := range landmark.FaceRegions {
		rp := RegionPoints{
			Name:    r.Name,
			Indices: make([]int, 0, len(r.Indices)),
			Points:  make([]landmark.Point, 0, len(r.Indices)),
		}
		for _, idx := range r.Indices {
			if idx >= face.Len() {
				continue
			}
			rp.Indices = append(rp.Indices, idx)
			rp.Points = append(rp.Points, face.Point(idx))
		}
		out = append(out, rp)
	}
	return out
}
