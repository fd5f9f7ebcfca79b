package processor

import (
	"math"

	"github.com/banshee-data/pose.stabilizer/internal/filter"
	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"gonum.org/v1/gonum/spatial/r3"
)

// LandmarkSet is a fixed-length, index-addressed collection of filtered
// landmarks. Its length is set at construction and never changes.
type LandmarkSet struct {
	items []*filter.Landmark
}

// NewLandmarkSet allocates n unobserved landmarks sharing params p.
func NewLandmarkSet(n int, p filter.Params) *LandmarkSet {
	items := make([]*filter.Landmark, n)
	for i := range items {
		items[i] = filter.NewLandmark(p)
	}
	return &LandmarkSet{items: items}
}

// Len returns the fixed set length.
func (s *LandmarkSet) Len() int { return len(s.items) }

// Point returns a copy of landmark i's filtered state.
func (s *LandmarkSet) Point(i int) landmark.Point {
	l := s.items[i]
	p := l.Position()
	return landmark.Point{X: p.X, Y: p.Y, Z: p.Z, Visibility: l.Visibility()}
}

// Observed reports whether landmark i has accepted any update.
func (s *LandmarkSet) Observed(i int) bool { return s.items[i].Observed() }

// Points copies every filtered point into a new slice.
func (s *LandmarkSet) Points() []landmark.Point {
	out := make([]landmark.Point, len(s.items))
	for i := range s.items {
		out[i] = s.Point(i)
	}
	return out
}

// update feeds one frame of raw landmarks through transform and into the
// per-index filters. raw must already have the set length. It returns the
// number of accepted updates.
func (s *LandmarkSet) update(dt float64, raw []landmark.Landmark, transform func(r3.Vec) r3.Vec) int {
	accepted := 0
	for i, lm := range raw {
		if !finite(lm) {
			tracef("index %d: non-finite coordinates skipped", i)
			continue
		}
		if s.items[i].Update(dt, transform(lm.Vec()), lm.Visibility) {
			accepted++
		}
	}
	return accepted
}

func (s *LandmarkSet) reconfigure(u filter.Update) error {
	for _, l := range s.items {
		if err := l.Reconfigure(u); err != nil {
			return err
		}
	}
	return nil
}

func finite(lm landmark.Landmark) bool {
	for _, v := range [3]float64{lm.X, lm.Y, lm.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return lm.Visibility == nil || !math.IsNaN(*lm.Visibility)
}
