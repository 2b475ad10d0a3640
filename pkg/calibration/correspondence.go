package calibration

import (
	"errors"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// ErrSetFull is returned when a bounded CorrespondenceSet is at capacity.
var ErrSetFull = errors.New("correspondence set is full")

// ErrEmptyCorrespondence is returned when appending an entry without
// matched points.
var ErrEmptyCorrespondence = errors.New("correspondence has no matched points")

// Correspondence holds the board observations of one accepted frame.
type Correspondence struct {
	Corners      []r2.Point  `json:"corners"`
	CornerIDs    []int       `json:"cornerIds"`
	ImagePoints  []r2.Point  `json:"imagePoints"`
	ObjectPoints []r3.Vector `json:"objectPoints"`
}

// CorrespondenceSet is the append-only sequence of accepted frames.
// Entries are copied on append and never mutated afterwards.
type CorrespondenceSet struct {
	entries  []Correspondence
	capacity int
}

// NewCorrespondenceSet returns an empty set. A capacity of 0 means unbounded.
func NewCorrespondenceSet(capacity int) *CorrespondenceSet {
	if capacity < 0 {
		capacity = 0
	}
	return &CorrespondenceSet{capacity: capacity}
}

// Append adds c to the end of the set.
func (s *CorrespondenceSet) Append(c Correspondence) error {
	if len(c.ImagePoints) == 0 || len(c.ObjectPoints) == 0 {
		return ErrEmptyCorrespondence
	}
	if s.Full() {
		return ErrSetFull
	}
	s.entries = append(s.entries, Correspondence{
		Corners:      append([]r2.Point(nil), c.Corners...),
		CornerIDs:    append([]int(nil), c.CornerIDs...),
		ImagePoints:  append([]r2.Point(nil), c.ImagePoints...),
		ObjectPoints: append([]r3.Vector(nil), c.ObjectPoints...),
	})
	return nil
}

// Len returns the number of accepted frames.
func (s *CorrespondenceSet) Len() int {
	return len(s.entries)
}

// Capacity returns the configured bound, 0 if unbounded.
func (s *CorrespondenceSet) Capacity() int {
	return s.capacity
}

// Full reports whether a bounded set reached its capacity.
func (s *CorrespondenceSet) Full() bool {
	return s.capacity > 0 && len(s.entries) >= s.capacity
}

// At returns a copy of the i-th entry.
func (s *CorrespondenceSet) At(i int) Correspondence {
	e := s.entries[i]
	return Correspondence{
		Corners:      append([]r2.Point(nil), e.Corners...),
		CornerIDs:    append([]int(nil), e.CornerIDs...),
		ImagePoints:  append([]r2.Point(nil), e.ImagePoints...),
		ObjectPoints: append([]r3.Vector(nil), e.ObjectPoints...),
	}
}

// ImagePoints returns the matched image points of every entry, in order.
func (s *CorrespondenceSet) ImagePoints() [][]r2.Point {
	out := make([][]r2.Point, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, append([]r2.Point(nil), e.ImagePoints...))
	}
	return out
}

// ObjectPoints returns the matched object points of every entry, in order.
func (s *CorrespondenceSet) ObjectPoints() [][]r3.Vector {
	out := make([][]r3.Vector, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, append([]r3.Vector(nil), e.ObjectPoints...))
	}
	return out
}
