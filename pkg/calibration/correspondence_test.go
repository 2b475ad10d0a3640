package calibration

import (
	"errors"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

func entry(n int) Correspondence {
	var c Correspondence
	for i := 0; i < n; i++ {
		c.Corners = append(c.Corners, r2.Point{X: float64(i)})
		c.CornerIDs = append(c.CornerIDs, i)
		c.ImagePoints = append(c.ImagePoints, r2.Point{X: float64(i)})
		c.ObjectPoints = append(c.ObjectPoints, r3.Vector{X: float64(i)})
	}
	return c
}

func TestCorrespondenceSetAppend(t *testing.T) {
	s := NewCorrespondenceSet(0)
	for i := 1; i <= 3; i++ {
		if err := s.Append(entry(4 + i)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if s.Len() != i {
			t.Fatalf("expected %d entries, got %d", i, s.Len())
		}
	}
	if s.Full() {
		t.Fatalf("unbounded set reported full")
	}

	img, obj := s.ImagePoints(), s.ObjectPoints()
	if len(img) != 3 || len(obj) != 3 || len(img[2]) != 7 || len(obj[0]) != 5 {
		t.Fatalf("unexpected points %d/%d", len(img), len(obj))
	}

	if err := s.Append(Correspondence{ObjectPoints: []r3.Vector{{}}}); !errors.Is(err, ErrEmptyCorrespondence) {
		t.Fatalf("expected ErrEmptyCorrespondence, got %v", err)
	}
}

func TestCorrespondenceSetCapacity(t *testing.T) {
	s := NewCorrespondenceSet(2)
	for i := 0; i < 2; i++ {
		if err := s.Append(entry(5)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if !s.Full() || s.Capacity() != 2 {
		t.Fatalf("expected full set of capacity 2")
	}
	if err := s.Append(entry(5)); !errors.Is(err, ErrSetFull) {
		t.Fatalf("expected ErrSetFull, got %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("full set grew to %d", s.Len())
	}
}

func TestCorrespondenceSetCopies(t *testing.T) {
	s := NewCorrespondenceSet(0)
	c := entry(5)
	if err := s.Append(c); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Mutating the input, or anything handed out, must not reach the set.
	c.ImagePoints[0].X = 100
	s.ImagePoints()[0][1].X = 100
	got := s.At(0)
	got.ObjectPoints[2].X = 100

	again := s.At(0)
	if again.ImagePoints[0].X != 0 || again.ImagePoints[1].X != 1 || again.ObjectPoints[2].X != 2 {
		t.Fatalf("entry was mutated: %+v", again)
	}
}
