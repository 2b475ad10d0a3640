// Package board models a ChArUco calibration target: where its markers and
// chessboard corners are in physical board coordinates, how detected corners
// map back onto it, and how chessboard corners are recovered from detected
// markers.
package board

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/camcalib/pkg/calibration"
)

// Board is an immutable ChArUco board layout. All coordinates are in the
// board plane (z = 0), origin at the top-left outer corner, x to the right,
// y downwards, in the unit of the geometry lengths.
type Board struct {
	geometry calibration.BoardGeometry

	// markers[i] is the marker with id i.
	markers [][4]r3.Vector
	// corners[i] is the chessboard corner with id i.
	corners []r3.Vector
	// adjacent[i] lists the ids of markers touching corner i.
	adjacent [][]int
}

// New builds the board layout for g. Markers sit on the squares where the
// row and column parity differ, with ids assigned in row-major order.
func New(g calibration.BoardGeometry) (*Board, error) {
	if err := g.CheckValid(); err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid board geometry")
	}
	size, ok := DictionarySize(g.Dictionary)
	if !ok {
		return nil, pkgerrors.Errorf("unknown marker dictionary %q", g.Dictionary)
	}
	if size < g.MarkerCount() {
		return nil, pkgerrors.Errorf("dictionary %s has %d markers but the board needs %d", g.Dictionary, size, g.MarkerCount())
	}

	b := &Board{geometry: g}

	inset := (g.SquareLength - g.MarkerLength) / 2
	markerAt := make(map[[2]int]int)
	for y := 0; y < g.SquaresY; y++ {
		for x := 0; x < g.SquaresX; x++ {
			if y%2 == x%2 {
				// black square, no marker
				continue
			}
			origin := r3.Vector{X: float64(x)*g.SquareLength + inset, Y: float64(y)*g.SquareLength + inset}
			markerAt[[2]int{x, y}] = len(b.markers)
			b.markers = append(b.markers, [4]r3.Vector{
				origin,
				origin.Add(r3.Vector{X: g.MarkerLength}),
				origin.Add(r3.Vector{X: g.MarkerLength, Y: g.MarkerLength}),
				origin.Add(r3.Vector{Y: g.MarkerLength}),
			})
		}
	}

	for y := 0; y < g.SquaresY-1; y++ {
		for x := 0; x < g.SquaresX-1; x++ {
			b.corners = append(b.corners, r3.Vector{
				X: float64(x+1) * g.SquareLength,
				Y: float64(y+1) * g.SquareLength,
			})
			var adj []int
			for _, sq := range [4][2]int{{x, y}, {x + 1, y}, {x, y + 1}, {x + 1, y + 1}} {
				if id, ok := markerAt[sq]; ok {
					adj = append(adj, id)
				}
			}
			b.adjacent = append(b.adjacent, adj)
		}
	}

	return b, nil
}

// Geometry returns the geometry the board was built from.
func (b *Board) Geometry() calibration.BoardGeometry {
	return b.geometry
}

// MarkerCount returns the number of markers on the board.
func (b *Board) MarkerCount() int {
	return len(b.markers)
}

// CornerCount returns the number of chessboard corners on the board.
func (b *Board) CornerCount() int {
	return len(b.corners)
}

// MarkerCorners returns the object points of marker id.
func (b *Board) MarkerCorners(id int) ([4]r3.Vector, bool) {
	if id < 0 || id >= len(b.markers) {
		return [4]r3.Vector{}, false
	}
	return b.markers[id], true
}

// Corner returns the object point of chessboard corner id.
func (b *Board) Corner(id int) (r3.Vector, bool) {
	if id < 0 || id >= len(b.corners) {
		return r3.Vector{}, false
	}
	return b.corners[id], true
}

// AdjacentMarkers returns the ids of the markers touching corner id.
func (b *Board) AdjacentMarkers(id int) []int {
	if id < 0 || id >= len(b.adjacent) {
		return nil
	}
	return append([]int(nil), b.adjacent[id]...)
}

// MatchImagePoints pairs detected chessboard corners with their object
// points. Corners with unknown ids are skipped. Both results are empty when
// the inputs have different lengths or no id is known.
func (b *Board) MatchImagePoints(corners []r2.Point, ids []int) ([]r3.Vector, []r2.Point) {
	if len(corners) != len(ids) {
		return nil, nil
	}
	var objectPoints []r3.Vector
	var imagePoints []r2.Point
	for i, id := range ids {
		obj, ok := b.Corner(id)
		if !ok {
			continue
		}
		objectPoints = append(objectPoints, obj)
		imagePoints = append(imagePoints, corners[i])
	}
	return objectPoints, imagePoints
}

// MarkerObjectPoints returns the corners of a single marker centred on the
// origin, in detection order, with y pointing up. This is the model used to
// estimate the pose of an individual marker.
func (b *Board) MarkerObjectPoints() []r3.Vector {
	h := b.geometry.MarkerLength / 2
	return []r3.Vector{
		{X: -h, Y: h},
		{X: h, Y: h},
		{X: h, Y: -h},
		{X: -h, Y: -h},
	}
}
