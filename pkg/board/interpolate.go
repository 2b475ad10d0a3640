package board

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	pkgerrors "github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/charlie0129/camcalib/pkg/calibration"
)

// Homography maps board plane points to image points.
type Homography [9]float64

// Apply maps p through the homography.
func (h Homography) Apply(p r2.Point) r2.Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	return r2.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// HomographyFromQuad solves the homography taking the four src points to the
// four dst points, with h33 fixed to 1.
func HomographyFromQuad(src, dst [4]r2.Point) (Homography, error) {
	a := mat.NewDense(8, 8, nil)
	rhs := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		rhs.SetVec(2*i, u)
		rhs.SetVec(2*i+1, v)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, rhs); err != nil {
		return Homography{}, pkgerrors.Wrap(err, "degenerate quad")
	}

	var h Homography
	for i := 0; i < 8; i++ {
		h[i] = sol.AtVec(i)
	}
	h[8] = 1
	return h, nil
}

func planar(v r3.Vector) r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}

// InterpolateCorners recovers chessboard corners from detected markers. Each
// corner is projected through the local homography of every detected marker
// adjacent to it and the projections are averaged. A corner is reported only
// when at least MinMarkers of its adjacent markers were detected. Markers that
// do not belong to the board, or whose id was detected more than once, are
// ignored. Corners are returned in ascending id order.
func (b *Board) InterpolateCorners(markers []calibration.Marker) ([]r2.Point, []int) {
	seen := make(map[int]int, len(markers))
	for _, m := range markers {
		seen[m.ID]++
	}

	homographies := make(map[int]Homography, len(markers))
	for _, m := range markers {
		obj, ok := b.MarkerCorners(m.ID)
		if !ok || seen[m.ID] > 1 {
			// not ours, or ambiguous
			continue
		}
		h, err := HomographyFromQuad(
			[4]r2.Point{planar(obj[0]), planar(obj[1]), planar(obj[2]), planar(obj[3])},
			m.Corners,
		)
		if err != nil {
			continue
		}
		homographies[m.ID] = h
	}

	var corners []r2.Point
	var ids []int
	for id, adj := range b.adjacent {
		var sum r2.Point
		n := 0
		for _, markerID := range adj {
			h, ok := homographies[markerID]
			if !ok {
				continue
			}
			sum = sum.Add(h.Apply(planar(b.corners[id])))
			n++
		}
		if n == 0 || n < b.geometry.MinMarkers {
			continue
		}
		corners = append(corners, sum.Mul(1/float64(n)))
		ids = append(ids, id)
	}
	return corners, ids
}
