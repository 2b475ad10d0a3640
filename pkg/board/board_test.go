package board

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/charlie0129/camcalib/pkg/calibration"
)

func TestNewLayout(t *testing.T) {
	b, err := New(calibration.DefaultBoardGeometry)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.MarkerCount(), test.ShouldEqual, 31)
	test.That(t, b.CornerCount(), test.ShouldEqual, 48)

	// Marker 0 sits on the second square of the first row.
	m, ok := b.MarkerCorners(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m[0].X, test.ShouldAlmostEqual, 0.33)
	test.That(t, m[0].Y, test.ShouldAlmostEqual, 0.04)
	test.That(t, m[2].X, test.ShouldAlmostEqual, 0.54)
	test.That(t, m[2].Y, test.ShouldAlmostEqual, 0.25)

	// The first marker of the second row is on its first square.
	m, ok = b.MarkerCorners(3)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m[0].X, test.ShouldAlmostEqual, 0.04)
	test.That(t, m[0].Y, test.ShouldAlmostEqual, 0.33)

	_, ok = b.MarkerCorners(31)
	test.That(t, ok, test.ShouldBeFalse)

	c, ok := b.Corner(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c, test.ShouldResemble, r3.Vector{X: 0.29, Y: 0.29})
	c, ok = b.Corner(47)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.X, test.ShouldAlmostEqual, 6*0.29)
	test.That(t, c.Y, test.ShouldAlmostEqual, 8*0.29)
	_, ok = b.Corner(-1)
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, b.AdjacentMarkers(0), test.ShouldResemble, []int{0, 3})
	for id := 0; id < b.CornerCount(); id++ {
		test.That(t, b.AdjacentMarkers(id), test.ShouldHaveLength, 2)
	}
	test.That(t, b.AdjacentMarkers(48), test.ShouldBeNil)
}

func TestNewRejectsInvalidGeometry(t *testing.T) {
	g := calibration.DefaultBoardGeometry
	g.Dictionary = "8x8_1"
	_, err := New(g)
	test.That(t, err, test.ShouldNotBeNil)

	g = calibration.DefaultBoardGeometry
	g.SquaresX, g.SquaresY = 12, 12
	g.Dictionary = "4x4_50"
	_, err = New(g)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "needs 72")

	g = calibration.DefaultBoardGeometry
	g.MarkerLength = 0.3
	_, err = New(g)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMatchImagePoints(t *testing.T) {
	b, err := New(calibration.DefaultBoardGeometry)
	test.That(t, err, test.ShouldBeNil)

	corners := []r2.Point{{X: 10, Y: 20}, {X: 30, Y: 40}, {X: 50, Y: 60}}
	obj, img := b.MatchImagePoints(corners, []int{0, 100, 47})
	test.That(t, obj, test.ShouldHaveLength, 2)
	test.That(t, img, test.ShouldResemble, []r2.Point{{X: 10, Y: 20}, {X: 50, Y: 60}})
	test.That(t, obj[0], test.ShouldResemble, r3.Vector{X: 0.29, Y: 0.29})

	obj, img = b.MatchImagePoints(corners, []int{0, 1})
	test.That(t, obj, test.ShouldBeEmpty)
	test.That(t, img, test.ShouldBeEmpty)

	obj, img = b.MatchImagePoints(corners[:1], []int{-3})
	test.That(t, obj, test.ShouldBeEmpty)
	test.That(t, img, test.ShouldBeEmpty)
}

func TestMarkerObjectPoints(t *testing.T) {
	b, err := New(calibration.DefaultBoardGeometry)
	test.That(t, err, test.ShouldBeNil)

	pts := b.MarkerObjectPoints()
	test.That(t, pts, test.ShouldHaveLength, 4)
	test.That(t, pts[0].X, test.ShouldAlmostEqual, -0.105)
	test.That(t, pts[0].Y, test.ShouldAlmostEqual, 0.105)
	test.That(t, pts[2].X, test.ShouldAlmostEqual, 0.105)
	test.That(t, pts[2].Y, test.ShouldAlmostEqual, -0.105)
	for _, p := range pts {
		test.That(t, p.Z, test.ShouldEqual, 0)
	}
}

func TestDictionaries(t *testing.T) {
	n, ok := DictionarySize("6x6_250")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, n, test.ShouldEqual, 250)
	_, ok = DictionarySize("6x6_251")
	test.That(t, ok, test.ShouldBeFalse)

	names := DictionaryNames()
	test.That(t, names, test.ShouldHaveLength, 17)
	test.That(t, names[0], test.ShouldEqual, "4x4_100")
}
