// Package pose projects marker poses into an image so they can be drawn as
// orientation axes.
package pose

import (
	"errors"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/charlie0129/camcalib/pkg/calibration"
)

// ErrBehindCamera is returned when a point to project is not in front of
// the camera.
var ErrBehindCamera = errors.New("point is behind the camera")

// Rotate rotates p by the Rodrigues vector rvec.
func Rotate(rvec, p r3.Vector) r3.Vector {
	theta := rvec.Norm()
	if theta < 1e-12 {
		return p
	}
	k := rvec.Mul(1 / theta)
	cos, sin := math.Cos(theta), math.Sin(theta)
	return p.Mul(cos).
		Add(k.Cross(p).Mul(sin)).
		Add(k.Mul(k.Dot(p) * (1 - cos)))
}

// Transform maps p from object coordinates to camera coordinates.
func Transform(p calibration.Pose, v r3.Vector) r3.Vector {
	return Rotate(p.Rotation, v).Add(p.Translation)
}

// Project projects a point in camera coordinates with an ideal pinhole.
func Project(in calibration.Intrinsics, v r3.Vector) (r2.Point, error) {
	if v.Z <= 0 {
		return r2.Point{}, ErrBehindCamera
	}
	return r2.Point{
		X: in.Fx*v.X/v.Z + in.Ppx,
		Y: in.Fy*v.Y/v.Z + in.Ppy,
	}, nil
}

// Axes are the image positions of an object's origin and the tips of its
// x, y and z axes.
type Axes struct {
	Origin r2.Point
	X      r2.Point
	Y      r2.Point
	Z      r2.Point
}

// ProjectAxes projects the axes of an object at pose p, each of the given
// length, without lens distortion. It is meant for drawing on frames that
// have already been undistorted.
func ProjectAxes(in calibration.Intrinsics, p calibration.Pose, length float64) (Axes, error) {
	pts := [4]r3.Vector{
		{},
		{X: length},
		{Y: length},
		{Z: length},
	}
	var out [4]r2.Point
	for i, v := range pts {
		img, err := Project(in, Transform(p, v))
		if err != nil {
			return Axes{}, err
		}
		out[i] = img
	}
	return Axes{Origin: out[0], X: out[1], Y: out[2], Z: out[3]}, nil
}
