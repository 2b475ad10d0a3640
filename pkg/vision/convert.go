package vision

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	pkgerrors "github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/charlie0129/camcalib/pkg/calibration"
)

func toPoint2f(p r2.Point) gocv.Point2f {
	return gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
}

func fromPoint2f(p gocv.Point2f) r2.Point {
	return r2.Point{X: float64(p.X), Y: float64(p.Y)}
}

func toPoint3f(v r3.Vector) gocv.Point3f {
	return gocv.Point3f{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

func toPoints2f(pts []r2.Point) []gocv.Point2f {
	out := make([]gocv.Point2f, len(pts))
	for i, p := range pts {
		out[i] = toPoint2f(p)
	}
	return out
}

func toPoints3f(pts []r3.Vector) []gocv.Point3f {
	out := make([]gocv.Point3f, len(pts))
	for i, p := range pts {
		out[i] = toPoint3f(p)
	}
	return out
}

func toImagePoint(p r2.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// cameraMatrix returns the 3x3 CV_64F camera matrix. The caller closes it.
func cameraMatrix(in calibration.Intrinsics) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	k := in.Matrix()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, k[r*3+c])
		}
	}
	return m
}

// distortionMatrix returns the 1x5 CV_64F distortion coefficients. The
// caller closes it.
func distortionMatrix(d calibration.Distortion) gocv.Mat {
	params := d.Parameters()
	m := gocv.NewMatWithSize(1, len(params), gocv.MatTypeCV64F)
	for i, v := range params {
		m.SetDoubleAt(0, i, v)
	}
	return m
}

func intrinsicsFromMat(m gocv.Mat, size image.Point) (calibration.Intrinsics, error) {
	if m.Rows() != 3 || m.Cols() != 3 {
		return calibration.Intrinsics{}, pkgerrors.Errorf("camera matrix is %dx%d, want 3x3", m.Rows(), m.Cols())
	}
	var k [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			k[r*3+c] = m.GetDoubleAt(r, c)
		}
	}
	return calibration.IntrinsicsFromMatrix(k, size), nil
}

// distortionFromMat reads up to five coefficients from a row or column
// vector. OpenCV may return more when rational models are enabled; only the
// Brown-Conrady terms are kept.
func distortionFromMat(m gocv.Mat) (calibration.Distortion, error) {
	n := m.Rows() * m.Cols()
	if n == 0 {
		return calibration.Distortion{}, pkgerrors.New("empty distortion coefficients")
	}
	if n > 5 {
		n = 5
	}
	params := make([]float64, n)
	for i := range params {
		if m.Rows() == 1 {
			params[i] = m.GetDoubleAt(0, i)
		} else {
			params[i] = m.GetDoubleAt(i, 0)
		}
	}
	return calibration.NewDistortion(params)
}

func vectorFromMat(m gocv.Mat) r3.Vector {
	if m.Rows() == 1 {
		return r3.Vector{X: m.GetDoubleAt(0, 0), Y: m.GetDoubleAt(0, 1), Z: m.GetDoubleAt(0, 2)}
	}
	return r3.Vector{X: m.GetDoubleAt(0, 0), Y: m.GetDoubleAt(1, 0), Z: m.GetDoubleAt(2, 0)}
}
