package vision

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	pkgerrors "github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/session"
)

// Solver calibrates cameras, estimates poses and undistorts frames.
type Solver struct {
	// Flags are passed to CalibrateCamera as is.
	Flags gocv.CalibFlag
}

var (
	_ session.CalibrationSolver = Solver{}
	_ session.PoseSolver        = Solver{}
	_ session.Undistorter       = Solver{}
)

// Calibrate runs OpenCV's calibrateCamera. It cannot be interrupted once
// started; ctx is only checked before.
func (s Solver) Calibrate(ctx context.Context, imagePoints [][]r2.Point, objectPoints [][]r3.Vector, size image.Point) (calibration.Result, error) {
	if err := ctx.Err(); err != nil {
		return calibration.Result{}, err
	}
	if len(imagePoints) == 0 || len(imagePoints) != len(objectPoints) {
		return calibration.Result{}, pkgerrors.Errorf("got %d image point sets and %d object point sets", len(imagePoints), len(objectPoints))
	}
	if size.X <= 0 || size.Y <= 0 {
		return calibration.Result{}, pkgerrors.Errorf("invalid image size %v", size)
	}

	obj := gocv.NewPoints3fVector()
	defer obj.Close()
	img := gocv.NewPoints2fVector()
	defer img.Close()
	for i := range imagePoints {
		if len(imagePoints[i]) != len(objectPoints[i]) {
			return calibration.Result{}, pkgerrors.Errorf("frame %d has %d image points and %d object points", i, len(imagePoints[i]), len(objectPoints[i]))
		}
		ov := gocv.NewPoint3fVectorFromPoints(toPoints3f(objectPoints[i]))
		obj.Append(ov)
		ov.Close()
		iv := gocv.NewPoint2fVectorFromPoints(toPoints2f(imagePoints[i]))
		img.Append(iv)
		iv.Close()
	}

	camMat := gocv.NewMat()
	defer camMat.Close()
	dist := gocv.NewMat()
	defer dist.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(obj, img, size, &camMat, &dist, &rvecs, &tvecs, s.Flags)

	intrinsics, err := intrinsicsFromMat(camMat, size)
	if err != nil {
		return calibration.Result{}, err
	}
	if err := intrinsics.CheckValid(); err != nil {
		return calibration.Result{}, pkgerrors.Wrap(err, "calibration did not converge")
	}
	distortion, err := distortionFromMat(dist)
	if err != nil {
		return calibration.Result{}, err
	}

	return calibration.Result{
		Camera: calibration.Camera{
			Intrinsics: intrinsics,
			Distortion: distortion,
		},
		ReprojectionError: rms,
	}, nil
}

// SolvePose runs OpenCV's iterative solvePnP.
func (s Solver) SolvePose(object []r3.Vector, imagePoints []r2.Point, camera calibration.Camera) (calibration.Pose, error) {
	if len(object) < 4 || len(object) != len(imagePoints) {
		return calibration.Pose{}, pkgerrors.Errorf("need at least 4 matching points, got %d object and %d image points", len(object), len(imagePoints))
	}

	ov := gocv.NewPoint3fVectorFromPoints(toPoints3f(object))
	defer ov.Close()
	iv := gocv.NewPoint2fVectorFromPoints(toPoints2f(imagePoints))
	defer iv.Close()
	camMat := cameraMatrix(camera.Intrinsics)
	defer camMat.Close()
	dist := distortionMatrix(camera.Distortion)
	defer dist.Close()

	rvec := gocv.NewMat()
	defer rvec.Close()
	tvec := gocv.NewMat()
	defer tvec.Close()

	// flags 0 is SOLVEPNP_ITERATIVE
	if !gocv.SolvePnP(ov, iv, camMat, dist, &rvec, &tvec, false, 0) {
		return calibration.Pose{}, pkgerrors.New("solvePnP found no solution")
	}
	return calibration.Pose{
		Rotation:    vectorFromMat(rvec),
		Translation: vectorFromMat(tvec),
	}, nil
}

// Undistort returns a new frame with lens distortion removed.
func (s Solver) Undistort(frame session.Frame, camera calibration.Camera) (session.Frame, error) {
	src, err := matOf(frame)
	if err != nil {
		return nil, err
	}

	camMat := cameraMatrix(camera.Intrinsics)
	defer camMat.Close()
	dist := distortionMatrix(camera.Distortion)
	defer dist.Close()

	dst := gocv.NewMat()
	gocv.Undistort(src, &dst, camMat, dist, camMat)
	if dst.Empty() {
		_ = dst.Close()
		return nil, pkgerrors.New("undistortion produced an empty frame")
	}
	return NewFrame(dst), nil
}
