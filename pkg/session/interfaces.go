package session

import (
	"context"
	"image"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/camcalib/pkg/calibration"
)

// Frame is an opaque image owned by whoever received it. Close releases it.
type Frame interface {
	Size() image.Point
	Empty() bool
	Clone() Frame
	Close() error
}

// FrameSource delivers sequential frames. An empty frame is valid and not
// fatal. ErrEndOfStream means no more frames will follow.
type FrameSource interface {
	NextFrame(ctx context.Context) (Frame, error)
}

// BoardDetector finds markers and interpolated board corners in a frame.
type BoardDetector interface {
	Detect(frame Frame) (calibration.Detection, error)
}

// PointMatcher pairs detected board corners with physical board points.
// Either result may be empty when matching fails.
type PointMatcher interface {
	MatchImagePoints(corners []r2.Point, ids []int) ([]r3.Vector, []r2.Point)
}

// BoardModel is the board as seen by the controller.
type BoardModel interface {
	PointMatcher
	// MarkerObjectPoints returns the model used for single marker poses.
	MarkerObjectPoints() []r3.Vector
	Geometry() calibration.BoardGeometry
}

// CalibrationSolver estimates a camera model from all accumulated
// correspondences. It runs to completion once called.
type CalibrationSolver interface {
	Calibrate(ctx context.Context, imagePoints [][]r2.Point, objectPoints [][]r3.Vector, size image.Point) (calibration.Result, error)
}

// PoseSolver estimates the pose of a planar object.
type PoseSolver interface {
	SolvePose(object []r3.Vector, image []r2.Point, camera calibration.Camera) (calibration.Pose, error)
}

// Undistorter removes lens distortion from a frame. The returned frame is
// owned by the caller.
type Undistorter interface {
	Undistort(frame Frame, camera calibration.Camera) (Frame, error)
}

// Annotator draws overlays onto a frame in place.
type Annotator interface {
	DrawDetection(frame Frame, det calibration.Detection, drawCorners bool)
	DrawAxes(frame Frame, camera calibration.Camera, pose calibration.Pose, length float64) error
}

// Display renders frames and reports key presses. PollKey blocks for at
// most timeout and returns -1 when no key was pressed.
type Display interface {
	Show(window string, frame Frame) error
	PollKey(timeout time.Duration) int
}

// Collaborators are the capabilities a Session drives.
type Collaborators struct {
	Source      FrameSource
	Detector    BoardDetector
	Board       BoardModel
	Calibrator  CalibrationSolver
	PoseSolver  PoseSolver
	Undistorter Undistorter
	Annotator   Annotator
	Display     Display
}

func (c Collaborators) check() error {
	for _, v := range []struct {
		name    string
		missing bool
	}{
		{"source", c.Source == nil},
		{"detector", c.Detector == nil},
		{"board", c.Board == nil},
		{"calibrator", c.Calibrator == nil},
		{"pose solver", c.PoseSolver == nil},
		{"undistorter", c.Undistorter == nil},
		{"annotator", c.Annotator == nil},
		{"display", c.Display == nil},
	} {
		if v.missing {
			return pkgerrors.Errorf("missing collaborator: %s", v.name)
		}
	}
	return nil
}
