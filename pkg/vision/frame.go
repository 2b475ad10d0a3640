// Package vision implements the session capabilities on top of OpenCV via
// gocv: video capture, ArUco marker detection, camera calibration, pose
// estimation, undistortion, drawing and HighGUI windows.
package vision

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"github.com/charlie0129/camcalib/pkg/session"
)

// ErrOpen is returned when a video device or file cannot be opened.
var ErrOpen = errors.New("unable to open video source")

// ErrForeignFrame is returned when a frame was not produced by this package.
var ErrForeignFrame = errors.New("frame is not backed by a gocv.Mat")

// Frame is a session.Frame backed by a gocv.Mat.
type Frame struct {
	mat gocv.Mat
}

var _ session.Frame = &Frame{}

// NewFrame takes ownership of mat.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Mat returns the underlying matrix. It stays owned by the frame.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Size() image.Point {
	return image.Pt(f.mat.Cols(), f.mat.Rows())
}

func (f *Frame) Empty() bool {
	return f.mat.Empty()
}

func (f *Frame) Clone() session.Frame {
	return &Frame{mat: f.mat.Clone()}
}

func (f *Frame) Close() error {
	return f.mat.Close()
}

func matOf(frame session.Frame) (gocv.Mat, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return gocv.Mat{}, ErrForeignFrame
	}
	return f.mat, nil
}
