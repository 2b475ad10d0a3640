package vision

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/charlie0129/camcalib/pkg/session"
)

// Capture reads frames from a camera or a video file.
type Capture struct {
	vc   *gocv.VideoCapture
	name string
	// file sources end with an empty read; devices just hiccup.
	file bool
}

var _ session.FrameSource = &Capture{}

// OpenDevice opens camera id and requests the given frame size. A zero
// width or height keeps the device default.
func OpenDevice(id, width, height int) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrOpen, "device %d: %s", id, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, pkgerrors.Wrapf(ErrOpen, "device %d", id)
	}

	if width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	logrus.WithFields(logrus.Fields{
		"device": id,
		"width":  vc.Get(gocv.VideoCaptureFrameWidth),
		"height": vc.Get(gocv.VideoCaptureFrameHeight),
	}).Info("camera opened")

	return &Capture{vc: vc, name: "device"}, nil
}

// OpenFile opens a video file.
func OpenFile(path string) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrOpen, "file %s: %s", path, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, pkgerrors.Wrapf(ErrOpen, "file %s", path)
	}
	logrus.WithFields(logrus.Fields{
		"file":   path,
		"fps":    vc.Get(gocv.VideoCaptureFPS),
		"frames": vc.Get(gocv.VideoCaptureFrameCount),
	}).Info("video file opened")

	return &Capture{vc: vc, name: path, file: true}, nil
}

// NextFrame reads one frame. Devices report a failed read as an empty
// frame, files as session.ErrEndOfStream.
func (c *Capture) NextFrame(ctx context.Context) (session.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.NewMat()
	if ok := c.vc.Read(&mat); !ok || mat.Empty() {
		_ = mat.Close()
		if c.file {
			return nil, session.ErrEndOfStream
		}
		return NewFrame(gocv.NewMat()), nil
	}
	return NewFrame(mat), nil
}

func (c *Capture) Close() error {
	return c.vc.Close()
}
