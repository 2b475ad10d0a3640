package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/pose"
	"github.com/charlie0129/camcalib/pkg/session"
)

var (
	// Scalars are BGR.
	markerBorder = gocv.NewScalar(0, 255, 0, 0)
	cornerColor  = color.RGBA{R: 255, A: 255}
	axisX        = color.RGBA{R: 255, A: 255}
	axisY        = color.RGBA{G: 255, A: 255}
	axisZ        = color.RGBA{B: 255, A: 255}
)

// Annotator draws detections and pose axes with OpenCV.
type Annotator struct{}

var _ session.Annotator = Annotator{}

// DrawDetection outlines detected markers and, if drawCorners is set, marks
// the interpolated board corners with their ids.
func (Annotator) DrawDetection(frame session.Frame, det calibration.Detection, drawCorners bool) {
	mat, err := matOf(frame)
	if err != nil {
		return
	}

	if len(det.Markers) > 0 {
		corners := make([][]gocv.Point2f, len(det.Markers))
		ids := make([]int, len(det.Markers))
		for i, m := range det.Markers {
			corners[i] = toPoints2f(m.Corners[:])
			ids[i] = m.ID
		}
		gocv.ArucoDrawDetectedMarkers(mat, corners, ids, markerBorder)
	}

	if !drawCorners {
		return
	}
	for i, c := range det.BoardCorners {
		p := toImagePoint(c)
		gocv.Circle(&mat, p, 3, cornerColor, 2)
		if i < len(det.BoardCornerIDs) {
			gocv.PutText(&mat, fmt.Sprintf("%d", det.BoardCornerIDs[i]), p.Add(image.Pt(5, -5)), gocv.FontHersheySimplex, 0.4, cornerColor, 1)
		}
	}
}

// DrawAxes draws the x, y and z axes of pose in red, green and blue. The
// frame is assumed to be undistorted already.
func (Annotator) DrawAxes(frame session.Frame, camera calibration.Camera, p calibration.Pose, length float64) error {
	mat, err := matOf(frame)
	if err != nil {
		return err
	}

	axes, err := pose.ProjectAxes(camera.Intrinsics, p, length)
	if err != nil {
		return err
	}
	origin := toImagePoint(axes.Origin)
	gocv.Line(&mat, origin, toImagePoint(axes.X), axisX, 3)
	gocv.Line(&mat, origin, toImagePoint(axes.Y), axisY, 3)
	gocv.Line(&mat, origin, toImagePoint(axes.Z), axisZ, 3)
	return nil
}
