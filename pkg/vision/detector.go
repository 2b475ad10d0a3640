package vision

import (
	"image"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"

	"github.com/charlie0129/camcalib/pkg/board"
	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/session"
)

// CharucoDetector detects ArUco markers with OpenCV and recovers the
// chessboard corners between them from the board layout.
type CharucoDetector struct {
	board    *board.Board
	detector gocv.ArucoDetector
	// refine enables sub-pixel refinement of interpolated corners.
	refine bool
}

var _ session.BoardDetector = &CharucoDetector{}

// NewCharucoDetector creates a detector for b. Close releases it.
func NewCharucoDetector(b *board.Board, refine bool) (*CharucoDetector, error) {
	code, err := dictionaryCode(b.Geometry().Dictionary)
	if err != nil {
		return nil, err
	}
	dict := gocv.GetPredefinedDictionary(code)
	params := gocv.NewArucoDetectorParameters()
	return &CharucoDetector{
		board:    b,
		detector: gocv.NewArucoDetectorWithParams(dict, params),
		refine:   refine,
	}, nil
}

func (d *CharucoDetector) Detect(frame session.Frame) (calibration.Detection, error) {
	mat, err := matOf(frame)
	if err != nil {
		return calibration.Detection{}, err
	}

	corners, ids, _ := d.detector.DetectMarkers(mat)

	var det calibration.Detection
	for i, id := range ids {
		if len(corners[i]) != 4 {
			continue
		}
		m := calibration.Marker{ID: id}
		for j := 0; j < 4; j++ {
			m.Corners[j] = fromPoint2f(corners[i][j])
		}
		det.Markers = append(det.Markers, m)
	}

	det.BoardCorners, det.BoardCornerIDs = d.board.InterpolateCorners(det.Markers)
	if d.refine && len(det.BoardCorners) > 0 {
		det.BoardCorners = refineCorners(mat, det.BoardCorners)
	}
	return det, nil
}

func (d *CharucoDetector) Close() error {
	d.detector.Close()
	return nil
}

// refineCorners moves corners to the sub-pixel saddle point on a grayscale
// copy of img.
func refineCorners(img gocv.Mat, corners []r2.Point) []r2.Point {
	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
	} else {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}

	vec := gocv.NewPoint2fVectorFromPoints(toPoints2f(corners))
	defer vec.Close()
	mat := gocv.NewMatFromPoint2fVector(vec, true)
	defer mat.Close()

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, 30, 0.1)
	gocv.CornerSubPix(gray, &mat, image.Pt(5, 5), image.Pt(-1, -1), criteria)

	refined := gocv.NewPoint2fVectorFromMat(mat)
	defer refined.Close()
	out := make([]r2.Point, 0, len(corners))
	for _, p := range refined.ToPoints() {
		out = append(out, fromPoint2f(p))
	}
	if len(out) != len(corners) {
		return corners
	}
	return out
}
