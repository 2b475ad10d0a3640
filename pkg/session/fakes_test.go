package session

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/charlie0129/camcalib/pkg/calibration"
)

type fakeFrame struct {
	size   image.Point
	empty  bool
	closed bool
}

func (f *fakeFrame) Size() image.Point { return f.size }
func (f *fakeFrame) Empty() bool       { return f.empty }
func (f *fakeFrame) Clone() Frame      { return &fakeFrame{size: f.size, empty: f.empty} }
func (f *fakeFrame) Close() error      { f.closed = true; return nil }

func frame(w, h int) *fakeFrame { return &fakeFrame{size: image.Pt(w, h)} }

func emptyFrame() *fakeFrame { return &fakeFrame{empty: true} }

// fakeSource yields frames in order, then ErrEndOfStream. A nil entry is
// reported as a transient error.
type fakeSource struct {
	frames []Frame
	i      int
}

func (s *fakeSource) NextFrame(context.Context) (Frame, error) {
	if s.i >= len(s.frames) {
		return nil, ErrEndOfStream
	}
	f := s.frames[s.i]
	s.i++
	if f == nil {
		return nil, errors.New("device busy")
	}
	return f, nil
}

type fakeDetector struct {
	detect func(Frame) (calibration.Detection, error)
	calls  int
}

func (d *fakeDetector) Detect(f Frame) (calibration.Detection, error) {
	d.calls++
	if d.detect == nil {
		return calibration.Detection{}, nil
	}
	return d.detect(f)
}

// detection returns n board corners with ids 0..n-1.
func detection(n int) calibration.Detection {
	var det calibration.Detection
	for i := 0; i < n; i++ {
		det.BoardCorners = append(det.BoardCorners, r2.Point{X: float64(i), Y: float64(i)})
		det.BoardCornerIDs = append(det.BoardCornerIDs, i)
	}
	return det
}

// markers returns detected markers whose first corner x encodes their id.
func markers(ids ...int) calibration.Detection {
	var det calibration.Detection
	for _, id := range ids {
		x := float64(id) * 10
		det.Markers = append(det.Markers, calibration.Marker{
			ID:      id,
			Corners: [4]r2.Point{{X: x}, {X: x + 1}, {X: x + 1, Y: 1}, {X: x, Y: 1}},
		})
	}
	return det
}

type fakeBoard struct {
	match func(corners []r2.Point, ids []int) ([]r3.Vector, []r2.Point)
}

func (b *fakeBoard) MatchImagePoints(corners []r2.Point, ids []int) ([]r3.Vector, []r2.Point) {
	if b.match != nil {
		return b.match(corners, ids)
	}
	var obj []r3.Vector
	for _, id := range ids {
		obj = append(obj, r3.Vector{X: float64(id)})
	}
	return obj, append([]r2.Point(nil), corners...)
}

func (b *fakeBoard) MarkerObjectPoints() []r3.Vector {
	return []r3.Vector{{X: -1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: -1}}
}

func (b *fakeBoard) Geometry() calibration.BoardGeometry { return calibration.DefaultBoardGeometry }

type fakeCalibrator struct {
	calls        int
	imagePoints  [][]r2.Point
	objectPoints [][]r3.Vector
	size         image.Point
	err          error
}

// Calibrate is deterministic in its inputs.
func (c *fakeCalibrator) Calibrate(_ context.Context, imagePoints [][]r2.Point, objectPoints [][]r3.Vector, size image.Point) (calibration.Result, error) {
	c.calls++
	c.imagePoints = imagePoints
	c.objectPoints = objectPoints
	c.size = size
	if c.err != nil {
		return calibration.Result{}, c.err
	}
	n := 0
	for _, pts := range imagePoints {
		n += len(pts)
	}
	return calibration.Result{
		Camera: calibration.Camera{
			Intrinsics: calibration.Intrinsics{
				Width:  size.X,
				Height: size.Y,
				Fx:     500 + float64(n),
				Fy:     500 + float64(n),
				Ppx:    float64(size.X) / 2,
				Ppy:    float64(size.Y) / 2,
			},
			Distortion: calibration.Distortion{RadialK1: 0.01 * float64(len(imagePoints))},
		},
		ReprojectionError: 1 / float64(n),
	}, nil
}

// fakePoseSolver fails for markers listed in fail, identified by the x of
// their first corner.
type fakePoseSolver struct {
	fail  map[int]bool
	calls int
}

func (p *fakePoseSolver) SolvePose(_ []r3.Vector, img []r2.Point, _ calibration.Camera) (calibration.Pose, error) {
	p.calls++
	id := int(img[0].X / 10)
	if p.fail[id] {
		return calibration.Pose{}, errors.New("solvePnP did not converge")
	}
	return calibration.Pose{Translation: r3.Vector{X: float64(id), Z: 1}}, nil
}

type fakeUndistorter struct{ calls int }

func (u *fakeUndistorter) Undistort(f Frame, _ calibration.Camera) (Frame, error) {
	u.calls++
	return f.Clone(), nil
}

type fakeAnnotator struct {
	detections int
	axes       []calibration.Pose
}

func (a *fakeAnnotator) DrawDetection(Frame, calibration.Detection, bool) { a.detections++ }

func (a *fakeAnnotator) DrawAxes(_ Frame, _ calibration.Camera, p calibration.Pose, _ float64) error {
	a.axes = append(a.axes, p)
	return nil
}

// fakeDisplay returns keys in order, then -1.
type fakeDisplay struct {
	keys  []int
	i     int
	shown []string
}

func (d *fakeDisplay) Show(window string, _ Frame) error {
	d.shown = append(d.shown, window)
	return nil
}

func (d *fakeDisplay) PollKey(time.Duration) int {
	if d.i >= len(d.keys) {
		return -1
	}
	k := d.keys[d.i]
	d.i++
	return k
}

type fixture struct {
	source      *fakeSource
	detector    *fakeDetector
	board       *fakeBoard
	calibrator  *fakeCalibrator
	poseSolver  *fakePoseSolver
	undistorter *fakeUndistorter
	annotator   *fakeAnnotator
	display     *fakeDisplay
}

func newFixture() *fixture {
	return &fixture{
		source:      &fakeSource{},
		detector:    &fakeDetector{},
		board:       &fakeBoard{},
		calibrator:  &fakeCalibrator{},
		poseSolver:  &fakePoseSolver{},
		undistorter: &fakeUndistorter{},
		annotator:   &fakeAnnotator{},
		display:     &fakeDisplay{},
	}
}

func (f *fixture) collaborators() Collaborators {
	return Collaborators{
		Source:      f.source,
		Detector:    f.detector,
		Board:       f.board,
		Calibrator:  f.calibrator,
		PoseSolver:  f.poseSolver,
		Undistorter: f.undistorter,
		Annotator:   f.annotator,
		Display:     f.display,
	}
}

const (
	keyCapture = 'c'
	keyProceed = 'p'
	keyQuit    = 27
	noKey      = -1
)

func repeat(key, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = key
	}
	return out
}

func frames(n, w, h int) []Frame {
	out := make([]Frame, n)
	for i := range out {
		out[i] = frame(w, h)
	}
	return out
}
