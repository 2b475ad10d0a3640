package session

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/events"
)

func (s *Session) record(ctx context.Context) (calibration.Signal, error) {
	frame, err := s.acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrEndOfStream) {
			return calibration.SignalNone, err
		}
		logrus.WithError(err).WithField("state", s.state).Warn("failed to acquire frame")
		// Keep quit responsive while the source is misbehaving.
		sig := s.pollSignal()
		if sig == calibration.SignalProceed {
			if err := s.proceed(); err != nil {
				return sig, err
			}
		}
		return sig, nil
	}
	defer frame.Close()

	sig := s.pollSignal()

	det, err := s.c.Detector.Detect(frame)
	if err != nil {
		logrus.WithError(err).Warn("board detection failed")
		det = calibration.Detection{}
	}

	if sig == calibration.SignalCapture {
		s.capture(frame, det)
	}

	annotated := frame.Clone()
	defer annotated.Close()
	s.c.Annotator.DrawDetection(annotated, det, len(det.BoardCorners) > minCaptureCorners)
	if err := s.c.Display.Show(s.opts.Window, annotated); err != nil {
		logrus.WithError(err).WithField("window", s.opts.Window).Warn("failed to show frame")
	}

	if sig == calibration.SignalProceed {
		if err := s.proceed(); err != nil {
			return sig, err
		}
	}
	return sig, nil
}

// capture tries to add the detection to the correspondence set. Failures are
// reported and the candidate frame is dropped.
func (s *Session) capture(frame Frame, det calibration.Detection) {
	err := s.accept(frame, det)

	log := logrus.WithFields(logrus.Fields{
		"frames":  s.set.Len(),
		"corners": len(det.BoardCorners),
	})
	ev := events.SessionCaptureEvent{
		Accepted: err == nil,
		Frames:   s.set.Len(),
		Corners:  len(det.BoardCorners),
		Ts:       s.now().Unix(),
	}

	switch {
	case err == nil:
		log.Info("frame captured")
		s.setMessage("frame captured")
	case errors.Is(err, ErrNotEnoughCorners),
		errors.Is(err, ErrPointMatching),
		errors.Is(err, ErrImageSizeMismatch),
		errors.Is(err, calibration.ErrSetFull),
		errors.Is(err, calibration.ErrEmptyCorrespondence):
		log.WithError(err).Warn("frame not captured, try again")
		ev.Message = err.Error()
		s.setMessage(err.Error())
	default:
		log.WithError(err).Error("frame not captured")
		ev.Message = err.Error()
		s.setMessage(err.Error())
	}

	s.opts.Hub.Publish(events.SessionCapture, ev)
}

func (s *Session) accept(frame Frame, det calibration.Detection) error {
	if len(det.BoardCorners) <= minCaptureCorners {
		return pkgerrors.Wrapf(ErrNotEnoughCorners, "got %d, need more than %d", len(det.BoardCorners), minCaptureCorners)
	}

	objectPoints, imagePoints := s.c.Board.MatchImagePoints(det.BoardCorners, det.BoardCornerIDs)
	if len(objectPoints) == 0 || len(imagePoints) == 0 {
		return ErrPointMatching
	}

	size := frame.Size()
	if s.set.Len() > 0 && size != s.imageSize {
		return pkgerrors.Wrapf(ErrImageSizeMismatch, "got %v, want %v", size, s.imageSize)
	}

	err := s.set.Append(calibration.Correspondence{
		Corners:      det.BoardCorners,
		CornerIDs:    det.BoardCornerIDs,
		ImagePoints:  imagePoints,
		ObjectPoints: objectPoints,
	})
	if err != nil {
		return err
	}

	if s.set.Len() == 1 {
		s.imageSize = size
	}
	return nil
}

// proceed moves to StateCalibrating once enough frames were accepted.
func (s *Session) proceed() error {
	if n := s.set.Len(); n < s.opts.MinFrames {
		logrus.WithFields(logrus.Fields{
			"frames":    n,
			"minFrames": s.opts.MinFrames,
		}).Warn("not enough frames to calibrate, keep capturing")
		s.setMessage("not enough frames to calibrate")
		return nil
	}
	return s.transition(calibration.StateCalibrating, "recording finished, calibrating")
}

func (s *Session) calibrate(ctx context.Context) (calibration.Signal, error) {
	if s.result == nil {
		res, err := s.c.Calibrator.Calibrate(ctx, s.set.ImagePoints(), s.set.ObjectPoints(), s.imageSize)
		if err != nil {
			return calibration.SignalNone, pkgerrors.Wrapf(err, "failed to calibrate with %d frames", s.set.Len())
		}
		res.Frames = s.set.Len()
		res.Board = s.c.Board.Geometry()
		if res.CalibratedAt.IsZero() {
			res.CalibratedAt = s.now()
		}

		s.mu.Lock()
		s.result = &res
		s.mu.Unlock()

		logrus.WithFields(res.LogrusFields()).Info("calibration finished")
		s.opts.Hub.Publish(events.SessionResult, events.SessionResultEvent{
			ReprojectionError: res.ReprojectionError,
			Frames:            res.Frames,
			CameraMatrix:      matrixSlice(res.Camera.Intrinsics.Matrix()),
			Distortion:        res.Camera.Distortion.Parameters(),
			Ts:                s.now().Unix(),
		})

		if s.opts.ResultPath != "" {
			if err := res.Save(s.opts.ResultPath); err != nil {
				logrus.WithError(err).Error("failed to save calibration result")
			} else {
				logrus.WithField("path", s.opts.ResultPath).Info("calibration result saved")
			}
		}
	}

	if err := s.transition(calibration.StateShowing, "calibration finished, showing undistorted frames"); err != nil {
		return calibration.SignalNone, err
	}
	return s.pollSignal(), nil
}

func (s *Session) show(ctx context.Context) (calibration.Signal, error) {
	frame, err := s.acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrEndOfStream) {
			return calibration.SignalNone, err
		}
		logrus.WithError(err).WithField("state", s.state).Warn("failed to acquire frame")
		return s.pollSignal(), nil
	}
	defer frame.Close()

	sig := s.pollSignal()
	camera := s.result.Camera

	undistorted, err := s.c.Undistorter.Undistort(frame, camera)
	if err != nil {
		logrus.WithError(err).Warn("failed to undistort frame")
		return sig, nil
	}
	defer undistorted.Close()

	// Detect on the original frame, the camera model describes it.
	det, err := s.c.Detector.Detect(frame)
	if err != nil {
		logrus.WithError(err).Warn("board detection failed")
		det = calibration.Detection{}
	}

	for _, m := range det.Markers {
		if err := s.drawMarkerPose(undistorted, camera, m); err != nil {
			logrus.WithError(err).WithField("marker", m.ID).Warn("skipping marker")
		}
	}

	if err := s.c.Display.Show(s.opts.UndistortedWindow, undistorted); err != nil {
		logrus.WithError(err).WithField("window", s.opts.UndistortedWindow).Warn("failed to show frame")
	}
	return sig, nil
}

func (s *Session) drawMarkerPose(frame Frame, camera calibration.Camera, m calibration.Marker) error {
	pose, err := s.c.PoseSolver.SolvePose(s.c.Board.MarkerObjectPoints(), m.Corners[:], camera)
	if err != nil {
		return pkgerrors.Wrapf(ErrPoseFailed, "marker %d: %s", m.ID, err)
	}
	if err := s.c.Annotator.DrawAxes(frame, camera, pose, s.opts.AxisLength); err != nil {
		return pkgerrors.Wrapf(ErrPoseFailed, "marker %d: failed to draw axes: %s", m.ID, err)
	}
	return nil
}

func matrixSlice(m [9]float64) []float64 {
	return m[:]
}
