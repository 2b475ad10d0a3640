package session

import "errors"

var (
	// ErrEmptyFrame is reported when the source yields an empty frame. The
	// iteration is skipped.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrNotEnoughCorners is reported when a capture is requested but too
	// few board corners were detected.
	ErrNotEnoughCorners = errors.New("not enough board corners detected")
	// ErrPointMatching is reported when detected corners could not be
	// matched to the board. The candidate frame is dropped.
	ErrPointMatching = errors.New("point matching failed")
	// ErrImageSizeMismatch is reported when a candidate frame differs in
	// size from the frames already accepted.
	ErrImageSizeMismatch = errors.New("frame size differs from calibration image size")
	// ErrPoseFailed is reported when the pose of one marker could not be
	// estimated or drawn. Other markers are unaffected.
	ErrPoseFailed = errors.New("pose estimation failed")
	// ErrEndOfStream is returned by a FrameSource that has no more frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrQuit is returned by Step when the operator asked to quit.
	ErrQuit = errors.New("quit requested")
	// ErrSignalQueueFull is returned by SendSignal when the loop is not
	// keeping up with remote signals.
	ErrSignalQueueFull = errors.New("signal queue is full")
)
