// Package session implements the interactive calibration loop. A Session
// records board correspondences from a frame source, solves the camera model
// once the operator proceeds, and then shows undistorted frames with the pose
// of every visible marker drawn on top.
//
// All vision work is delegated to the collaborators in Collaborators, so the
// loop itself has no OpenCV dependency.
package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/events"
)

// Options tune a Session. Zero values are replaced by defaults in New.
type Options struct {
	// Window is the label of the recording window.
	Window string
	// UndistortedWindow is the label of the window used once calibrated.
	UndistortedWindow string
	// PollInterval bounds the wait for a key press on every iteration.
	PollInterval time.Duration
	Keymap       calibration.Keymap
	// MinFrames is the number of accepted frames needed to proceed.
	MinFrames int
	// MaxFrames bounds the correspondence set. 0 means unbounded.
	MaxFrames int
	// AxisLength is the length of the drawn pose axes, in board units.
	AxisLength float64
	// ResultPath, if set, is where the calibration result is saved.
	ResultPath string
	// SignalQueue is the capacity of the remote signal queue.
	SignalQueue int
	// Hub receives state and capture events. May be nil.
	Hub *events.EventHub
}

const (
	defaultWindow            = "out"
	defaultUndistortedWindow = "undist_image"
	defaultPollInterval      = 10 * time.Millisecond
	defaultAxisLength        = 0.1
	defaultSignalQueue       = 8

	// minCaptureCorners is the number of board corners a frame must have
	// more than to be captured.
	minCaptureCorners = 3
)

func (o Options) withDefaults() Options {
	if o.Window == "" {
		o.Window = defaultWindow
	}
	if o.UndistortedWindow == "" {
		o.UndistortedWindow = defaultUndistortedWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.Keymap == (calibration.Keymap{}) {
		o.Keymap = calibration.DefaultKeymap
	}
	// Calibrating without any frame is never meaningful.
	if o.MinFrames < 1 {
		o.MinFrames = 1
	}
	if o.MaxFrames < 0 {
		o.MaxFrames = 0
	}
	if o.MaxFrames > 0 && o.MaxFrames < o.MinFrames {
		o.MaxFrames = o.MinFrames
	}
	if o.AxisLength <= 0 {
		o.AxisLength = defaultAxisLength
	}
	if o.SignalQueue <= 0 {
		o.SignalQueue = defaultSignalQueue
	}
	return o
}

// stepFunc runs the work of one state for one iteration and returns the
// signal read during it.
type stepFunc func(ctx context.Context) (calibration.Signal, error)

// Session is one calibration run. It is not safe for concurrent use except
// for Status, Result and SendSignal, which may be called from any goroutine.
type Session struct {
	c    Collaborators
	opts Options

	handlers map[calibration.State]stepFunc

	state     calibration.State
	set       *calibration.CorrespondenceSet
	imageSize image.Point
	result    *calibration.Result

	signals chan calibration.Signal

	// now is a test seam.
	now func() time.Time

	mu        sync.RWMutex
	status    calibration.Status
	startedAt time.Time
	message   string
}

// New creates a session in StateRecording.
func New(c Collaborators, opts Options) (*Session, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	s := &Session{
		c:       c,
		opts:    opts,
		state:   calibration.StateRecording,
		set:     calibration.NewCorrespondenceSet(opts.MaxFrames),
		signals: make(chan calibration.Signal, opts.SignalQueue),
		now:     time.Now,
	}
	s.handlers = map[calibration.State]stepFunc{
		calibration.StateRecording:   s.record,
		calibration.StateCalibrating: s.calibrate,
		calibration.StateShowing:     s.show,
	}
	s.startedAt = s.now()
	s.refreshStatus()

	return s, nil
}

// State returns the current state.
func (s *Session) State() calibration.State {
	return s.state
}

// Frames returns the number of accepted frames.
func (s *Session) Frames() int {
	return s.set.Len()
}

// ImageSize returns the size of the first accepted frame, or the zero point
// when nothing was accepted yet.
func (s *Session) ImageSize() image.Point {
	return s.imageSize
}

// Correspondences returns the accumulated correspondence set. Callers must
// not append to it.
func (s *Session) Correspondences() *calibration.CorrespondenceSet {
	return s.set
}

// SendSignal queues a signal for the loop without blocking.
func (s *Session) SendSignal(sig calibration.Signal) error {
	if _, err := calibration.ParseSignal(string(sig)); err != nil {
		return err
	}
	select {
	case s.signals <- sig:
		return nil
	default:
		return ErrSignalQueueFull
	}
}

// Step runs exactly one iteration of the loop. It returns ErrQuit when the
// operator asked to quit and ErrEndOfStream when the source is exhausted.
// Other errors are fatal to the session.
func (s *Session) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	handler, ok := s.handlers[s.state]
	if !ok {
		return pkgerrors.Errorf("no handler for state %s", s.state)
	}

	sig, err := handler(ctx)
	s.refreshStatus()
	if err != nil {
		return err
	}

	if sig == calibration.SignalQuit {
		s.setMessage("quit requested")
		return ErrQuit
	}
	return nil
}

// Run loops until the operator quits, the source ends or ctx is cancelled,
// all of which end the session normally. Any other error is returned. That
// includes a failed calibration solve: the captured views cannot produce a
// camera model, so there is nothing left to show and the session stops
// rather than retrying the same solve every iteration.
func (s *Session) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"state":     s.state,
		"minFrames": s.opts.MinFrames,
		"maxFrames": s.opts.MaxFrames,
		"board":     s.c.Board.Geometry(),
	}).Info("calibration session started")

	for {
		err := s.Step(ctx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrQuit):
			logrus.WithField("state", s.state).Info("quit requested, stopping session")
			return nil
		case errors.Is(err, ErrEndOfStream):
			logrus.WithField("state", s.state).Info("frame source ended, stopping session")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			logrus.WithField("state", s.state).Info("session interrupted")
			return nil
		default:
			s.setMessage(err.Error())
			return err
		}
	}
}

// pollSignal waits up to PollInterval for a key press. Keys take precedence
// over queued remote signals.
func (s *Session) pollSignal() calibration.Signal {
	key := s.c.Display.PollKey(s.opts.PollInterval)
	if sig := s.opts.Keymap.Signal(key); sig != calibration.SignalNone {
		return sig
	}
	select {
	case sig := <-s.signals:
		return sig
	default:
		return calibration.SignalNone
	}
}

// acquire returns the next non-empty frame.
func (s *Session) acquire(ctx context.Context) (Frame, error) {
	frame, err := s.c.Source.NextFrame(ctx)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, ErrEmptyFrame
	}
	if frame.Empty() {
		_ = frame.Close()
		return nil, ErrEmptyFrame
	}
	return frame, nil
}

// transition advances the state. States never move backwards.
func (s *Session) transition(to calibration.State, msg string) error {
	from := s.state
	if !from.Before(to) {
		return pkgerrors.Errorf("invalid transition from %s to %s", from, to)
	}
	s.state = to

	logrus.WithFields(logrus.Fields{
		"from":   from,
		"to":     to,
		"frames": s.set.Len(),
	}).Info(msg)
	s.setMessage(msg)

	s.opts.Hub.Publish(events.SessionState, events.SessionStateEvent{
		From:    string(from),
		To:      string(to),
		Message: msg,
		Ts:      s.now().Unix(),
	})
	return nil
}
