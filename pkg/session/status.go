package session

import "github.com/charlie0129/camcalib/pkg/calibration"

// Status returns a snapshot of the session.
func (s *Session) Status() calibration.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if st.Result != nil {
		r := *st.Result
		st.Result = &r
	}
	return st
}

// Result returns the calibration result, if the session got that far.
func (s *Session) Result() (calibration.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return calibration.Result{}, false
	}
	return *s.result, true
}

// refreshStatus rebuilds the snapshot from loop-owned state. Only the loop
// goroutine calls it.
func (s *Session) refreshStatus() {
	frames := s.set.Len()
	recording := s.state == calibration.StateRecording

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = calibration.Status{
		State:      s.state,
		Frames:     frames,
		MaxFrames:  s.opts.MaxFrames,
		MinFrames:  s.opts.MinFrames,
		ImageSize:  s.imageSize,
		StartedAt:  s.startedAt,
		Message:    s.message,
		Result:     s.result,
		CanCapture: recording && !s.set.Full(),
		CanProceed: recording && frames >= s.opts.MinFrames,
		Board:      s.c.Board.Geometry(),
	}
}

func (s *Session) setMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = msg
	s.status.Message = msg
}
