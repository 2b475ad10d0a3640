// Package playback shows frames from a source until a key is pressed.
package playback

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camcalib/pkg/session"
)

// Options tune Play.
type Options struct {
	// Window is the label of the playback window.
	Window string
	// PollInterval is how long to wait for a key after each frame.
	PollInterval time.Duration
}

const (
	defaultWindow       = "Video"
	defaultPollInterval = 30 * time.Millisecond
)

// Stats summarize a playback run.
type Stats struct {
	Frames  int
	Stopped string
}

const (
	StoppedByKey     = "key"
	StoppedByEmpty   = "empty frame"
	StoppedByEnd     = "end of stream"
	StoppedByContext = "interrupted"
)

// Play shows frames from src on display until any key is pressed, the
// source returns an empty frame or ends, or ctx is cancelled.
func Play(ctx context.Context, src session.FrameSource, display session.Display, opts Options) (Stats, error) {
	if opts.Window == "" {
		opts.Window = defaultWindow
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	var st Stats
	for {
		if ctx.Err() != nil {
			st.Stopped = StoppedByContext
			return st, nil
		}

		frame, err := src.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, session.ErrEndOfStream) {
				st.Stopped = StoppedByEnd
				return st, nil
			}
			if ctx.Err() != nil {
				st.Stopped = StoppedByContext
				return st, nil
			}
			return st, pkgerrors.Wrapf(err, "failed to read frame %d", st.Frames)
		}
		if frame == nil || frame.Empty() {
			if frame != nil {
				_ = frame.Close()
			}
			logrus.WithField("frames", st.Frames).Warn("blank frame grabbed, stopping")
			st.Stopped = StoppedByEmpty
			return st, nil
		}

		err = display.Show(opts.Window, frame)
		_ = frame.Close()
		if err != nil {
			return st, pkgerrors.Wrapf(err, "failed to show frame %d", st.Frames)
		}
		st.Frames++

		if key := display.PollKey(opts.PollInterval); key >= 0 {
			logrus.WithField("key", key).Debug("key pressed, stopping playback")
			st.Stopped = StoppedByKey
			return st, nil
		}
	}
}
