package playback

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/charlie0129/camcalib/pkg/session"
)

type frame struct {
	empty  bool
	closed bool
}

func (f *frame) Size() image.Point    { return image.Pt(640, 480) }
func (f *frame) Empty() bool          { return f.empty }
func (f *frame) Clone() session.Frame { return &frame{empty: f.empty} }
func (f *frame) Close() error         { f.closed = true; return nil }

type source struct {
	frames []*frame
	err    error
	i      int
}

func (s *source) NextFrame(context.Context) (session.Frame, error) {
	if s.i >= len(s.frames) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, session.ErrEndOfStream
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}

type display struct {
	keys    []int
	polls   int
	shown   int
	windows map[string]bool
	timeout time.Duration
}

func (d *display) Show(window string, _ session.Frame) error {
	if d.windows == nil {
		d.windows = map[string]bool{}
	}
	d.windows[window] = true
	d.shown++
	return nil
}

func (d *display) PollKey(timeout time.Duration) int {
	d.timeout = timeout
	defer func() { d.polls++ }()
	if d.polls < len(d.keys) {
		return d.keys[d.polls]
	}
	return -1
}

func frames(n int) []*frame {
	out := make([]*frame, n)
	for i := range out {
		out[i] = &frame{}
	}
	return out
}

func TestPlay(t *testing.T) {
	tests := []struct {
		name    string
		frames  []*frame
		err     error
		keys    []int
		shown   int
		stopped string
		wantErr bool
	}{
		{"key press", frames(5), nil, []int{-1, -1, 'q'}, 3, StoppedByKey, false},
		{"end of stream", frames(4), nil, nil, 4, StoppedByEnd, false},
		{"empty frame", append(frames(2), &frame{empty: true}, &frame{}), nil, nil, 2, StoppedByEmpty, false},
		{"source error", frames(1), errors.New("device lost"), nil, 1, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &source{frames: tt.frames, err: tt.err}
			d := &display{keys: tt.keys}
			st, err := Play(context.Background(), src, d, Options{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error %v", err)
			}
			if st.Frames != tt.shown || d.shown != tt.shown {
				t.Fatalf("expected %d frames, got %d (display %d)", tt.shown, st.Frames, d.shown)
			}
			if st.Stopped != tt.stopped {
				t.Fatalf("expected stop reason %q, got %q", tt.stopped, st.Stopped)
			}
			for i := 0; i < src.i; i++ {
				if !tt.frames[i].closed {
					t.Fatalf("frame %d not closed", i)
				}
			}
		})
	}
}

func TestPlayDefaults(t *testing.T) {
	d := &display{keys: []int{0}}
	if _, err := Play(context.Background(), &source{frames: frames(1)}, d, Options{}); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !d.windows[defaultWindow] || d.timeout != defaultPollInterval {
		t.Fatalf("defaults not applied: %v %v", d.windows, d.timeout)
	}
}

func TestPlayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := Play(ctx, &source{frames: frames(3)}, &display{}, Options{Window: "Live"})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if st.Stopped != StoppedByContext || st.Frames != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}
