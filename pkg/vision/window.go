package vision

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/charlie0129/camcalib/pkg/session"
)

// Windows shows frames in HighGUI windows, one per label, created on first
// use. It must be used from the goroutine that owns the GUI.
type Windows struct {
	windows map[string]*gocv.Window
	last    *gocv.Window
}

var _ session.Display = &Windows{}

func NewWindows() *Windows {
	return &Windows{windows: make(map[string]*gocv.Window)}
}

func (w *Windows) Show(label string, frame session.Frame) error {
	mat, err := matOf(frame)
	if err != nil {
		return err
	}
	win, ok := w.windows[label]
	if !ok {
		win = gocv.NewWindow(label)
		w.windows[label] = win
	}
	win.IMShow(mat)
	w.last = win
	return nil
}

// PollKey waits up to timeout for a key press on the last used window.
func (w *Windows) PollKey(timeout time.Duration) int {
	ms := int(timeout / time.Millisecond)
	// 0 would block forever.
	if ms < 1 {
		ms = 1
	}
	if w.last == nil {
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return -1
	}
	return w.last.WaitKey(ms)
}

// Close destroys every window.
func (w *Windows) Close() error {
	var firstErr error
	for label, win := range w.windows {
		if err := win.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(w.windows, label)
	}
	w.last = nil
	return firstErr
}
