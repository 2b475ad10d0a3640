package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/events"
	"github.com/charlie0129/camcalib/pkg/server"
	"github.com/charlie0129/camcalib/pkg/version"
)

type fakeSession struct {
	status  calibration.Status
	result  *calibration.Result
	signals chan calibration.Signal
}

func (f *fakeSession) Status() calibration.Status { return f.status }

func (f *fakeSession) Result() (calibration.Result, bool) {
	if f.result == nil {
		return calibration.Result{}, false
	}
	return *f.result, true
}

func (f *fakeSession) SendSignal(sig calibration.Signal) error {
	f.signals <- sig
	return nil
}

// serve starts a server on a fresh socket and returns a client for it.
func serve(t *testing.T, sess server.Session, hub *events.EventHub) *Client {
	t.Helper()
	dir, err := os.MkdirTemp("", "camcalib")
	if err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "s.sock")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.New(sess, hub).Serve(ctx, sock) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve failed: %v", err)
		}
	})

	for i := 0; i < 200; i++ {
		if _, err := os.Stat(sock); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	return NewClient(sock)
}

func TestSessionNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	if _, err := c.GetStatus(); !errors.Is(err, ErrSessionNotRunning) {
		t.Fatalf("expected ErrSessionNotRunning, got %v", err)
	}
}

func TestStatusResultAndSignals(t *testing.T) {
	sess := &fakeSession{
		status:  calibration.Status{State: calibration.StateShowing, Frames: 7, MinFrames: 3},
		signals: make(chan calibration.Signal, 1),
	}
	c := serve(t, sess, nil)

	st, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if st.State != calibration.StateShowing || st.Frames != 7 {
		t.Fatalf("unexpected status %+v", st)
	}

	if _, err := c.GetResult(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	sess.result = &calibration.Result{ReprojectionError: 0.3, Frames: 7}
	res, err := c.GetResult()
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if res.ReprojectionError != 0.3 {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := c.SendSignal(calibration.SignalProceed); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}
	if sig := <-sess.signals; sig != calibration.SignalProceed {
		t.Fatalf("unexpected signal %q", sig)
	}

	v, err := c.GetVersion()
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if v != version.Version {
		t.Fatalf("unexpected version %q", v)
	}
}

func TestSubscribeEvents(t *testing.T) {
	hub := events.NewEventHub()
	c := serve(t, &fakeSession{}, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := c.SubscribeEvents(ctx)
	if err != nil {
		t.Fatalf("SubscribeEvents failed: %v", err)
	}
	for hub.Subscribers() == 0 {
		if ctx.Err() != nil {
			t.Fatalf("never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(events.SessionCapture, events.SessionCaptureEvent{Accepted: true, Frames: 2, Corners: 30})

	select {
	case ev := <-ch:
		if ev.Name != events.SessionCapture {
			t.Fatalf("unexpected event %q", ev.Name)
		}
		p, err := events.DecodeAs[events.SessionCaptureEvent](ev)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !p.Accepted || p.Frames != 2 || p.Corners != 30 {
			t.Fatalf("unexpected payload %+v", p)
		}
	case <-ctx.Done():
		t.Fatalf("no event received")
	}
}

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"event:session.state",
		`data:{"from":"Recording","to":"Calibrating"}`,
		"",
		"data: first",
		"data: second",
		"",
		"event:session.result",
		`data:{"frames":3}`,
	}, "\n")

	ch := make(chan events.Event, 4)
	if err := readEvents(context.Background(), strings.NewReader(stream), ch); err != nil {
		t.Fatalf("readEvents failed: %v", err)
	}
	close(ch)

	var got []events.Event
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Name != events.SessionState || string(got[0].Data) != `{"from":"Recording","to":"Calibrating"}` {
		t.Fatalf("unexpected first event %+v", got[0])
	}
	if got[1].Name != "message" || string(got[1].Data) != "first\nsecond" {
		t.Fatalf("unexpected second event %q %q", got[1].Name, got[1].Data)
	}
	if got[2].Name != events.SessionResult {
		t.Fatalf("unexpected third event %+v", got[2])
	}
}
