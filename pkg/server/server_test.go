package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/events"
	"github.com/charlie0129/camcalib/pkg/session"
)

type fakeSession struct {
	mu      sync.Mutex
	status  calibration.Status
	result  *calibration.Result
	signals []calibration.Signal
	full    bool
}

func (f *fakeSession) Status() calibration.Status { return f.status }

func (f *fakeSession) Result() (calibration.Result, bool) {
	if f.result == nil {
		return calibration.Result{}, false
	}
	return *f.result, true
}

func (f *fakeSession) SendSignal(sig calibration.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return session.ErrSignalQueueFull
	}
	f.signals = append(f.signals, sig)
	return nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetStatus(t *testing.T) {
	sess := &fakeSession{status: calibration.Status{State: calibration.StateRecording, Frames: 4, MinFrames: 3, CanProceed: true}}
	s := New(sess, nil)

	w := do(t, s.Handler(), http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected code %d", w.Code)
	}
	var got calibration.Status
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.State != calibration.StateRecording || got.Frames != 4 || !got.CanProceed {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestGetResult(t *testing.T) {
	sess := &fakeSession{}
	s := New(sess, nil)

	if w := do(t, s.Handler(), http.MethodGet, "/result", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before calibration, got %d", w.Code)
	}

	sess.result = &calibration.Result{
		Camera: calibration.Camera{
			Intrinsics: calibration.Intrinsics{Width: 1280, Height: 720, Fx: 900, Fy: 901, Ppx: 640, Ppy: 360},
		},
		ReprojectionError: 0.42,
		Frames:            12,
	}
	w := do(t, s.Handler(), http.MethodGet, "/result", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected code %d", w.Code)
	}
	var got calibration.Result
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Camera != sess.result.Camera || got.Frames != 12 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestSetSignal(t *testing.T) {
	tests := []struct {
		name string
		body string
		full bool
		code int
	}{
		{"capture", `"capture"`, false, http.StatusOK},
		{"proceed", `"proceed"`, false, http.StatusOK},
		{"quit", `"quit"`, false, http.StatusOK},
		{"unknown", `"restart"`, false, http.StatusBadRequest},
		{"not json", `capture`, false, http.StatusBadRequest},
		{"queue full", `"capture"`, true, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{full: tt.full}
			s := New(sess, nil)
			w := do(t, s.Handler(), http.MethodPut, "/signal", tt.body)
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
			if tt.code == http.StatusOK && (len(sess.signals) != 1 || string(sess.signals[0]) != tt.name) {
				t.Fatalf("signal not queued: %v", sess.signals)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	s := New(&fakeSession{}, nil)
	w := do(t, s.Handler(), http.MethodGet, "/version", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected code %d", w.Code)
	}
	var v string
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil || v == "" {
		t.Fatalf("unexpected version body %q: %v", w.Body.String(), err)
	}
}

func TestEventsStream(t *testing.T) {
	hub := events.NewEventHub()
	s := New(&fakeSession{}, hub)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	for hub.Subscribers() == 0 {
		if ctx.Err() != nil {
			t.Fatalf("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(events.SessionState, events.SessionStateEvent{From: "Recording", To: "Calibrating"})

	sc := bufio.NewScanner(resp.Body)
	var name, data string
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			name = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(v)
			break
		}
	}
	if name != events.SessionState {
		t.Fatalf("unexpected event name %q", name)
	}
	p, err := events.DecodeAs[events.SessionStateEvent](events.Event{Name: name, Data: json.RawMessage(data)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.To != "Calibrating" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestEventsWithoutHub(t *testing.T) {
	s := New(&fakeSession{}, nil)
	if w := do(t, s.Handler(), http.MethodGet, "/events", ""); w.Code != http.StatusNoContent {
		t.Fatalf("unexpected code %d", w.Code)
	}
}
