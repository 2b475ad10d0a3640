package events

import "encoding/json"

// Event name constants
const (
	SessionState   = "session.state"
	SessionCapture = "session.capture"
	SessionResult  = "session.result"
)

// Event is a generic SSE event published by a calibration session.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// SessionStateEvent is the typed payload for session.state.
type SessionStateEvent struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message,omitempty"`
	Ts      int64  `json:"ts"`
}

// SessionCaptureEvent is the typed payload for session.capture. Accepted is
// false when the candidate frame was dropped, and Message says why.
type SessionCaptureEvent struct {
	Accepted bool   `json:"accepted"`
	Frames   int    `json:"frames"`
	Corners  int    `json:"corners"`
	Message  string `json:"message,omitempty"`
	Ts       int64  `json:"ts"`
}

// SessionResultEvent is the typed payload for session.result.
type SessionResultEvent struct {
	ReprojectionError float64   `json:"reprojectionError"`
	Frames            int       `json:"frames"`
	CameraMatrix      []float64 `json:"cameraMatrix"`
	Distortion        []float64 `json:"distortion"`
	Ts                int64     `json:"ts"`
}

// DecodeAs unmarshals the payload of e into a T. An event without data
// decodes to the zero value.
//
//	p, err := events.DecodeAs[events.SessionCaptureEvent](ev)
func DecodeAs[T any](e Event) (T, error) {
	var v T
	if len(e.Data) == 0 {
		return v, nil
	}
	err := json.Unmarshal(e.Data, &v)
	return v, err
}
