package calibration

import (
	"image"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	pkgerrors "github.com/pkg/errors"
)

// State defines states of a calibration session.
type State string

const (
	StateRecording   State = "Recording"
	StateCalibrating State = "Calibrating"
	StateShowing     State = "Showing"
)

// order is used to keep transitions monotonic.
var order = map[State]int{
	StateRecording:   0,
	StateCalibrating: 1,
	StateShowing:     2,
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := order[s]
	return ok
}

// Before reports whether s comes strictly before other in the session flow.
func (s State) Before(other State) bool {
	return order[s] < order[other]
}

// Signal defines operator input for one loop iteration.
type Signal string

const (
	SignalNone    Signal = ""
	SignalCapture Signal = "capture"
	SignalProceed Signal = "proceed"
	SignalQuit    Signal = "quit"
)

// ParseSignal parses the wire form of a signal.
func ParseSignal(s string) (Signal, error) {
	switch Signal(s) {
	case SignalCapture, SignalProceed, SignalQuit:
		return Signal(s), nil
	default:
		return SignalNone, pkgerrors.Errorf("unknown signal %q, expected one of capture, proceed, quit", s)
	}
}

// Keymap maps key codes returned by the display to signals.
type Keymap struct {
	Capture int `json:"capture"`
	Proceed int `json:"proceed"`
	Quit    int `json:"quit"`
}

// DefaultKeymap is 'c' to capture, 'p' to proceed and ESC to quit.
var DefaultKeymap = Keymap{Capture: 'c', Proceed: 'p', Quit: 27}

// Signal translates a key code. Negative codes mean no key was pressed.
func (k Keymap) Signal(key int) Signal {
	if key < 0 {
		return SignalNone
	}
	// Some backends report modifier bits above the low byte.
	key &= 0xff
	switch key {
	case k.Quit:
		return SignalQuit
	case k.Capture:
		return SignalCapture
	case k.Proceed:
		return SignalProceed
	}
	return SignalNone
}

// BoardGeometry describes the physical ChArUco target.
type BoardGeometry struct {
	SquaresX     int     `json:"squaresX" yaml:"squares_x"`
	SquaresY     int     `json:"squaresY" yaml:"squares_y"`
	SquareLength float64 `json:"squareLength" yaml:"square_length"`
	MarkerLength float64 `json:"markerLength" yaml:"marker_length"`
	Dictionary   string  `json:"dictionary" yaml:"dictionary"`
	// MinMarkers is the number of detected adjacent markers needed to
	// interpolate a chessboard corner.
	MinMarkers int `json:"minMarkers" yaml:"min_markers"`
}

// DefaultBoardGeometry is a 7x9 board with 29cm squares and 21cm
// markers from the 6x6_250 dictionary.
var DefaultBoardGeometry = BoardGeometry{
	SquaresX:     7,
	SquaresY:     9,
	SquareLength: 0.29,
	MarkerLength: 0.21,
	Dictionary:   "6x6_250",
	MinMarkers:   2,
}

// MarkerCount returns the number of markers printed on the board.
func (g BoardGeometry) MarkerCount() int {
	return g.SquaresX * g.SquaresY / 2
}

// CornerCount returns the number of inner chessboard corners.
func (g BoardGeometry) CornerCount() int {
	return (g.SquaresX - 1) * (g.SquaresY - 1)
}

// CheckValid validates the geometry without looking at the dictionary.
func (g BoardGeometry) CheckValid() error {
	if g.SquaresX < 2 || g.SquaresY < 2 {
		return pkgerrors.Errorf("board must have at least 2x2 squares, got %dx%d", g.SquaresX, g.SquaresY)
	}
	if g.SquareLength <= 0 {
		return pkgerrors.Errorf("square length must be positive, got %v", g.SquareLength)
	}
	if g.MarkerLength <= 0 || g.MarkerLength >= g.SquareLength {
		return pkgerrors.Errorf("marker length must be in (0, %v), got %v", g.SquareLength, g.MarkerLength)
	}
	if g.MinMarkers < 1 || g.MinMarkers > 2 {
		return pkgerrors.Errorf("min markers must be 1 or 2, got %d", g.MinMarkers)
	}
	if g.Dictionary == "" {
		return pkgerrors.New("dictionary must not be empty")
	}
	return nil
}

// Marker is one detected ArUco marker. Corners are clockwise starting at the
// top-left corner of the marker.
type Marker struct {
	ID      int         `json:"id"`
	Corners [4]r2.Point `json:"corners"`
}

// Detection is what the board detector reports for one frame.
type Detection struct {
	Markers        []Marker   `json:"markers"`
	BoardCorners   []r2.Point `json:"boardCorners"`
	BoardCornerIDs []int      `json:"boardCornerIds"`
}

// Pose is a rigid transform given as a Rodrigues rotation vector and a
// translation, both in camera coordinates.
type Pose struct {
	Rotation    r3.Vector `json:"rotation"`
	Translation r3.Vector `json:"translation"`
}

// Status is a synthesized view model exposed via the HTTP API and the CLI.
// Result is only populated once the session has left StateCalibrating.
type Status struct {
	State      State         `json:"state"`
	Frames     int           `json:"frames"`
	MaxFrames  int           `json:"maxFrames,omitempty"`
	MinFrames  int           `json:"minFrames"`
	ImageSize  image.Point   `json:"imageSize"`
	StartedAt  time.Time     `json:"startedAt"`
	Message    string        `json:"message,omitempty"`
	Result     *Result       `json:"result,omitempty"`
	CanCapture bool          `json:"canCapture"`
	CanProceed bool          `json:"canProceed"`
	Board      BoardGeometry `json:"board"`
}
