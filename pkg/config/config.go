package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camcalib/pkg/calibration"
)

type Config interface {
	Device() int
	VideoFile() string
	FrameWidth() int
	FrameHeight() int
	Board() calibration.BoardGeometry
	Keymap() calibration.Keymap
	PollInterval() time.Duration
	MinFrames() int
	MaxFrames() int
	AxisLength() float64
	ResultPath() string
	SocketPath() string
	Window() string
	UndistortedWindow() string
	CalibrationFlags() int
	RefineCorners() bool

	SetDevice(int)
	SetVideoFile(string)
	SetFrameWidth(int)
	SetFrameHeight(int)
	SetMinFrames(int)
	SetMaxFrames(int)
	SetResultPath(string)
	SetSocketPath(string)
	SetWindow(string)

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
