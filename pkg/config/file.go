package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Device:      ptr.To(0),
		VideoFile:   ptr.To(""),
		FrameWidth:  ptr.To(1280),
		FrameHeight: ptr.To(720),
		Board: &RawBoardConfig{
			SquaresX:     ptr.To(calibration.DefaultBoardGeometry.SquaresX),
			SquaresY:     ptr.To(calibration.DefaultBoardGeometry.SquaresY),
			SquareLength: ptr.To(calibration.DefaultBoardGeometry.SquareLength),
			MarkerLength: ptr.To(calibration.DefaultBoardGeometry.MarkerLength),
			Dictionary:   ptr.To(calibration.DefaultBoardGeometry.Dictionary),
			MinMarkers:   ptr.To(calibration.DefaultBoardGeometry.MinMarkers),
		},
		Keymap: &RawKeymapConfig{
			Capture: ptr.To(calibration.DefaultKeymap.Capture),
			Proceed: ptr.To(calibration.DefaultKeymap.Proceed),
			Quit:    ptr.To(calibration.DefaultKeymap.Quit),
		},
		PollIntervalMs:   ptr.To(10),
		MinFrames:        ptr.To(3),
		MaxFrames:        ptr.To(0),
		AxisLength:       ptr.To(0.1),
		ResultPath:       ptr.To(""),
		SocketPath:       ptr.To(""),
		Window:           ptr.To("out"),
		UndistWindow:     ptr.To("undist_image"),
		CalibrationFlags: ptr.To(0),
		// Sub-pixel refinement helps with low resolution cameras but costs
		// time on every frame, so it is opt-in.
		RefineCorners: ptr.To(false),
	}
)

// DefaultPath returns ~/.config/camcalib.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "camcalib.json"
	}
	return filepath.Join(home, ".config", "camcalib.json")
}

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawBoardConfig struct {
	SquaresX     *int     `json:"squaresX,omitempty"`
	SquaresY     *int     `json:"squaresY,omitempty"`
	SquareLength *float64 `json:"squareLength,omitempty"`
	MarkerLength *float64 `json:"markerLength,omitempty"`
	Dictionary   *string  `json:"dictionary,omitempty"`
	MinMarkers   *int     `json:"minMarkers,omitempty"`
}

type RawKeymapConfig struct {
	Capture *int `json:"capture,omitempty"`
	Proceed *int `json:"proceed,omitempty"`
	Quit    *int `json:"quit,omitempty"`
}

type RawFileConfig struct {
	Device           *int                `json:"device,omitempty"`
	VideoFile        *string             `json:"videoFile,omitempty"`
	FrameWidth       *int                `json:"frameWidth,omitempty"`
	FrameHeight      *int                `json:"frameHeight,omitempty"`
	Board            *RawBoardConfig     `json:"board,omitempty"`
	Keymap           *RawKeymapConfig    `json:"keymap,omitempty"`
	PollIntervalMs   *int                `json:"pollIntervalMs,omitempty"`
	MinFrames        *int                `json:"minFrames,omitempty"`
	MaxFrames        *int                `json:"maxFrames,omitempty"`
	AxisLength       *float64            `json:"axisLength,omitempty"`
	ResultPath       *string             `json:"resultPath,omitempty"`
	SocketPath       *string             `json:"socketPath,omitempty"`
	Window           *string             `json:"window,omitempty"`
	UndistWindow     *string             `json:"undistortedWindow,omitempty"`
	CalibrationFlags *int                `json:"calibrationFlags,omitempty"`
	RefineCorners    *bool               `json:"refineCorners,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	b := c.Board()
	km := c.Keymap()
	rawConfig := &RawFileConfig{
		Device:      ptr.To(c.Device()),
		VideoFile:   ptr.To(c.VideoFile()),
		FrameWidth:  ptr.To(c.FrameWidth()),
		FrameHeight: ptr.To(c.FrameHeight()),
		Board: &RawBoardConfig{
			SquaresX:     ptr.To(b.SquaresX),
			SquaresY:     ptr.To(b.SquaresY),
			SquareLength: ptr.To(b.SquareLength),
			MarkerLength: ptr.To(b.MarkerLength),
			Dictionary:   ptr.To(b.Dictionary),
			MinMarkers:   ptr.To(b.MinMarkers),
		},
		Keymap: &RawKeymapConfig{
			Capture: ptr.To(km.Capture),
			Proceed: ptr.To(km.Proceed),
			Quit:    ptr.To(km.Quit),
		},
		PollIntervalMs:   ptr.To(int(c.PollInterval() / time.Millisecond)),
		MinFrames:        ptr.To(c.MinFrames()),
		MaxFrames:        ptr.To(c.MaxFrames()),
		AxisLength:       ptr.To(c.AxisLength()),
		ResultPath:       ptr.To(c.ResultPath()),
		SocketPath:       ptr.To(c.SocketPath()),
		Window:           ptr.To(c.Window()),
		UndistWindow:     ptr.To(c.UndistortedWindow()),
		CalibrationFlags: ptr.To(c.CalibrationFlags()),
		RefineCorners:    ptr.To(c.RefineCorners()),
	}

	return rawConfig, nil
}

// read runs fn with the raw config under the read lock.
func read[T any](f *File, fn func(c *RawFileConfig) T) T {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return fn(f.c)
}

func (f *File) write(fn func(c *RawFileConfig)) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fn(f.c)
}

func (f *File) Device() int {
	return read(f, func(c *RawFileConfig) int { return ptr.Deref(c.Device, *defaultFileConfig.Device) })
}

func (f *File) VideoFile() string {
	return read(f, func(c *RawFileConfig) string { return ptr.Deref(c.VideoFile, *defaultFileConfig.VideoFile) })
}

func (f *File) FrameWidth() int {
	return read(f, func(c *RawFileConfig) int { return ptr.Deref(c.FrameWidth, *defaultFileConfig.FrameWidth) })
}

func (f *File) FrameHeight() int {
	return read(f, func(c *RawFileConfig) int { return ptr.Deref(c.FrameHeight, *defaultFileConfig.FrameHeight) })
}

// Board merges the configured board fields over the default board.
func (f *File) Board() calibration.BoardGeometry {
	return read(f, func(c *RawFileConfig) calibration.BoardGeometry {
		def := defaultFileConfig.Board
		b := c.Board
		if b == nil {
			b = &RawBoardConfig{}
		}
		return calibration.BoardGeometry{
			SquaresX:     ptr.Deref(b.SquaresX, *def.SquaresX),
			SquaresY:     ptr.Deref(b.SquaresY, *def.SquaresY),
			SquareLength: ptr.Deref(b.SquareLength, *def.SquareLength),
			MarkerLength: ptr.Deref(b.MarkerLength, *def.MarkerLength),
			Dictionary:   ptr.Deref(b.Dictionary, *def.Dictionary),
			MinMarkers:   ptr.Deref(b.MinMarkers, *def.MinMarkers),
		}
	})
}

// Keymap merges the configured keys over the default keymap.
func (f *File) Keymap() calibration.Keymap {
	return read(f, func(c *RawFileConfig) calibration.Keymap {
		def := defaultFileConfig.Keymap
		k := c.Keymap
		if k == nil {
			k = &RawKeymapConfig{}
		}
		return calibration.Keymap{
			Capture: ptr.Deref(k.Capture, *def.Capture),
			Proceed: ptr.Deref(k.Proceed, *def.Proceed),
			Quit:    ptr.Deref(k.Quit, *def.Quit),
		}
	})
}

func (f *File) PollInterval() time.Duration {
	return read(f, func(c *RawFileConfig) time.Duration {
		ms := ptr.Deref(c.PollIntervalMs, *defaultFileConfig.PollIntervalMs)
		if ms < 1 {
			ms = 1
		}
		return time.Duration(ms) * time.Millisecond
	})
}

func (f *File) MinFrames() int {
	return read(f, func(c *RawFileConfig) int { return ptr.Deref(c.MinFrames, *defaultFileConfig.MinFrames) })
}

func (f *File) MaxFrames() int {
	return read(f, func(c *RawFileConfig) int { return ptr.Deref(c.MaxFrames, *defaultFileConfig.MaxFrames) })
}

func (f *File) AxisLength() float64 {
	return read(f, func(c *RawFileConfig) float64 { return ptr.Deref(c.AxisLength, *defaultFileConfig.AxisLength) })
}

func (f *File) ResultPath() string {
	return read(f, func(c *RawFileConfig) string { return ptr.Deref(c.ResultPath, *defaultFileConfig.ResultPath) })
}

func (f *File) SocketPath() string {
	return read(f, func(c *RawFileConfig) string { return ptr.Deref(c.SocketPath, *defaultFileConfig.SocketPath) })
}

func (f *File) Window() string {
	return read(f, func(c *RawFileConfig) string { return ptr.Deref(c.Window, *defaultFileConfig.Window) })
}

func (f *File) UndistortedWindow() string {
	return read(f, func(c *RawFileConfig) string { return ptr.Deref(c.UndistWindow, *defaultFileConfig.UndistWindow) })
}

func (f *File) CalibrationFlags() int {
	return read(f, func(c *RawFileConfig) int { return ptr.Deref(c.CalibrationFlags, *defaultFileConfig.CalibrationFlags) })
}

func (f *File) RefineCorners() bool {
	return read(f, func(c *RawFileConfig) bool { return ptr.Deref(c.RefineCorners, *defaultFileConfig.RefineCorners) })
}

func (f *File) SetDevice(i int) {
	if i < 0 {
		panic("device index must not be negative")
	}
	f.write(func(c *RawFileConfig) { c.Device = &i })
}

func (f *File) SetVideoFile(s string) {
	f.write(func(c *RawFileConfig) { c.VideoFile = &s })
}

func (f *File) SetFrameWidth(i int) {
	if i < 0 {
		panic("frame width must not be negative")
	}
	f.write(func(c *RawFileConfig) { c.FrameWidth = &i })
}

func (f *File) SetFrameHeight(i int) {
	if i < 0 {
		panic("frame height must not be negative")
	}
	f.write(func(c *RawFileConfig) { c.FrameHeight = &i })
}

func (f *File) SetMinFrames(i int) {
	if i < 1 {
		panic("min frames must be at least 1")
	}
	f.write(func(c *RawFileConfig) { c.MinFrames = &i })
}

func (f *File) SetMaxFrames(i int) {
	if i < 0 {
		panic("max frames must not be negative")
	}
	f.write(func(c *RawFileConfig) { c.MaxFrames = &i })
}

func (f *File) SetResultPath(s string) {
	f.write(func(c *RawFileConfig) { c.ResultPath = &s })
}

func (f *File) SetSocketPath(s string) {
	f.write(func(c *RawFileConfig) { c.SocketPath = &s })
}

func (f *File) SetWindow(s string) {
	f.write(func(c *RawFileConfig) { c.Window = &s })
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	if dir := filepath.Dir(f.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pkgerrors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"device":            f.Device(),
		"videoFile":         f.VideoFile(),
		"frameWidth":        f.FrameWidth(),
		"frameHeight":       f.FrameHeight(),
		"board":             f.Board(),
		"keymap":            f.Keymap(),
		"pollInterval":      f.PollInterval(),
		"minFrames":         f.MinFrames(),
		"maxFrames":         f.MaxFrames(),
		"axisLength":        f.AxisLength(),
		"resultPath":        f.ResultPath(),
		"socketPath":        f.SocketPath(),
		"window":            f.Window(),
		"undistortedWindow": f.UndistortedWindow(),
		"calibrationFlags":  f.CalibrationFlags(),
		"refineCorners":     f.RefineCorners(),
	}
}
