package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/charlie0129/camcalib/pkg/board"
	"github.com/charlie0129/camcalib/pkg/config"
	"github.com/charlie0129/camcalib/pkg/events"
	"github.com/charlie0129/camcalib/pkg/server"
	"github.com/charlie0129/camcalib/pkg/session"
	"github.com/charlie0129/camcalib/pkg/version"
	"github.com/charlie0129/camcalib/pkg/vision"
)

type sourceFlags struct {
	device int
	file   string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.device, "device", 0, "camera device id")
	cmd.Flags().StringVar(&f.file, "file", "", "read frames from a video file instead of a camera")
}

func (f *sourceFlags) check() error {
	if f.device < 0 {
		return fmt.Errorf("invalid device id %d", f.device)
	}
	return nil
}

// apply overrides conf with the flags given on the command line.
func (f *sourceFlags) apply(cmd *cobra.Command, conf config.Config) {
	if cmd.Flags().Changed("device") {
		conf.SetDevice(f.device)
		conf.SetVideoFile("")
	}
	if cmd.Flags().Changed("file") {
		conf.SetVideoFile(f.file)
	}
}

// NewCalibrateCommand .
func NewCalibrateCommand() *cobra.Command {
	var (
		source    sourceFlags
		width     int
		height    int
		minFrames int
		maxFrames int
		output    string
		serve     bool
	)

	cmd := &cobra.Command{
		Use:     "calibrate",
		Short:   "Run an interactive calibration session",
		GroupID: gBasic,
		Long: `Run an interactive calibration session.

Keys (in the video window):
  c    capture the current view
  p    calibrate with the captured views
  ESC  quit

While the session runs, other camcalib commands can query and control it
through the unix socket (see 'camcalib status' and 'camcalib signal').`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := source.check(); err != nil {
				return err
			}
			if width < 0 || height < 0 {
				return fmt.Errorf("invalid frame size %dx%d", width, height)
			}
			if cmd.Flags().Changed("min-frames") && minFrames < 1 {
				return fmt.Errorf("min frames must be at least 1, got %d", minFrames)
			}
			if maxFrames < 0 {
				return fmt.Errorf("max frames must not be negative, got %d", maxFrames)
			}

			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			source.apply(cmd, conf)
			f := cmd.Flags()
			if f.Changed("width") {
				conf.SetFrameWidth(width)
			}
			if f.Changed("height") {
				conf.SetFrameHeight(height)
			}
			if f.Changed("min-frames") {
				conf.SetMinFrames(minFrames)
			}
			if f.Changed("max-frames") {
				conf.SetMaxFrames(maxFrames)
			}
			if f.Changed("output") {
				conf.SetResultPath(output)
			}
			if !serve {
				conf.SetSocketPath("")
			}

			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("calibration session starting")
			logrus.WithFields(conf.LogrusFields()).Debug("config loaded")

			return runCalibrate(cmd, conf)
		},
	}

	source.register(cmd)
	f := cmd.Flags()
	f.IntVar(&width, "width", 0, "requested camera frame width")
	f.IntVar(&height, "height", 0, "requested camera frame height")
	f.IntVar(&minFrames, "min-frames", 0, "number of captured views needed before calibrating")
	f.IntVar(&maxFrames, "max-frames", 0, "stop accepting views after this many (0 means unbounded)")
	f.StringVarP(&output, "output", "o", "", "write the calibration result to this YAML file")
	f.BoolVar(&serve, "serve", true, "serve the session on the unix socket")

	return cmd
}

func runCalibrate(cmd *cobra.Command, conf config.Config) error {
	b, err := board.New(conf.Board())
	if err != nil {
		return err
	}

	src, err := openSource(conf)
	if err != nil {
		return err
	}
	defer closeQuietly("video source", src.Close)

	detector, err := vision.NewCharucoDetector(b, conf.RefineCorners())
	if err != nil {
		return err
	}
	defer closeQuietly("detector", detector.Close)

	windows := vision.NewWindows()
	defer closeQuietly("windows", windows.Close)

	hub := events.NewEventHub()
	defer hub.Close()

	solver := vision.Solver{Flags: gocv.CalibFlag(conf.CalibrationFlags())}
	sess, err := session.New(session.Collaborators{
		Source:      src,
		Detector:    detector,
		Board:       b,
		Calibrator:  solver,
		PoseSolver:  solver,
		Undistorter: solver,
		Annotator:   vision.Annotator{},
		Display:     windows,
	}, session.Options{
		Window:            conf.Window(),
		UndistortedWindow: conf.UndistortedWindow(),
		PollInterval:      conf.PollInterval(),
		Keymap:            conf.Keymap(),
		MinFrames:         conf.MinFrames(),
		MaxFrames:         conf.MaxFrames(),
		AxisLength:        conf.AxisLength(),
		ResultPath:        conf.ResultPath(),
		Hub:               hub,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wait := func() {}
	if socket := conf.SocketPath(); socket != "" {
		serveCtx, cancel := context.WithCancel(ctx)
		waitServed := serveInBackground(serveCtx, server.New(sess, hub), socket)
		wait = func() {
			cancel()
			waitServed()
		}
	}

	err = sess.Run(ctx)
	// the server removes its socket on the way out
	wait()
	if err != nil {
		return err
	}

	if res, ok := sess.Result(); ok {
		printResult(cmd, &res)
	} else {
		logrus.Info("session ended before calibration")
	}
	return nil
}

// serveInBackground serves srv on socket until ctx is done. The returned
// function blocks until the server has shut down.
func serveInBackground(ctx context.Context, srv *server.Server, socket string) func() {
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := srv.Serve(ctx, socket); err != nil {
			logrus.WithError(err).Error("session server stopped")
		}
	}()
	return func() { <-served }
}
