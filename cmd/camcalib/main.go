package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/camcalib/pkg/client"
	"github.com/charlie0129/camcalib/pkg/config"
	"github.com/charlie0129/camcalib/pkg/vision"
)

var (
	logLevel       = "info"
	unixSocketPath = filepath.Join(os.TempDir(), "camcalib.sock")
	configPath     = config.DefaultPath()
)

var (
	gBasic        = "Basic:"
	gSession      = "Session:"
	commandGroups = []string{
		gBasic,
		gSession,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrSessionNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: no calibration session is running")
		fmt.Fprintln(os.Stderr, "Start one with 'camcalib calibrate' and make sure both commands use the same --socket.")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - The session socket belongs to another user. Run the command as that user.")
	case errors.Is(err, vision.ErrOpen):
		fmt.Fprintln(os.Stderr, "\nError: could not open the video source")
		fmt.Fprintln(os.Stderr, "  - Check that the camera is connected and not used by another program")
		fmt.Fprintln(os.Stderr, "  - Or pass a readable video with --file")
	}
}

func main() {
	// HighGUI windows must be driven from the main thread.
	runtime.LockOSThread()

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "camcalib",
		Short: "camcalib calibrates cameras with a ChArUco board",
		Long: `camcalib calibrates cameras with a ChArUco board.

Show the board to the camera, press 'c' to capture a view and 'p' once
enough views are captured. The calibrated camera is then used to undistort
the live feed and draw the pose of every detected marker. Press ESC to quit.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "socket", unixSocketPath, "calibration session unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewVersionCommand(),
		NewCalibrateCommand(),
		NewPlayCommand(),
		NewStatusCommand(),
		NewSignalCommand(),
		NewResultCommand(),
	)

	return cmd
}
