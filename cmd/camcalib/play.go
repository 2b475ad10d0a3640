package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/camcalib/pkg/playback"
	"github.com/charlie0129/camcalib/pkg/vision"
)

// NewPlayCommand .
func NewPlayCommand() *cobra.Command {
	var (
		source sourceFlags
		window string
	)

	cmd := &cobra.Command{
		Use:     "play",
		Short:   "Show the video source until a key is pressed",
		GroupID: gBasic,
		Long: `Show the video source until a key is pressed.

Useful to check the camera (or a recorded video) before calibrating.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := source.check(); err != nil {
				return err
			}
			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			source.apply(cmd, conf)

			src, err := openSource(conf)
			if err != nil {
				return err
			}
			defer closeQuietly("video source", src.Close)

			windows := vision.NewWindows()
			defer closeQuietly("windows", windows.Close)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stats, err := playback.Play(ctx, src, windows, playback.Options{Window: window})
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"frames":  stats.Frames,
				"stopped": stats.Stopped,
			}).Info("playback finished")
			return nil
		},
	}

	source.register(cmd)
	cmd.Flags().StringVar(&window, "window", "Video", "window title")

	return cmd
}
