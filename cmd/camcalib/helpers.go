package main

import (
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/camcalib/pkg/client"
	"github.com/charlie0129/camcalib/pkg/config"
	"github.com/charlie0129/camcalib/pkg/session"
	"github.com/charlie0129/camcalib/pkg/version"
	"github.com/charlie0129/camcalib/pkg/vision"
)

// loadConfig reads the config file given by --config. The socket path from
// the command line wins over the one in the file.
func loadConfig(cmd *cobra.Command) (*config.File, error) {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("socket") || conf.SocketPath() == "" {
		conf.SetSocketPath(unixSocketPath)
	}
	return conf, nil
}

// newAPIClient connects to the session socket and warns when the session
// was started by a different build.
func newAPIClient(cmd *cobra.Command) (*client.Client, error) {
	conf, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	c := client.NewClient(conf.SocketPath())

	if v, err := c.GetVersion(); err == nil && v != version.Version {
		logrus.WithFields(logrus.Fields{
			"clientVersion":  version.Version,
			"sessionVersion": v,
		}).Warn("Version mismatch between client and session.")
	}
	return c, nil
}

type videoSource interface {
	session.FrameSource
	Close() error
}

// openSource opens the video file if one is configured, the camera
// otherwise.
func openSource(conf config.Config) (videoSource, error) {
	var (
		c   *vision.Capture
		err error
	)
	if f := conf.VideoFile(); f != "" {
		c, err = vision.OpenFile(f)
	} else {
		c, err = vision.OpenDevice(conf.Device(), conf.FrameWidth(), conf.FrameHeight())
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func closeQuietly(name string, closeFunc func() error) {
	if err := closeFunc(); err != nil {
		logrus.WithError(err).Warnf("failed to close %s", name)
	}
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
