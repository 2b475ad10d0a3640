package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/camcalib/pkg/calibration"
)

// NewSignalCommand .
func NewSignalCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "signal [capture|proceed|quit]",
		GroupID:   gSession,
		Short:     "Send a signal to the running calibration session",
		Long:      `Send a signal to the running calibration session, as if the corresponding key was pressed in its window.`,
		ValidArgs: []string{string(calibration.SignalCapture), string(calibration.SignalProceed), string(calibration.SignalQuit)},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := calibration.ParseSignal(args[0])
			if err != nil {
				return err
			}

			apiClient, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			ret, err := apiClient.SendSignal(sig)
			if err != nil {
				return fmt.Errorf("failed to send %s: %w", sig, err)
			}
			if ret != "" {
				logrus.Debugf("session responded: %s", ret)
			}
			logrus.Infof("successfully sent %s", sig)
			return nil
		},
	}
}
