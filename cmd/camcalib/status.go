package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/events"
)

// NewStatusCommand .
func NewStatusCommand() *cobra.Command {
	var (
		asJSON bool
		watch  bool
	)

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gSession,
		Short:   "Get the status of the running calibration session",
		Long: `Get the status of the running calibration session.

With --watch, keep printing session events until the session ends.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiClient, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			st, err := apiClient.GetStatus()
			if err != nil {
				return fmt.Errorf("failed to get session status: %w", err)
			}

			if asJSON {
				b, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
			} else {
				printStatus(cmd, st)
			}

			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := apiClient.SubscribeEvents(ctx)
			if err != nil {
				return err
			}
			cmd.Println()
			for ev := range ch {
				printEvent(cmd, ev, asJSON)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print JSON instead of text")
	f.BoolVarP(&watch, "watch", "w", false, "keep printing session events")

	return cmd
}

func printStatus(cmd *cobra.Command, st *calibration.Status) {
	cmd.Println(bold("Session:"))
	cmd.Printf("  State: %s\n", stateText(st.State))
	if !st.StartedAt.IsZero() {
		cmd.Printf("  Running since: %s\n", bold("%s", st.StartedAt.Format(time.DateTime)))
	}
	views := fmt.Sprintf("%d (need %d", st.Frames, st.MinFrames)
	if st.MaxFrames > 0 {
		views += fmt.Sprintf(", at most %d", st.MaxFrames)
	}
	views += ")"
	cmd.Printf("  Captured views: %s\n", bold("%s", views))
	if st.ImageSize.X > 0 {
		cmd.Printf("  Image size: %s\n", bold("%dx%d", st.ImageSize.X, st.ImageSize.Y))
	}
	cmd.Printf("  Can capture: %s\n", bool2Text(st.CanCapture))
	cmd.Printf("  Can proceed: %s\n", bool2Text(st.CanProceed))
	if st.Message != "" {
		cmd.Printf("  Last message: %s\n", st.Message)
	}

	cmd.Println()
	cmd.Println(bold("Board:"))
	g := st.Board
	cmd.Printf("  Squares: %s\n", bold("%dx%d", g.SquaresX, g.SquaresY))
	cmd.Printf("  Square length: %s\n", bold("%g", g.SquareLength))
	cmd.Printf("  Marker length: %s\n", bold("%g", g.MarkerLength))
	cmd.Printf("  Dictionary: %s\n", bold("%s", g.Dictionary))

	if st.Result != nil {
		cmd.Println()
		printResult(cmd, st.Result)
	}
}

func stateText(s calibration.State) string {
	switch s {
	case calibration.StateRecording:
		return color.New(color.Bold, color.FgYellow).Sprint(s)
	case calibration.StateCalibrating:
		return color.New(color.Bold, color.FgCyan).Sprint(s)
	case calibration.StateShowing:
		return color.New(color.Bold, color.FgGreen).Sprint(s)
	default:
		return bold("%s", s)
	}
}

func printEvent(cmd *cobra.Command, ev events.Event, asJSON bool) {
	if asJSON {
		cmd.Printf("{\"event\":%q,\"data\":%s}\n", ev.Name, string(ev.Data))
		return
	}

	switch ev.Name {
	case events.SessionState:
		p, err := events.DecodeAs[events.SessionStateEvent](ev)
		if err != nil {
			break
		}
		cmd.Printf("%s state %s -> %s\n", eventTime(p.Ts), p.From, stateText(calibration.State(p.To)))
		return
	case events.SessionCapture:
		p, err := events.DecodeAs[events.SessionCaptureEvent](ev)
		if err != nil {
			break
		}
		if p.Accepted {
			cmd.Printf("%s capture %s: %d corners, %d views\n", eventTime(p.Ts), bool2Text(true), p.Corners, p.Frames)
		} else {
			cmd.Printf("%s capture %s: %s\n", eventTime(p.Ts), bool2Text(false), p.Message)
		}
		return
	case events.SessionResult:
		p, err := events.DecodeAs[events.SessionResultEvent](ev)
		if err != nil {
			break
		}
		cmd.Printf("%s calibrated with %d views, reprojection error %s\n", eventTime(p.Ts), p.Frames, reprojectionText(p.ReprojectionError))
		return
	}
	cmd.Printf("%s %s\n", ev.Name, string(ev.Data))
}

// eventTime formats an event timestamp given in Unix seconds.
func eventTime(ts int64) string {
	return time.Unix(ts, 0).Format(time.TimeOnly)
}
