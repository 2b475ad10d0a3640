package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/client"
)

// NewResultCommand .
func NewResultCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "result [file]",
		GroupID: gSession,
		Short:   "Print a calibration result",
		Long: `Print a calibration result.

With a file argument, read a result saved by 'camcalib calibrate --output'.
Otherwise ask the running session.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res *calibration.Result
				err error
			)
			if len(args) == 1 {
				res, err = calibration.LoadResult(args[0])
				if err != nil {
					return err
				}
			} else {
				apiClient, err := newAPIClient(cmd)
				if err != nil {
					return err
				}
				res, err = apiClient.GetResult()
				if errors.Is(err, client.ErrNotFound) {
					return fmt.Errorf("the session is not calibrated yet")
				}
				if err != nil {
					return err
				}
			}

			if asJSON {
				b, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}
			printResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")

	return cmd
}

func printResult(cmd *cobra.Command, res *calibration.Result) {
	in := res.Camera.Intrinsics
	d := res.Camera.Distortion

	cmd.Println(bold("Calibration result:"))
	cmd.Printf("  Reprojection error: %s\n", reprojectionText(res.ReprojectionError))
	cmd.Printf("  Views: %s\n", bold("%d", res.Frames))
	cmd.Printf("  Image size: %s\n", bold("%dx%d", in.Width, in.Height))
	if !res.CalibratedAt.IsZero() {
		cmd.Printf("  Calibrated at: %s\n", bold("%s", res.CalibratedAt.Format(time.DateTime)))
	}
	cmd.Println("  Camera matrix:")
	m := in.Matrix()
	for r := 0; r < 3; r++ {
		cmd.Printf("    %s\n", bold("%12.4f %12.4f %12.4f", m[3*r], m[3*r+1], m[3*r+2]))
	}
	cmd.Println("  Distortion:")
	cmd.Printf("    Radial (k1, k2, k3): %s\n", bold("%.6f, %.6f, %.6f", d.RadialK1, d.RadialK2, d.RadialK3))
	cmd.Printf("    Tangential (p1, p2): %s\n", bold("%.6f, %.6f", d.TangentialP1, d.TangentialP2))
}

// reprojectionText colors the RMS reprojection error. Below one pixel is
// usually a good calibration.
func reprojectionText(e float64) string {
	switch {
	case e < 0.5:
		return color.New(color.Bold, color.FgGreen).Sprintf("%.4f px", e)
	case e < 1:
		return color.New(color.Bold, color.FgYellow).Sprintf("%.4f px", e)
	default:
		return color.New(color.Bold, color.FgRed).Sprintf("%.4f px", e)
	}
}
