package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/albireox/jaeger-core/fps"
)

var listPositionersCmd = &cobra.Command{
	Use:   "list-positioners",
	Short: "List every positioner tracked by the fleet",
	Args:  cobra.NoArgs,
	RunE:  runListPositioners,
}

func runListPositioners(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	return withFPS(ctx, true, func(f *fps.FPS) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tFIRMWARE\tALPHA\tBETA\tDISABLED")
		for _, p := range f.Positioners() {
			firmware := "-"
			if p.Firmware != nil {
				firmware = p.Firmware.String()
			}
			alpha, beta := "-", "-"
			if p.Alpha != nil {
				alpha = fmt.Sprintf("%.3f", *p.Alpha)
			}
			if p.Beta != nil {
				beta = fmt.Sprintf("%.3f", *p.Beta)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%v\n", p.ID, p.Status, firmware, alpha, beta, p.Disabled)
		}
		return w.Flush()
	})
}
