package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albireox/jaeger-core/fps"
)

var statusCmd = &cobra.Command{
	Use:   "status [positioner-id]",
	Short: "Report fleet status, or one positioner's status if given an id",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	return withFPS(ctx, true, func(f *fps.FPS) error {
		report := f.ReportStatus()

		if len(args) == 0 {
			fmt.Printf("fleet status: %s\n", report.FleetStatus)
			fmt.Printf("locked: %v", report.Locked)
			if report.Locked {
				fmt.Printf(" (by %v)", report.LockedBy)
			}
			fmt.Println()
			fmt.Printf("positioners tracked: %d\n", len(report.Positioners))
			return nil
		}

		ids, err := parsePositionerIDs(args)
		if err != nil {
			return err
		}
		pr, ok := report.Positioners[ids[0]]
		if !ok {
			return fmt.Errorf("jaegerctl: unknown positioner %d", ids[0])
		}

		firmware := "-"
		if pr.Firmware != nil {
			firmware = pr.Firmware.String()
		}
		fmt.Printf("positioner %d: status=%s firmware=%s disabled=%v\n", ids[0], pr.Status, firmware, pr.Disabled)
		if pr.Alpha != nil && pr.Beta != nil {
			fmt.Printf("  alpha=%.3f beta=%.3f\n", *pr.Alpha, *pr.Beta)
		}
		return nil
	})
}
