package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albireox/jaeger-core/fps"
)

var homeAxis string

var homeCmd = &cobra.Command{
	Use:   "home <positioner-id>",
	Short: "Home one or both axes of a positioner",
	Args:  cobra.ExactArgs(1),
	RunE:  runHome,
}

func init() {
	homeCmd.Flags().StringVar(&homeAxis, "axis", "both", "axis to home: alpha, beta, or both")
}

func runHome(cmd *cobra.Command, args []string) error {
	ids, err := parsePositionerIDs(args)
	if err != nil {
		return err
	}

	var alpha, beta bool
	switch homeAxis {
	case "alpha":
		alpha = true
	case "beta":
		beta = true
	case "both":
		alpha, beta = true, true
	default:
		return fmt.Errorf("jaegerctl: invalid --axis %q (want alpha, beta, or both)", homeAxis)
	}

	ctx := context.Background()
	return withFPS(ctx, false, func(f *fps.FPS) error {
		if err := f.Home(ctx, ids[0], alpha, beta); err != nil {
			return fmt.Errorf("jaegerctl: home failed: %w", err)
		}
		fmt.Printf("positioner %d homed (axis=%s)\n", ids[0], homeAxis)
		return nil
	})
}
