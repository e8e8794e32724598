package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albireox/jaeger-core/fps"
)

var setPositionsCmd = &cobra.Command{
	Use:   "set-positions <positioner-id> <alpha> <beta>",
	Short: "Seed a positioner's tracked coordinates without moving it",
	Args:  cobra.ExactArgs(3),
	RunE:  runSetPositions,
}

func runSetPositions(cmd *cobra.Command, args []string) error {
	ids, err := parsePositionerIDs(args[:1])
	if err != nil {
		return err
	}
	alpha, beta, err := parseAngles(args[1], args[2])
	if err != nil {
		return err
	}
	if alpha < 0 || alpha >= 360 || beta < 0 || beta >= 360 {
		return fmt.Errorf("jaegerctl: set-positions requires alpha and beta in [0, 360)")
	}

	ctx := context.Background()
	return withFPS(ctx, false, func(f *fps.FPS) error {
		if err := f.SetPosition(ctx, ids[0], alpha, beta); err != nil {
			return fmt.Errorf("jaegerctl: set-positions failed: %w", err)
		}
		fmt.Printf("positioner %d position set to alpha=%.3f beta=%.3f\n", ids[0], alpha, beta)
		return nil
	})
}
