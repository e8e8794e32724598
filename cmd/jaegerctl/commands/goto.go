package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/albireox/jaeger-core/fps"
)

var (
	gotoRelative bool
	gotoSpeed    float64
	gotoAll      bool
	gotoForce    bool
)

var gotoCmd = &cobra.Command{
	Use:   "goto <positioner-id>... <alpha> <beta>",
	Short: "Move one or more positioners to an (alpha, beta) target",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runGoto,
}

func init() {
	gotoCmd.Flags().BoolVar(&gotoRelative, "relative", false, "alpha/beta are offsets from the current position")
	gotoCmd.Flags().Float64Var(&gotoSpeed, "speed", 0, "move speed in degrees/second (0: positioner default)")
	gotoCmd.Flags().BoolVar(&gotoAll, "all", false, "move every active positioner to the same target")
	gotoCmd.Flags().BoolVar(&gotoForce, "force", false, "unlock the fleet first if it is locked")
}

func runGoto(cmd *cobra.Command, args []string) error {
	alpha, beta, err := parseAngles(args[len(args)-2], args[len(args)-1])
	if err != nil {
		return err
	}
	if !gotoRelative && (alpha < 0 || beta < 0) {
		return fmt.Errorf("jaegerctl: goto requires non-negative alpha/beta unless --relative is set")
	}

	var ids []uint16
	if !gotoAll {
		ids, err = parsePositionerIDs(args[:len(args)-2])
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("jaegerctl: goto requires at least one positioner id or --all")
		}
	}

	ctx := context.Background()
	return withFPS(ctx, false, func(f *fps.FPS) error {
		if gotoForce && f.Locked() {
			if err := f.Unlock(ctx, true); err != nil {
				return fmt.Errorf("jaegerctl: unlock before goto failed: %w", err)
			}
		}

		targets := ids
		if gotoAll {
			for _, p := range f.Positioners() {
				if !p.Disabled {
					targets = append(targets, p.ID)
				}
			}
		}

		positions := make(map[uint16]fps.Position, len(targets))
		for _, id := range targets {
			positions[id] = fps.Position{Alpha: alpha, Beta: beta}
		}

		if err := f.Goto(ctx, positions, gotoSpeed, gotoRelative); err != nil {
			return fmt.Errorf("jaegerctl: goto failed: %w", err)
		}
		fmt.Printf("moved %d positioner(s) to alpha=%.3f beta=%.3f\n", len(targets), alpha, beta)
		return nil
	})
}

func parseAngles(alphaStr, betaStr string) (alpha, beta float64, err error) {
	alpha, err = strconv.ParseFloat(alphaStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("jaegerctl: invalid alpha %q: %w", alphaStr, err)
	}
	beta, err = strconv.ParseFloat(betaStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("jaegerctl: invalid beta %q: %w", betaStr, err)
	}
	return alpha, beta, nil
}

func parsePositionerIDs(args []string) ([]uint16, error) {
	ids := make([]uint16, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(a, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("jaegerctl: invalid positioner id %q: %w", a, err)
		}
		ids = append(ids, uint16(v))
	}
	return ids, nil
}
