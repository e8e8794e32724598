package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albireox/jaeger-core/fps"
)

var unlockForce bool

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the fleet",
	Args:  cobra.NoArgs,
	RunE:  runUnlock,
}

func init() {
	unlockCmd.Flags().BoolVar(&unlockForce, "force", false, "unlock even if a collision is still present")
}

func runUnlock(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	return withFPS(ctx, true, func(f *fps.FPS) error {
		if !f.Locked() {
			fmt.Println("fleet is not locked")
			return nil
		}
		if err := f.Unlock(ctx, unlockForce); err != nil {
			return fmt.Errorf("jaegerctl: unlock failed: %w", err)
		}
		fmt.Println("fleet unlocked")
		return nil
	})
}
