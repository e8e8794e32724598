package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <positioner-id>",
	Short: "Run a calibration routine (not implemented)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalibrate,
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	return fmt.Errorf("jaegerctl: calibrate is not implemented; calibration routines and kinematics/trajectory geometry are out of scope for this fleet controller")
}
