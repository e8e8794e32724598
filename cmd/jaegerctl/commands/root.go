// Package commands implements the jaegerctl CLI: the external actor
// interface over an FPS, realized with cobra/viper per
// marmos91-dittofs's cmd/dittofs/commands (rootCmd + persistent flags +
// subcommand registration pattern).
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/albireox/jaeger-core/can"
	"github.com/albireox/jaeger-core/config"
	"github.com/albireox/jaeger-core/fps"
	"github.com/albireox/jaeger-core/internal/telemetry"
)

var (
	cfgFile      string
	profileFlag  string
	virtualFlag  bool
	nPositioners int
	verboseFlag  bool
	quietFlag    bool
	noLockFlag   bool
)

// rootCmd defaults to the actor daemon when invoked with no subcommand.
var rootCmd = &cobra.Command{
	Use:   "jaegerctl",
	Short: "jaegerctl controls a focal plane system fiber positioner fleet",
	Long: `jaegerctl drives a Focal Plane System: a fleet of CAN-bus-connected
robotic fiber positioners. With no subcommand it runs as the actor daemon,
initialising the fleet and then waiting until a signal is received.

Use "jaegerctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runActor,
}

// Execute adds all child commands to rootCmd and runs it. Called once by
// main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/jaeger/jaeger.yaml)")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "configuration profile to use (default: profiles.default)")
	rootCmd.PersistentFlags().BoolVar(&virtualFlag, "virtual", false, "use an in-memory simulated fleet (always used: no real CAN transport is built in)")
	rootCmd.PersistentFlags().IntVarP(&nPositioners, "npositioners", "n", 10, "number of positioners to simulate with --virtual")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "only log warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&noLockFlag, "no-lock", false, "ignore fps.use_lock and skip the on-disk lock file check")

	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(setPositionsCmd)
	rootCmd.AddCommand(homeCmd)
	rootCmd.AddCommand(listPositionersCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(unlockCmd)
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string { return cfgFile }

// PrintErr prints a formatted error to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints a formatted error and terminates with the given exit code.
func Exit(code int, format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(code)
}

// loadConfig loads the configuration file and applies the --profile and
// --no-lock overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if profileFlag != "" {
		cfg.Profiles.Default = profileFlag
	}
	if noLockFlag {
		cfg.FPS.UseLock = false
	}
	return cfg, nil
}

// initLogger configures package-level logging from the -v/-q flags.
func initLogger() {
	level := "INFO"
	switch {
	case verboseFlag:
		level = "DEBUG"
	case quietFlag:
		level = "WARN"
	}
	logDir := os.Getenv("ACTOR_DAEMON_LOG_DIR")
	output := ""
	if logDir != "" {
		output = logDir + "/jaeger.log"
	}
	if err := telemetry.Init(telemetry.Config{Level: level, Output: output}); err != nil {
		fmt.Fprintf(os.Stderr, "jaegerctl: failed to initialise logging: %v\n", err)
	}
}

// buildBus constructs the BusInterface this invocation will use: a
// simulated VirtualFleet behind a VirtualBus, whether or not --virtual is
// set. A real
// socketcan/USB-CAN transport is out of scope (SPEC_FULL.md §4.9); there is
// currently no other BusInterface implementation to select.
func buildBus() (can.BusInterface, *can.VirtualFleet) {
	fleet := can.NewVirtualFleet(nPositioners)
	bus := can.NewVirtualBus("virtual", fleet.Reply)
	return bus, fleet
}

// instanceName is the registry key this process's FPS singleton is
// registered under (spec.md §9 singleton registry).
const instanceName = "jaeger"

// getOrCreateFPS obtains the process FPS singleton, wiring up a dispatcher
// over a fresh virtual (or, in the future, real) bus on first use.
func getOrCreateFPS(cfg *config.Config) *fps.FPS {
	return fps.GetInstance(instanceName, func() *fps.FPS {
		bus, _ := buildBus()
		metrics := telemetry.NewMetrics(nil)
		dispatcher := can.NewCANDispatcher([]can.BusInterface{bus}, metrics)
		return fps.New(instanceName, dispatcher, cfg, metrics)
	})
}
