package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/albireox/jaeger-core/internal/telemetry"
)

// runActor is the root command's default action: it initialises the fleet
// and blocks until a signal arrives. This is a stub for the real external
// actor-protocol server named in spec.md §6 (not implemented here), but it
// exercises the same startup/shutdown path a real server would.
func runActor(cmd *cobra.Command, args []string) error {
	initLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("jaegerctl: %w", err)
	}

	f := getOrCreateFPS(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.Start(ctx, false); err != nil {
		return fmt.Errorf("jaegerctl: fps startup failed: %w", err)
	}

	report := f.ReportStatus()
	telemetry.Infof("fleet initialised: %d positioners, status=%s, locked=%v",
		len(report.Positioners), report.FleetStatus, report.Locked)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	telemetry.Info("actor running, press ctrl-c to stop")
	sig := <-sigCh
	signal.Stop(sigCh)
	telemetry.Infof("received signal %s, aborting any in-flight trajectory", sig)

	abortCtx, abortCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer abortCancel()
	if err := f.StopTrajectory(abortCtx, false); err != nil {
		telemetry.Warnf("jaegerctl: trajectory abort on shutdown failed: %v", err)
	}

	if err := f.Shutdown(abortCtx); err != nil {
		return fmt.Errorf("jaegerctl: shutdown failed: %w", err)
	}
	return nil
}
