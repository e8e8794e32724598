package fps

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albireox/jaeger-core/can"
	"github.com/albireox/jaeger-core/config"
	"github.com/albireox/jaeger-core/internal/registry"
	"github.com/albireox/jaeger-core/positioner"
)

func testConfig() *config.Config {
	return &config.Config{
		FPS: config.FPSConfig{
			InitialiseTimeouts: 2 * time.Second,
			BroadcastQuiescence: 50 * time.Millisecond,
		},
	}
}

// newTestFPS wires an FPS directly (bypassing the process-wide registry,
// which TestRegistry below exercises separately) over a fresh simulated
// fleet, so each test gets an isolated dispatcher.
func newTestFPS(t *testing.T, nPositioners int) (*FPS, *can.VirtualFleet) {
	t.Helper()
	fleet := can.NewVirtualFleet(nPositioners)
	bus := can.NewVirtualBus("virtual", fleet.Reply)
	dispatcher := can.NewCANDispatcher([]can.BusInterface{bus}, nil)
	t.Cleanup(func() { _ = dispatcher.Close() })

	f := New("test", dispatcher, testConfig(), nil)
	return f, fleet
}

func TestInitialiseDiscoversPositioners(t *testing.T) {
	f, _ := newTestFPS(t, 4)
	ctx := context.Background()

	require.NoError(t, f.Initialise(ctx, false))

	ids := f.activePositionerIDs()
	assert.Len(t, ids, 4)
	for _, p := range f.Positioners() {
		require.NotNil(t, p.Firmware)
		assert.True(t, p.Initialised)
		assert.False(t, f.Locked())
	}
}

func TestInitialiseLocksOnPreexistingCollision(t *testing.T) {
	f, fleet := newTestFPS(t, 3)
	ctx := context.Background()

	fleet.SetCollision(2, true, false)

	require.NoError(t, f.Initialise(ctx, false))

	assert.True(t, f.Locked())
	assert.Contains(t, f.LockedBy(), uint16(2))
	assert.True(t, f.Status().Has(positioner.FPSLocked))
}

func TestInitialiseAppliesDisabledPositionersConfig(t *testing.T) {
	fleet := can.NewVirtualFleet(3)
	bus := can.NewVirtualBus("virtual", fleet.Reply)
	dispatcher := can.NewCANDispatcher([]can.BusInterface{bus}, nil)
	t.Cleanup(func() { _ = dispatcher.Close() })

	cfg := testConfig()
	cfg.FPS.DisabledPositioners = []uint16{3}
	f := New("test", dispatcher, cfg, nil)

	require.NoError(t, f.Initialise(context.Background(), false))

	p := f.Get(3)
	require.NotNil(t, p)
	assert.True(t, p.Disabled)
	assert.NotContains(t, f.activePositionerIDs(), uint16(3))
}

func TestSendCommandRejectsUnknownPositioner(t *testing.T) {
	f, _ := newTestFPS(t, 2)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	_, err := f.SendCommand(ctx, registry.GetStatus, []uint16{99}, nil, time.Second, can.SendOptions{})
	require.Error(t, err)
	var unknown *UnknownPositioner
	assert.ErrorAs(t, err, &unknown)
}

func TestSendCommandRejectsMoveWhenLocked(t *testing.T) {
	f, fleet := newTestFPS(t, 2)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	fleet.SetCollision(1, true, false)
	require.NoError(t, f.Lock(ctx, false, []uint16{1}, false))

	err := f.Goto(ctx, map[uint16]Position{1: {Alpha: 10, Beta: 170}}, 0, false)
	assert.ErrorIs(t, err, ErrFPSLocked)
}

func TestGotoMovesAndUpdatesTrackedPosition(t *testing.T) {
	f, _ := newTestFPS(t, 1)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	err := f.Goto(ctx, map[uint16]Position{1: {Alpha: 30, Beta: 170}}, 0, false)
	require.NoError(t, err)

	p := f.Get(1)
	require.NotNil(t, p)
	require.NotNil(t, p.Alpha)
	require.NotNil(t, p.Beta)
	assert.InDelta(t, 30.0, *p.Alpha, 0.01)
	assert.InDelta(t, 170.0, *p.Beta, 0.01)
}

func TestGotoRelativeOffsetsFromCurrentPosition(t *testing.T) {
	f, _ := newTestFPS(t, 1)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))
	require.NoError(t, f.Goto(ctx, map[uint16]Position{1: {Alpha: 10, Beta: 170}}, 0, false))

	require.NoError(t, f.Goto(ctx, map[uint16]Position{1: {Alpha: 5, Beta: 0}}, 0, true))

	p := f.Get(1)
	require.NotNil(t, p.Alpha)
	assert.InDelta(t, 15.0, *p.Alpha, 0.01)
}

func TestLockUnlockCycle(t *testing.T) {
	f, fleet := newTestFPS(t, 2)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	fleet.SetCollision(1, true, false)
	require.NoError(t, f.Lock(ctx, false, []uint16{1}, false))
	assert.True(t, f.Locked())

	// Unlock fails (stays locked) while the simulated collision persists.
	err := f.Unlock(ctx, false)
	require.Error(t, err)
	assert.True(t, f.Locked())

	fleet.SetCollision(1, false, false)
	require.NoError(t, f.Unlock(ctx, false))
	assert.False(t, f.Locked())
}

func TestUnlockForceIgnoresPersistentCollision(t *testing.T) {
	f, fleet := newTestFPS(t, 1)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	fleet.SetCollision(1, true, false)
	require.NoError(t, f.Lock(ctx, false, []uint16{1}, false))

	require.NoError(t, f.Unlock(ctx, true))
	assert.False(t, f.Locked())
}

func TestSendTrajectoryUploadsSuccessfully(t *testing.T) {
	f, _ := newTestFPS(t, 2)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	trajectories := map[uint16]PositionerTrajectory{
		1: {
			Alpha: []TrajectoryPoint{{Angle: 10, Time: 0}, {Angle: 20, Time: 1}},
			Beta:  []TrajectoryPoint{{Angle: 170, Time: 0}, {Angle: 170, Time: 1}},
		},
		2: {
			Alpha: []TrajectoryPoint{{Angle: 0, Time: 0}},
			Beta:  []TrajectoryPoint{{Angle: 170, Time: 0}},
		},
	}

	traj, err := f.SendTrajectory(ctx, trajectories)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint16{1, 2}, traj.Uploaded)
	assert.Empty(t, traj.Partial)
}

func TestSendTrajectoryReportsPartialFailureForUnknownPositioner(t *testing.T) {
	f, _ := newTestFPS(t, 1)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	trajectories := map[uint16]PositionerTrajectory{
		1:  {Alpha: []TrajectoryPoint{{Angle: 10, Time: 0}}, Beta: []TrajectoryPoint{{Angle: 170, Time: 0}}},
		99: {Alpha: []TrajectoryPoint{{Angle: 10, Time: 0}}, Beta: []TrajectoryPoint{{Angle: 170, Time: 0}}},
	}

	traj, err := f.SendTrajectory(ctx, trajectories)
	require.Error(t, err)
	var trajErr *TrajectoryError
	require.ErrorAs(t, err, &trajErr)
	assert.Contains(t, traj.Partial, uint16(99))
	assert.Contains(t, traj.Uploaded, uint16(1))
}

func TestSendTrajectoryRejectedWhileLocked(t *testing.T) {
	f, fleet := newTestFPS(t, 1)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))
	fleet.SetCollision(1, true, false)
	require.NoError(t, f.Lock(ctx, false, []uint16{1}, false))

	_, err := f.SendTrajectory(ctx, map[uint16]PositionerTrajectory{1: {}})
	assert.ErrorIs(t, err, ErrFPSLocked)
}

func TestStopTrajectoryCancelsInFlightMoveCommands(t *testing.T) {
	f, _ := newTestFPS(t, 1)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	// Positioner 99 is known to the fleet table but absent from the
	// simulated bus, so a GOTO addressed to it never gets a reply and
	// stays tracked in the dispatcher until stop_trajectory cancels it.
	f.positioners.Add(&positioner.Positioner{ID: 99})

	gotoDone := make(chan error, 1)
	go func() {
		gotoDone <- f.Goto(ctx, map[uint16]Position{99: {Alpha: 10, Beta: 170}}, 0, false)
	}()

	time.Sleep(50 * time.Millisecond) // let gotoOne register its commands
	require.NoError(t, f.StopTrajectory(ctx, true))

	// stop_trajectory cancels in-flight move commands silently (no error
	// attached, matching Cancel(true)'s contract used for this internal
	// housekeeping), so the goroutine unblocks well before gotoOne's own
	// multi-second command timeout rather than carrying an error.
	select {
	case err := <-gotoDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("expected goto to return promptly once stop_trajectory cancelled its commands")
	}
}

func TestReportStatusSnapshotsEveryPositioner(t *testing.T) {
	f, _ := newTestFPS(t, 3)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	report := f.ReportStatus()
	assert.Len(t, report.Positioners, 3)
	assert.False(t, report.Locked)
}

func TestStatusChangesPublishesOnTransition(t *testing.T) {
	f, fleet := newTestFPS(t, 1)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))

	changes, unsubscribe := f.StatusChanges()
	defer unsubscribe()

	fleet.SetCollision(1, true, false)
	require.NoError(t, f.UpdateStatus(ctx))

	select {
	case s := <-changes:
		assert.True(t, s.Has(positioner.FPSCollided))
	case <-time.After(time.Second):
		t.Fatal("expected a status transition notification")
	}
}

func TestHomeIssuesHomeCommandsForRequestedAxes(t *testing.T) {
	f, _ := newTestFPS(t, 1)
	ctx := context.Background()
	require.NoError(t, f.Initialise(ctx, false))
	require.NoError(t, f.Goto(ctx, map[uint16]Position{1: {Alpha: 50, Beta: 170}}, 0, false))

	require.NoError(t, f.Home(ctx, 1, true, false))

	cmd, err := f.SendCommand(ctx, registry.GetActualPosition, []uint16{1}, nil, time.Second, can.SendOptions{})
	require.NoError(t, err)
	require.NoError(t, cmd.Wait())
}

func TestShutdownRemovesRegistryEntry(t *testing.T) {
	fleet := can.NewVirtualFleet(1)
	bus := can.NewVirtualBus("virtual", fleet.Reply)
	dispatcher := can.NewCANDispatcher([]can.BusInterface{bus}, nil)

	name := "shutdown-test-fps"
	f := GetInstance(name, func() *FPS { return New(name, dispatcher, testConfig(), nil) })
	require.NoError(t, f.Initialise(context.Background(), false))

	require.NoError(t, f.Shutdown(context.Background()))

	again := GetInstance(name, func() *FPS { return New(name, dispatcher, testConfig(), nil) })
	assert.NotSame(t, f, again)
	Discard(name)
}
