// Package fps implements the Focal Plane System aggregate: the fleet state
// machine built on top of can.CANDispatcher and positioner.Table. This is
// the Go realization of spec.md §4.6-§4.7, grounded throughout on
// _examples/original_source/src/jaeger/core/fps.py for algorithm
// sequencing, translated into the teacher's (pascaldekloe/part5) struct-
// with-methods idiom and its explicit-timer, channel-signalled concurrency
// style.
package fps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/albireox/jaeger-core/can"
	"github.com/albireox/jaeger-core/config"
	"github.com/albireox/jaeger-core/internal/registry"
	"github.com/albireox/jaeger-core/internal/telemetry"
	"github.com/albireox/jaeger-core/positioner"
)

// MinBeta is the lowest beta angle considered safe when config.SafeMode is
// set (fps.py MIN_BETA, SPEC_FULL.md §10).
const MinBeta = 160.0

// LockEvent is the one-shot notification emitted on every lock state change
// (spec.md §4.6.4), consumed by an external actor-protocol server.
type LockEvent struct {
	Locked      bool
	LockedBy    []uint16
	LockedAxes  string
	LockedAlpha bool
	LockedBeta  bool
}

// Position is a target or observed (alpha, beta) pair.
type Position struct {
	Alpha float64
	Beta  float64
}

// FPS is the fleet aggregate: the positioner table, fleet status, lock
// state and the operations that drive them.
type FPS struct {
	name       string
	dispatcher *can.CANDispatcher
	cfg        *config.Config
	metrics    *telemetry.Metrics

	mu          sync.RWMutex
	positioners *positioner.Table
	status      positioner.FPSStatus
	initialised bool
	locked      bool
	lockedBy    []uint16

	statusBroadcast *statusBroadcaster
	lockEvents      chan LockEvent

	pollers *PollerList
}

// New constructs an FPS bound to dispatcher. Use GetInstance to obtain the
// process-wide singleton rather than calling New directly outside of a
// Registry.
func New(name string, dispatcher *can.CANDispatcher, cfg *config.Config, metrics *telemetry.Metrics) *FPS {
	f := &FPS{
		name:            name,
		dispatcher:      dispatcher,
		cfg:             cfg,
		metrics:         metrics,
		positioners:     positioner.NewTable(),
		statusBroadcast: newStatusBroadcaster(),
		lockEvents:      make(chan LockEvent, 16),
	}
	f.pollers = newPollerList(
		newPoller("status", cfg.FPS.StatusPollerDelay, func(ctx context.Context) error { return f.UpdateStatus(ctx) }),
		newPoller("position", cfg.FPS.PositionPollerDelay, func(ctx context.Context) error { return f.UpdatePosition(ctx) }),
	)
	return f
}

// LockEvents returns the channel of lock state transitions.
func (f *FPS) LockEvents() <-chan LockEvent { return f.lockEvents }

// StatusChanges subscribes to fleet status transitions. The returned
// unsubscribe function must be called when the caller is done listening.
func (f *FPS) StatusChanges() (<-chan positioner.FPSStatus, func()) {
	return f.statusBroadcast.subscribe()
}

// Status returns the current fleet status.
func (f *FPS) Status() positioner.FPSStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

// Locked reports whether the fleet is currently locked.
func (f *FPS) Locked() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.locked
}

// LockedBy returns the positioner ids that triggered the current lock, in
// arrival order.
func (f *FPS) LockedBy() []uint16 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]uint16, len(f.lockedBy))
	copy(out, f.lockedBy)
	return out
}

// Moving reports whether the fleet status currently has the MOVING bit.
func (f *FPS) Moving() bool {
	return f.Status().Has(positioner.FPSMoving)
}

// Get returns the tracked Positioner for id, or nil.
func (f *FPS) Get(id uint16) *positioner.Positioner {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.positioners.Get(id)
}

// Positioners returns every tracked positioner in insertion order.
func (f *FPS) Positioners() []*positioner.Positioner {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.positioners.All()
}

// activePositionerIDs returns the ids of every tracked, non-disabled
// positioner, in insertion order (spec.md §4.6.1 "defaults to the set of
// non-disabled known positioners").
func (f *FPS) activePositionerIDs() []uint16 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var ids []uint16
	for _, p := range f.positioners.All() {
		if !p.Disabled {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// SendCommand enforces the send_command preconditions (spec.md §4.6.1) and
// forwards to the dispatcher. A nil positionerIDs defaults to every known,
// non-disabled positioner.
func (f *FPS) SendCommand(ctx context.Context, commandID registry.CommandID, positionerIDs []uint16, data []byte, timeout time.Duration, opts can.SendOptions) (*can.Command, error) {
	entry, ok := registry.Lookup(commandID)
	if !ok {
		return nil, fmt.Errorf("fps: unknown command id %d", commandID)
	}

	if f.dispatcher == nil {
		return nil, ErrCANNotStarted
	}

	if positionerIDs == nil {
		positionerIDs = f.activePositionerIDs()
	}

	f.mu.RLock()
	locked := f.locked
	moving := f.status.Has(positioner.FPSMoving)
	f.mu.RUnlock()

	if locked && !entry.Safe {
		return nil, ErrFPSLocked
	}
	if moving && entry.Move {
		return nil, ErrFPSMoving
	}

	broadcast := len(positionerIDs) == 1 && positionerIDs[0] == 0
	if !broadcast {
		for _, pid := range positionerIDs {
			p := f.Get(pid)
			if p == nil {
				return nil, &UnknownPositioner{ID: pid}
			}
			if p.Disabled && !entry.Safe {
				return nil, ErrDisabledInvolved
			}
			if p.IsBootloader() && !entry.Bootloader {
				return nil, ErrInBootloader
			}
		}
	}

	return f.dispatcher.Send(ctx, commandID, positionerIDs, data, timeout, opts)
}

// Start claims the on-disk lock sentinel and runs Initialise (spec.md §6
// "Persistent state"). If the sentinel already exists and UseLock is set,
// Start fails with ErrAlreadyLockedOnDisk rather than proceeding, since a
// leftover file means a previous run did not shut down cleanly.
func (f *FPS) Start(ctx context.Context, keepDisabled bool) error {
	if f.cfg.FPS.UseLock && lockFileExists() {
		return ErrAlreadyLockedOnDisk
	}
	if err := createLockFile(); err != nil {
		return err
	}
	return f.Initialise(ctx, keepDisabled)
}

// Initialise runs the full fleet bring-up sequence (spec.md §4.6.2).
func (f *FPS) Initialise(ctx context.Context, keepDisabled bool) error {
	f.pollers.Stop()

	f.mu.Lock()
	var keptDisabled []uint16
	if keepDisabled {
		for _, p := range f.positioners.All() {
			if p.Disabled {
				keptDisabled = append(keptDisabled, p.ID)
			}
		}
	}
	f.positioners = positioner.NewTable()
	f.initialised = false
	f.mu.Unlock()

	if f.dispatcher == nil {
		telemetry.Warn("fps: no CAN interfaces configured, aborting initialise")
		return nil
	}

	f.dispatcher.ClearRoutes()

	timeout := f.cfg.FPS.InitialiseTimeouts

	// Step 5: discover positioner->bus map.
	discoverCmd, err := f.dispatcher.Send(ctx, registry.GetID, []uint16{0}, nil, timeout, can.SendOptions{Quiescence: f.cfg.FPS.BroadcastQuiescence})
	if err != nil {
		return fmt.Errorf("fps: discovery GET_ID: %w", err)
	}
	if discoverCmd != nil {
		_ = discoverCmd.Wait()
		for _, reply := range discoverCmd.Replies() {
			f.dispatcher.SetRoute(reply.PositionerID, reply.InterfaceIndex, reply.BusIndex)
		}
	}

	// Step 6: broadcast GET_FIRMWARE_VERSION, upsert positioners.
	fwCmd, err := f.dispatcher.Send(ctx, registry.GetFirmwareVersion, []uint16{0}, nil, timeout, can.SendOptions{Quiescence: f.cfg.FPS.BroadcastQuiescence})
	if err != nil {
		return fmt.Errorf("fps: discovery GET_FIRMWARE_VERSION: %w", err)
	}
	var firmwares []positioner.FirmwareVersion
	if fwCmd != nil {
		_ = fwCmd.Wait()
		f.mu.Lock()
		for _, reply := range fwCmd.Replies() {
			fw, ok := decodeFirmware(reply.Data)
			if !ok {
				continue
			}
			p := f.positioners.Get(reply.PositionerID)
			if p == nil {
				p = positioner.New(reply.PositionerID)
				f.positioners.Add(p)
			}
			p.UpdateFirmwareVersion(fw)
			firmwares = append(firmwares, fw)
			if containsID(f.cfg.FPS.DisabledPositioners, reply.PositionerID) || containsID(keptDisabled, reply.PositionerID) {
				p.Disabled = true
			}
		}
		f.mu.Unlock()
	}

	// Step 7: insert configured offline positioners.
	f.mu.Lock()
	for _, id := range f.cfg.FPS.OfflinePositioners {
		p := f.positioners.Get(id)
		if p == nil {
			p = positioner.New(id)
			f.positioners.Add(p)
		}
		p.SetOfflinePosition(0, 0)
		p.Disabled = true
	}
	f.initialised = true
	f.mu.Unlock()

	if mixedFirmware(firmwares) {
		telemetry.Warn("fps: mixed firmware versions detected across fleet")
	}
	if f.positioners.Len() == 0 {
		telemetry.Warn("fps: no positioners found during discovery")
	}

	// Step 9: abort if any positioner is in bootloader mode.
	for _, p := range f.positioners.All() {
		if p.IsBootloader() {
			telemetry.Warn("fps: one or more positioners are in bootloader mode, aborting initialise")
			return nil
		}
	}

	// Step 10: clear transient motion.
	if err := f.StopTrajectory(ctx, true); err != nil {
		telemetry.Warnf("fps: stop_trajectory during initialise failed: %v", err)
	}

	// Step 11: initialise each online positioner concurrently.
	if err := f.initialisePositioners(ctx, timeout); err != nil {
		return err
	}

	// Step 12: lock on any pre-existing collision, judged from a fresh
	// GET_STATUS pass.
	if err := f.UpdateStatus(ctx); err != nil {
		telemetry.Warnf("fps: update_status before collision check failed: %v", err)
	}
	lockedBy := f.collidedPositionerIDs()
	if len(lockedBy) > 0 {
		if err := f.Lock(ctx, false, lockedBy, false); err != nil {
			telemetry.Warnf("fps: lock during initialise failed: %v", err)
		}
		telemetry.Warnf("fps: initialise found pre-existing collisions on %v", lockedBy)
	}

	// Step 16.
	if err := f.UpdateStatus(ctx); err != nil {
		telemetry.Warnf("fps: post-initialise update_status failed: %v", err)
	}

	// Step 17.
	if f.cfg.FPS.StartPollers {
		f.pollers.Start(ctx)
	}

	return nil
}

func (f *FPS) initialisePositioners(ctx context.Context, timeout time.Duration) error {
	var wg sync.WaitGroup
	errCh := make(chan error, f.positioners.Len())

	for _, p := range f.positioners.All() {
		if p.Offline {
			continue
		}
		wg.Add(1)
		go func(p *positioner.Positioner) {
			defer wg.Done()
			if err := f.initialisePositioner(ctx, p, timeout); err != nil {
				errCh <- &PositionerInitFailed{ID: p.ID, Cause: err}
			}
		}(p)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err // all-or-nothing: first failure aborts initialise
	}
	return nil
}

func (f *FPS) initialisePositioner(ctx context.Context, p *positioner.Positioner, timeout time.Duration) error {
	openLoop := containsID(f.cfg.FPS.OpenLoopPositioners, p.ID)
	noCollision := containsID(f.cfg.FPS.DisableCollisionDetPids, p.ID)

	commands := closedLoopCommands(openLoop, noCollision)
	for _, cmdID := range commands {
		cmd, err := f.dispatcher.Send(ctx, cmdID, []uint16{p.ID}, nil, timeout, can.SendOptions{})
		if err != nil {
			return err
		}
		if cmd != nil {
			if err := cmd.Wait(); err != nil {
				return err
			}
		}
	}
	p.Initialise()

	if f.cfg.FPS.DisablePreciseMoves {
		// Best-effort: failures are logged, never fail initialisation
		// (spec.md §9 Open Question 3).
		_, err := f.dispatcher.Send(ctx, registry.AlphaClosedLoopWithoutCollisionDetection, []uint16{p.ID}, nil, timeout, can.SendOptions{Tolerant: true})
		p.SetPreciseMovesDisabled(err == nil)
		if err != nil {
			telemetry.Warnf("fps: disable_precise_moves failed for positioner %d: %v", p.ID, err)
		}
	}
	return nil
}

func closedLoopCommands(openLoop, noCollision bool) []registry.CommandID {
	switch {
	case openLoop:
		return []registry.CommandID{registry.AlphaOpenLoopWithoutCollisionDetection, registry.BetaOpenLoopWithoutCollisionDetection}
	case noCollision:
		return []registry.CommandID{registry.AlphaClosedLoopWithoutCollisionDetection, registry.BetaClosedLoopWithoutCollisionDetection}
	default:
		return []registry.CommandID{registry.AlphaClosedLoopCollisionDetection, registry.BetaClosedLoopCollisionDetection}
	}
}

func (f *FPS) collidedPositionerIDs() []uint16 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var ids []uint16
	for _, p := range f.positioners.All() {
		if !p.Disabled && p.Collided() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func mixedFirmware(versions []positioner.FirmwareVersion) bool {
	if len(versions) < 2 {
		return false
	}
	first := versions[0]
	for _, v := range versions[1:] {
		if v != first {
			return true
		}
	}
	return false
}

func containsID(ids []uint16, id uint16) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// UpdateStatus broadcasts GET_STATUS, updates every positioner's tracked
// status, re-derives the fleet status (spec.md §4.6.3) and publishes a
// transition to StatusChanges subscribers if it changed. Retries once on
// timeout (spec.md §5).
func (f *FPS) UpdateStatus(ctx context.Context) error {
	cmd, err := f.sendWithRetry(ctx, registry.GetStatus)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}

	f.mu.Lock()
	for _, reply := range cmd.Replies() {
		p := f.positioners.Get(reply.PositionerID)
		if p == nil {
			continue
		}
		st, ok := decodeStatus(reply.Data)
		if ok {
			p.UpdateStatus(st)
		}
	}
	newStatus := f.deriveFleetStatusLocked()
	changed := newStatus != f.status
	f.status = newStatus
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.SetFPSStatusBit("idle", newStatus.Has(positioner.FPSIdle))
		f.metrics.SetFPSStatusBit("moving", newStatus.Has(positioner.FPSMoving))
		f.metrics.SetFPSStatusBit("collided", newStatus.Has(positioner.FPSCollided))
		f.metrics.SetFPSStatusBit("locked", newStatus.Has(positioner.FPSLocked))
		f.metrics.SetPositionersConnected(f.positioners.Len())
	}
	if changed {
		f.statusBroadcast.publish(newStatus)
	}
	return nil
}

// deriveFleetStatusLocked re-derives the fleet status bitmask per spec.md
// §4.6.3. Caller must hold f.mu.
func (f *FPS) deriveFleetStatusLocked() positioner.FPSStatus {
	status := f.status &^ (positioner.FPSCollided | positioner.FPSIdle | positioner.FPSMoving)

	anyCollided := false
	allComplete := true
	for _, p := range f.positioners.All() {
		if p.Disabled {
			continue
		}
		if p.Collided() {
			anyCollided = true
		}
		if !p.Status.Has(positioner.DisplacementCompletedAll) {
			allComplete = false
		}
	}

	switch {
	case anyCollided:
		status |= positioner.FPSCollided
	case allComplete:
		status |= positioner.FPSIdle
	default:
		status |= positioner.FPSMoving
	}

	if f.locked {
		status |= positioner.FPSLocked
	} else {
		status &^= positioner.FPSLocked
	}
	return status
}

// UpdatePosition broadcasts GET_ACTUAL_POSITION and updates every
// positioner's tracked alpha/beta.
func (f *FPS) UpdatePosition(ctx context.Context) error {
	cmd, err := f.sendWithRetry(ctx, registry.GetActualPosition)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reply := range cmd.Replies() {
		p := f.positioners.Get(reply.PositionerID)
		if p == nil {
			continue
		}
		alpha, beta, ok := decodePosition(reply.Data)
		if ok {
			p.UpdatePosition(alpha, beta)
		}
	}
	return nil
}

// UpdateFirmwareVersion broadcasts GET_FIRMWARE_VERSION and records the
// reported version for every known positioner.
func (f *FPS) UpdateFirmwareVersion(ctx context.Context) error {
	cmd, err := f.sendWithRetry(ctx, registry.GetFirmwareVersion)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reply := range cmd.Replies() {
		p := f.positioners.Get(reply.PositionerID)
		if p == nil {
			continue
		}
		if fw, ok := decodeFirmware(reply.Data); ok {
			p.UpdateFirmwareVersion(fw)
		}
	}
	return nil
}

// sendWithRetry issues a safe, broadcastable, no-payload command and
// retries exactly once on timeout (spec.md §5).
func (f *FPS) sendWithRetry(ctx context.Context, commandID registry.CommandID) (*can.Command, error) {
	cmd, err := f.SendCommand(ctx, commandID, []uint16{0}, nil, f.cfg.FPS.InitialiseTimeouts, can.SendOptions{Quiescence: f.cfg.FPS.BroadcastQuiescence})
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, nil
	}
	if err := cmd.Wait(); err == can.ErrTimedOut {
		cmd, err = f.SendCommand(ctx, commandID, []uint16{0}, nil, f.cfg.FPS.InitialiseTimeouts, can.SendOptions{Quiescence: f.cfg.FPS.BroadcastQuiescence})
		if err != nil {
			return nil, err
		}
		if cmd != nil {
			_ = cmd.Wait()
		}
	}
	return cmd, nil
}

// Lock sets the fleet to locked, optionally stops trajectories, refreshes
// status, and notifies LockEvents (spec.md §4.6.4).
func (f *FPS) Lock(ctx context.Context, stopTrajectories bool, by []uint16, doWarn bool) error {
	if stopTrajectories {
		if err := f.StopTrajectory(ctx, false); err != nil {
			telemetry.Warnf("fps: stop_trajectory during lock failed: %v", err)
		}
	}

	f.mu.Lock()
	f.locked = true
	for _, id := range by {
		if !containsID(f.lockedBy, id) {
			f.lockedBy = append(f.lockedBy, id)
		}
	}
	lockedBy := append([]uint16(nil), f.lockedBy...)
	f.mu.Unlock()

	if err := f.UpdateStatus(ctx); err != nil {
		telemetry.Warnf("fps: update_status during lock failed: %v", err)
	}

	alpha, beta := false, false
	for _, id := range lockedBy {
		p := f.Get(id)
		if p == nil {
			continue
		}
		if p.Status.Has(positioner.CollisionA) {
			alpha = true
		}
		if p.Status.Has(positioner.CollisionB) {
			beta = true
		}
		break
	}
	axes := lockedAxesLabel(alpha, beta)

	if doWarn {
		telemetry.Warnf("fps: fleet locked by positioners %v (axes: %s)", lockedBy, axes)
	}

	event := LockEvent{Locked: true, LockedBy: lockedBy, LockedAxes: axes, LockedAlpha: alpha, LockedBeta: beta}
	select {
	case f.lockEvents <- event:
	default:
	}
	return nil
}

func lockedAxesLabel(alpha, beta bool) string {
	switch {
	case alpha && beta:
		return "both"
	case alpha:
		return "alpha"
	case beta:
		return "beta"
	default:
		return "none"
	}
}

// Unlock sends STOP_TRAJECTORY to clear collided flags, refreshes status,
// and re-locks if any positioner still reports collision (spec.md §4.6.4).
// force bypasses the collision re-check.
func (f *FPS) Unlock(ctx context.Context, force bool) error {
	if _, err := f.dispatcher.Send(ctx, registry.StopTrajectory, []uint16{0}, nil, f.cfg.FPS.InitialiseTimeouts, can.SendOptions{Now: true}); err != nil {
		return fmt.Errorf("fps: unlock stop_trajectory: %w", err)
	}

	if err := f.UpdateStatus(ctx); err != nil {
		telemetry.Warnf("fps: update_status during unlock failed: %v", err)
	}

	if !force {
		stillCollided := f.collidedPositionerIDs()
		if len(stillCollided) > 0 {
			_ = f.Lock(ctx, false, stillCollided, true)
			return fmt.Errorf("fps: still collided on positioners %v", stillCollided)
		}
	}

	f.mu.Lock()
	f.locked = false
	f.lockedBy = nil
	f.mu.Unlock()

	if err := removeLockFile(); err != nil {
		telemetry.Warnf("fps: removing lock file during unlock failed: %v", err)
	}

	select {
	case f.lockEvents <- (LockEvent{Locked: false}):
	default:
	}
	return nil
}

// StopTrajectory runs the soft (SEND_TRAJECTORY_ABORT) or hard
// (STOP_TRAJECTORY) variant, both fire-and-forget broadcasts, then
// cancels any in-flight move commands and lets positioners settle
// (spec.md §4.6.5).
func (f *FPS) StopTrajectory(ctx context.Context, hard bool) error {
	commandID := registry.SendTrajectoryAbort
	if hard {
		commandID = registry.StopTrajectory
	}

	if f.dispatcher == nil {
		return ErrCANNotStarted
	}
	if _, err := f.dispatcher.Send(ctx, commandID, []uint16{0}, nil, 0, can.SendOptions{Now: true}); err != nil {
		return fmt.Errorf("fps: stop_trajectory: %w", err)
	}
	f.dispatcher.CancelMoveCommands()

	time.Sleep(500 * time.Millisecond)
	return nil
}

// Goto issues per-positioner GOTO_ALPHA/GOTO_BETA commands, awaits
// completion, then always refreshes status and position, even on error
// (spec.md §4.6.6).
func (f *FPS) Goto(ctx context.Context, positions map[uint16]Position, speed float64, relative bool) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(positions))

	for pid, target := range positions {
		p := f.Get(pid)
		if p == nil || p.Disabled {
			continue
		}
		wg.Add(1)
		go func(pid uint16, target Position) {
			defer wg.Done()
			if err := f.gotoOne(ctx, pid, target, speed, relative); err != nil {
				errCh <- err
			}
		}(pid, target)
	}
	wg.Wait()
	close(errCh)

	if err := f.UpdateStatus(ctx); err != nil {
		telemetry.Warnf("fps: update_status after goto failed: %v", err)
	}
	if err := f.UpdatePosition(ctx); err != nil {
		telemetry.Warnf("fps: update_position after goto failed: %v", err)
	}

	for err := range errCh {
		return err // first failure reported, matching initialisePositioners
	}
	return nil
}

func (f *FPS) gotoOne(ctx context.Context, pid uint16, target Position, speed float64, relative bool) error {
	alpha, beta := target.Alpha, target.Beta
	if relative {
		if p := f.Get(pid); p != nil && p.Alpha != nil && p.Beta != nil {
			alpha += *p.Alpha
			beta += *p.Beta
		}
	}

	if f.cfg.SafeMode && beta < MinBeta {
		telemetry.Warnf("fps: positioner %d requested beta %.2f below safe minimum %.2f", pid, beta, MinBeta)
	}

	cmdA, err := f.SendCommand(ctx, registry.GotoAlpha, []uint16{pid}, encodeGotoPayload(alpha, speed), f.cfg.FPS.InitialiseTimeouts, can.SendOptions{})
	if err != nil {
		return err
	}
	cmdB, err := f.SendCommand(ctx, registry.GotoBeta, []uint16{pid}, encodeGotoPayload(beta, speed), f.cfg.FPS.InitialiseTimeouts, can.SendOptions{})
	if err != nil {
		return err
	}
	if cmdA != nil {
		if err := cmdA.Wait(); err != nil {
			return err
		}
	}
	if cmdB != nil {
		if err := cmdB.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// Home issues HOME_ALPHA and/or HOME_BETA for pid.
func (f *FPS) Home(ctx context.Context, pid uint16, alpha, beta bool) error {
	if alpha {
		cmd, err := f.SendCommand(ctx, registry.HomeAlpha, []uint16{pid}, nil, f.cfg.FPS.InitialiseTimeouts, can.SendOptions{})
		if err != nil {
			return err
		}
		if cmd != nil {
			if err := cmd.Wait(); err != nil {
				return err
			}
		}
	}
	if beta {
		cmd, err := f.SendCommand(ctx, registry.HomeBeta, []uint16{pid}, nil, f.cfg.FPS.InitialiseTimeouts, can.SendOptions{})
		if err != nil {
			return err
		}
		if cmd != nil {
			if err := cmd.Wait(); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetPosition issues SET_ACTUAL_POSITION for pid, bypassing motion (used to
// seed an offline/disabled positioner's tracked coordinates).
func (f *FPS) SetPosition(ctx context.Context, pid uint16, alpha, beta float64) error {
	payload := append(encodeAngle(alpha), encodeAngle(beta)...)
	cmd, err := f.SendCommand(ctx, registry.SetActualPosition, []uint16{pid}, payload, f.cfg.FPS.InitialiseTimeouts, can.SendOptions{})
	if err != nil {
		return err
	}
	if cmd != nil {
		if err := cmd.Wait(); err != nil {
			return err
		}
	}
	if p := f.Get(pid); p != nil {
		p.UpdatePosition(alpha, beta)
	}
	return nil
}

// StatusReport is a structured read-only snapshot of the fleet (spec.md §9
// "ReportStatus"), matching fps.py's report_status.
type StatusReport struct {
	FleetStatus positioner.FPSStatus
	Locked      bool
	LockedBy    []uint16
	Positioners map[uint16]PositionerReport
}

// PositionerReport is one positioner's entry in a StatusReport.
type PositionerReport struct {
	Status   positioner.PositionerStatus
	Firmware *positioner.FirmwareVersion
	Alpha    *float64
	Beta     *float64
	Disabled bool
}

// ReportStatus returns a structured snapshot of every positioner's
// position/status/firmware (fps.py's report_status).
func (f *FPS) ReportStatus() StatusReport {
	f.mu.RLock()
	defer f.mu.RUnlock()

	report := StatusReport{
		FleetStatus: f.status,
		Locked:      f.locked,
		LockedBy:    append([]uint16(nil), f.lockedBy...),
		Positioners: make(map[uint16]PositionerReport, f.positioners.Len()),
	}
	for _, p := range f.positioners.All() {
		report.Positioners[p.ID] = PositionerReport{
			Status:   p.Status,
			Firmware: p.Firmware,
			Alpha:    p.Alpha,
			Beta:     p.Beta,
			Disabled: p.Disabled,
		}
	}
	return report
}

// Shutdown cancels pollers, optionally stops trajectories (skipped when the
// fleet is in bootloader mode — spec.md §9 Open Question 1), removes the
// on-disk lock sentinel and discards the singleton entry.
func (f *FPS) Shutdown(ctx context.Context) error {
	f.pollers.Stop()

	if !f.anyBootloader() {
		if err := f.StopTrajectory(ctx, false); err != nil {
			telemetry.Warnf("fps: stop_trajectory during shutdown failed: %v", err)
		}
	}

	if err := removeLockFile(); err != nil {
		telemetry.Warnf("fps: removing lock file during shutdown failed: %v", err)
	}

	Discard(f.name)
	return nil
}

func (f *FPS) anyBootloader() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.positioners.All() {
		if p.IsBootloader() {
			return true
		}
	}
	return false
}
