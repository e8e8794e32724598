package fps

import (
	"fmt"
	"time"

	"github.com/albireox/jaeger-core/internal/canframe"
	"github.com/albireox/jaeger-core/internal/registry"
)

// ErrCANNotStarted is returned by SendCommand and StopTrajectory when the
// FPS has no dispatcher attached.
var ErrCANNotStarted = fmt.Errorf("fps: CAN dispatcher not started")

// ErrBusDisconnected signals that a configured bus interface is not
// reachable.
var ErrBusDisconnected = fmt.Errorf("fps: bus disconnected")

// TimedOut reports that a command addressed to pids did not complete within
// elapsed.
type TimedOut struct {
	CommandID registry.CommandID
	Pids      []uint16
	Elapsed   time.Duration
}

func (e *TimedOut) Error() string {
	return fmt.Sprintf("fps: %s timed out after %s for positioners %v", e.CommandID, e.Elapsed, e.Pids)
}

// DecodeError wraps a canframe decode failure observed by the FPS layer.
type DecodeError struct {
	Reason canframe.DecodeReason
	Raw    []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fps: frame decode error (%s): % x", e.Reason, e.Raw)
}

// ErrFPSLocked is returned by any non-safe command while the fleet is
// locked (spec.md §4.6.4).
var ErrFPSLocked = fmt.Errorf("fps: fleet is locked")

// ErrFPSMoving is returned by any move command issued while the fleet is
// already moving (spec.md §4.6 send_command preconditions).
var ErrFPSMoving = fmt.Errorf("fps: fleet is moving")

// ErrInBootloader is returned by any non-bootloader command while any
// addressed positioner is in bootloader mode.
var ErrInBootloader = fmt.Errorf("fps: one or more positioners are in bootloader mode")

// ErrDisabledInvolved is returned when a command addresses a disabled
// positioner explicitly (rather than via broadcast, which silently skips
// disabled positioners).
var ErrDisabledInvolved = fmt.Errorf("fps: command explicitly addresses a disabled positioner")

// UnknownPositioner reports that ID is not tracked by the FPS.
type UnknownPositioner struct {
	ID uint16
}

func (e *UnknownPositioner) Error() string {
	return fmt.Sprintf("fps: unknown positioner %d", e.ID)
}

// PositionerInitFailed reports that a positioner failed to initialise.
type PositionerInitFailed struct {
	ID    uint16
	Cause error
}

func (e *PositionerInitFailed) Error() string {
	return fmt.Sprintf("fps: positioner %d failed to initialise: %v", e.ID, e.Cause)
}

func (e *PositionerInitFailed) Unwrap() error { return e.Cause }

// CollisionDetected reports a collision observed on the given positioners,
// triggering a lock (spec.md §4.6.4).
type CollisionDetected struct {
	IDs []uint16
}

func (e *CollisionDetected) Error() string {
	return fmt.Sprintf("fps: collision detected on positioners %v", e.IDs)
}

// TrajectoryError reports a send_trajectory failure, naming which
// positioners did not confirm receipt of their full trajectory.
type TrajectoryError struct {
	Partial []uint16
}

func (e *TrajectoryError) Error() string {
	return fmt.Sprintf("fps: trajectory upload incomplete for positioners %v", e.Partial)
}

// ErrInternalInvariant reports a condition that should be unreachable under
// the FPS's own concurrency guarantees.
var ErrInternalInvariant = fmt.Errorf("fps: internal invariant violated")
