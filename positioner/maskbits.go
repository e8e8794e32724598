// Package positioner holds the per-device data model: the FPSStatus/
// PositionerStatus bit-flag enums and the Positioner type tracked by the
// FPS aggregate.
package positioner

import "strings"

// FPSStatus is a bit set describing the fleet as a whole (spec.md §3).
type FPSStatus uint32

const (
	FPSIdle FPSStatus = 1 << iota
	FPSMoving
	FPSCollided
	FPSLocked
	FPSBootloader
	FPSInitialising
	FPSTemperatureNormal
	FPSUnknown
)

var fpsNames = []struct {
	bit  FPSStatus
	name string
}{
	{FPSIdle, "IDLE"},
	{FPSMoving, "MOVING"},
	{FPSCollided, "COLLIDED"},
	{FPSLocked, "LOCKED"},
	{FPSBootloader, "BOOTLOADER"},
	{FPSInitialising, "INITIALISING"},
	{FPSTemperatureNormal, "TEMPERATURE_NORMAL"},
	{FPSUnknown, "UNKNOWN"},
}

// String renders the set bits joined by '|', e.g. "MOVING|TEMPERATURE_NORMAL".
func (s FPSStatus) String() string {
	if s == 0 {
		return "NONE"
	}
	var parts []string
	for _, n := range fpsNames {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Has reports whether every bit in mask is set.
func (s FPSStatus) Has(mask FPSStatus) bool { return s&mask == mask }

// Any reports whether any bit in mask is set.
func (s FPSStatus) Any(mask FPSStatus) bool { return s&mask != 0 }

// PositionerStatus is a bit set describing one positioner's firmware state
// (spec.md §3), matching the firmware's GET_STATUS reply bit layout.
type PositionerStatus uint32

const (
	SystemInitialized PositionerStatus = 1 << iota
	ConfigChanged
	BSMBErrorA
	BSMBErrorB
	CollisionA
	CollisionB
	ClosedLoopA
	ClosedLoopB
	PrecisionMoveA
	PrecisionMoveB
	DisplacementCompletedA
	DisplacementCompletedB
	DisplacementCompletedAll
	CollisionDetectAlertA
	CollisionDetectAlertB
	Moving
	PositionRestored
	LowPower
	CalibrationSaved
)

var posNames = []struct {
	bit  PositionerStatus
	name string
}{
	{SystemInitialized, "SYSTEM_INITIALIZED"},
	{ConfigChanged, "CONFIG_CHANGED"},
	{BSMBErrorA, "BSMB_ERROR_ALPHA"},
	{BSMBErrorB, "BSMB_ERROR_BETA"},
	{CollisionA, "COLLISION_ALPHA"},
	{CollisionB, "COLLISION_BETA"},
	{ClosedLoopA, "CLOSED_LOOP_ALPHA"},
	{ClosedLoopB, "CLOSED_LOOP_BETA"},
	{PrecisionMoveA, "PRECISE_MOVE_ALPHA"},
	{PrecisionMoveB, "PRECISE_MOVE_BETA"},
	{DisplacementCompletedA, "DISPLACEMENT_COMPLETED_ALPHA"},
	{DisplacementCompletedB, "DISPLACEMENT_COMPLETED_BETA"},
	{DisplacementCompletedAll, "DISPLACEMENT_COMPLETED"},
	{CollisionDetectAlertA, "COLLISION_DETECT_ALERT_ALPHA"},
	{CollisionDetectAlertB, "COLLISION_DETECT_ALERT_BETA"},
	{Moving, "MOVING"},
	{PositionRestored, "POSITION_RESTORED"},
	{LowPower, "LOW_POWER"},
	{CalibrationSaved, "CALIBRATION_SAVED"},
}

// String renders the set bits joined by '|'.
func (s PositionerStatus) String() string {
	if s == 0 {
		return "NONE"
	}
	var parts []string
	for _, n := range posNames {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Has reports whether every bit in mask is set.
func (s PositionerStatus) Has(mask PositionerStatus) bool { return s&mask == mask }

// Any reports whether any bit in mask is set.
func (s PositionerStatus) Any(mask PositionerStatus) bool { return s&mask != 0 }

// Collided reports whether either arm's collision bit is set.
func (s PositionerStatus) Collided() bool { return s.Any(CollisionA | CollisionB) }
