// Package registry holds the static CAN command table for the focal plane
// system: one entry per CommandID describing its reply arity and the
// dispatch flags (safe/move/bootloader/broadcastable) that the FPS state
// machine checks before a Command is ever built.
package registry

import "fmt"

// CommandID identifies a CAN command understood by the positioner firmware.
type CommandID uint8

// The command set implemented by the positioner firmware that this fleet
// controller actually drives. Values are arbitrary but stable identifiers;
// the real firmware command table is larger, this is the subset the core
// exercises.
const (
	GetID CommandID = iota + 1
	GetFirmwareVersion
	GetStatus
	GetActualPosition
	SetActualPosition
	GotoAlpha
	GotoBeta
	HomeAlpha
	HomeBeta
	StartTrajectory
	TrajectoryDataAlpha
	TrajectoryDataBeta
	TrajectoryEnd
	SendTrajectoryAbort
	StopTrajectory
	AlphaClosedLoopCollisionDetection
	BetaClosedLoopCollisionDetection
	AlphaClosedLoopWithoutCollisionDetection
	BetaClosedLoopWithoutCollisionDetection
	AlphaOpenLoopWithoutCollisionDetection
	BetaOpenLoopWithoutCollisionDetection
)

var names = map[CommandID]string{
	GetID:                                    "GET_ID",
	GetFirmwareVersion:                       "GET_FIRMWARE_VERSION",
	GetStatus:                                "GET_STATUS",
	GetActualPosition:                        "GET_ACTUAL_POSITION",
	SetActualPosition:                        "SET_ACTUAL_POSITION",
	GotoAlpha:                                "GOTO_ALPHA",
	GotoBeta:                                 "GOTO_BETA",
	HomeAlpha:                                "HOME_ALPHA",
	HomeBeta:                                 "HOME_BETA",
	StartTrajectory:                          "START_TRAJECTORY",
	TrajectoryDataAlpha:                      "TRAJECTORY_DATA_ALPHA",
	TrajectoryDataBeta:                       "TRAJECTORY_DATA_BETA",
	TrajectoryEnd:                            "TRAJECTORY_END",
	SendTrajectoryAbort:                      "SEND_TRAJECTORY_ABORT",
	StopTrajectory:                           "STOP_TRAJECTORY",
	AlphaClosedLoopCollisionDetection:        "ALPHA_CLOSED_LOOP_COLLISION_DETECTION",
	BetaClosedLoopCollisionDetection:         "BETA_CLOSED_LOOP_COLLISION_DETECTION",
	AlphaClosedLoopWithoutCollisionDetection: "ALPHA_CLOSED_LOOP_WITHOUT_COLLISION_DETECTION",
	BetaClosedLoopWithoutCollisionDetection:  "BETA_CLOSED_LOOP_WITHOUT_COLLISION_DETECTION",
	AlphaOpenLoopWithoutCollisionDetection:   "ALPHA_OPEN_LOOP_WITHOUT_COLLISION_DETECTION",
	BetaOpenLoopWithoutCollisionDetection:    "BETA_OPEN_LOOP_WITHOUT_COLLISION_DETECTION",
}

// String implements fmt.Stringer.
func (c CommandID) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("CommandID(%d)", uint8(c))
}

// Entry describes the static properties of a CommandID.
type Entry struct {
	// Safe commands may be sent while the FPS is locked.
	Safe bool
	// Move commands cause mechanical motion; rejected while the fleet moves.
	Move bool
	// Bootloader commands may be sent to a positioner stuck in bootloader
	// mode (or broadcast while any positioner is in bootloader mode).
	Bootloader bool
	// Broadcastable commands accept positioner_id == 0.
	Broadcastable bool
	// RepliesPerPositioner is the number of replies expected from each
	// addressed positioner; 0 means "unknown, rely on quiescence".
	RepliesPerPositioner int
}

var table = map[CommandID]Entry{
	GetID:              {Broadcastable: true, Safe: true, RepliesPerPositioner: 1},
	GetFirmwareVersion: {Broadcastable: true, Safe: true, Bootloader: true, RepliesPerPositioner: 1},
	GetStatus:          {Broadcastable: true, Safe: true, RepliesPerPositioner: 1},
	GetActualPosition:  {Broadcastable: true, Safe: true, RepliesPerPositioner: 1},
	SetActualPosition:  {Safe: true, RepliesPerPositioner: 1},

	GotoAlpha: {Move: true, RepliesPerPositioner: 1},
	GotoBeta:  {Move: true, RepliesPerPositioner: 1},
	HomeAlpha: {Move: true, RepliesPerPositioner: 1},
	HomeBeta:  {Move: true, RepliesPerPositioner: 1},

	StartTrajectory:     {Move: true, RepliesPerPositioner: 1},
	TrajectoryDataAlpha: {Move: true, RepliesPerPositioner: 0}, // one per chunk
	TrajectoryDataBeta:  {Move: true, RepliesPerPositioner: 0}, // one per chunk
	TrajectoryEnd:       {Move: true, RepliesPerPositioner: 1},

	SendTrajectoryAbort: {Safe: true, Broadcastable: true, RepliesPerPositioner: 0},
	StopTrajectory:      {Safe: true, Broadcastable: true, RepliesPerPositioner: 0},

	AlphaClosedLoopCollisionDetection:        {RepliesPerPositioner: 1},
	BetaClosedLoopCollisionDetection:         {RepliesPerPositioner: 1},
	AlphaClosedLoopWithoutCollisionDetection: {RepliesPerPositioner: 1},
	BetaClosedLoopWithoutCollisionDetection:  {RepliesPerPositioner: 1},
	AlphaOpenLoopWithoutCollisionDetection:   {RepliesPerPositioner: 1},
	BetaOpenLoopWithoutCollisionDetection:    {RepliesPerPositioner: 1},
}

// Lookup returns the static Entry for id, or ok == false if id is unknown.
func Lookup(id CommandID) (Entry, bool) {
	e, ok := table[id]
	return e, ok
}

// MustLookup is like Lookup but panics for an unknown id. It is only safe to
// call with a constant declared in this package.
func MustLookup(id CommandID) Entry {
	e, ok := table[id]
	if !ok {
		panic(fmt.Sprintf("registry: unknown command id %d", id))
	}
	return e
}
