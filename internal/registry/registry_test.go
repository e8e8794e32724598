package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringReturnsKnownNames(t *testing.T) {
	assert.Equal(t, "GET_ID", GetID.String())
	assert.Equal(t, "TRAJECTORY_END", TrajectoryEnd.String())
}

func TestStringFallsBackForUnknownID(t *testing.T) {
	assert.Equal(t, "CommandID(255)", CommandID(255).String())
}

func TestLookupKnownAndUnknown(t *testing.T) {
	entry, ok := Lookup(GotoAlpha)
	assert.True(t, ok)
	assert.True(t, entry.Move)
	assert.False(t, entry.Safe)

	_, ok = Lookup(CommandID(255))
	assert.False(t, ok)
}

func TestMustLookupPanicsOnUnknownID(t *testing.T) {
	assert.Panics(t, func() {
		MustLookup(CommandID(255))
	})
}

func TestSafeCommandsAreNotMoveCommands(t *testing.T) {
	for _, id := range []CommandID{GetID, GetStatus, GetActualPosition, StopTrajectory, SendTrajectoryAbort} {
		entry := MustLookup(id)
		assert.True(t, entry.Safe, "%s should be safe", id)
		assert.False(t, entry.Move, "%s should not be a move command", id)
	}
}

func TestMoveCommandsAreNotSafe(t *testing.T) {
	for _, id := range []CommandID{GotoAlpha, GotoBeta, HomeAlpha, HomeBeta, StartTrajectory, TrajectoryEnd} {
		entry := MustLookup(id)
		assert.True(t, entry.Move, "%s should be a move command", id)
		assert.False(t, entry.Safe, "%s should not be safe", id)
	}
}

func TestOnlyGetFirmwareVersionIsBootloaderSafe(t *testing.T) {
	assert.True(t, MustLookup(GetFirmwareVersion).Bootloader)
	assert.False(t, MustLookup(GetStatus).Bootloader)
	assert.False(t, MustLookup(GotoAlpha).Bootloader)
}

func TestBroadcastableCommands(t *testing.T) {
	for _, id := range []CommandID{GetID, GetFirmwareVersion, GetStatus, GetActualPosition, SendTrajectoryAbort, StopTrajectory} {
		assert.True(t, MustLookup(id).Broadcastable, "%s should be broadcastable", id)
	}
	for _, id := range []CommandID{GotoAlpha, GotoBeta, SetActualPosition} {
		assert.False(t, MustLookup(id).Broadcastable, "%s should not be broadcastable", id)
	}
}
