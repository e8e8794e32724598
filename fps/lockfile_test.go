package fps

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albireox/jaeger-core/can"
)

// Lock-file tests touch the real LockFilePath on disk, so they do not run
// in parallel with each other and always clean up after themselves.

func TestStartFailsWhenLockFileAlreadyExists(t *testing.T) {
	require.NoError(t, removeLockFile())
	require.NoError(t, createLockFile())
	t.Cleanup(func() { _ = removeLockFile() })

	fleet := can.NewVirtualFleet(1)
	bus := can.NewVirtualBus("virtual", fleet.Reply)
	dispatcher := can.NewCANDispatcher([]can.BusInterface{bus}, nil)
	t.Cleanup(func() { _ = dispatcher.Close() })

	cfg := testConfig()
	cfg.FPS.UseLock = true
	f := New("lockfile-test", dispatcher, cfg, nil)

	err := f.Start(context.Background(), false)
	assert.ErrorIs(t, err, ErrAlreadyLockedOnDisk)
}

func TestStartCreatesAndShutdownRemovesLockFile(t *testing.T) {
	require.NoError(t, removeLockFile())

	fleet := can.NewVirtualFleet(1)
	bus := can.NewVirtualBus("virtual", fleet.Reply)
	dispatcher := can.NewCANDispatcher([]can.BusInterface{bus}, nil)
	t.Cleanup(func() { _ = dispatcher.Close() })

	cfg := testConfig()
	cfg.FPS.UseLock = true
	f := New("lockfile-test-2", dispatcher, cfg, nil)

	require.NoError(t, f.Start(context.Background(), false))
	assert.True(t, lockFileExists())

	require.NoError(t, f.Shutdown(context.Background()))
	assert.False(t, lockFileExists())
}

func TestUnlockRemovesLockFile(t *testing.T) {
	require.NoError(t, removeLockFile())
	require.NoError(t, createLockFile())
	t.Cleanup(func() { _ = removeLockFile() })

	fleet := can.NewVirtualFleet(1)
	bus := can.NewVirtualBus("virtual", fleet.Reply)
	dispatcher := can.NewCANDispatcher([]can.BusInterface{bus}, nil)
	t.Cleanup(func() { _ = dispatcher.Close() })

	f := New("lockfile-test-3", dispatcher, testConfig(), nil)
	require.NoError(t, f.Initialise(context.Background(), false))
	require.NoError(t, f.Lock(context.Background(), false, []uint16{1}, false))

	require.NoError(t, f.Unlock(context.Background(), true))
	_, err := os.Stat(LockFilePath)
	assert.True(t, os.IsNotExist(err))
}
