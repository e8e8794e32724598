package fps

import (
	"fmt"
	"os"
	"path/filepath"
)

// LockFilePath is the on-disk sentinel whose presence means the fleet is
// locked (spec.md §5 "Shared resources", §6 "Persistent state"). It acts as
// a process-wide mutex: created by Start, removed by Unlock and Shutdown.
const LockFilePath = "/var/tmp/sdss/jaeger.lock"

// ErrAlreadyLockedOnDisk is returned by Start when use_lock is set and
// LockFilePath already exists from a previous, uncleanly terminated run.
var ErrAlreadyLockedOnDisk = fmt.Errorf("fps: %s exists from a previous run", LockFilePath)

func lockFileExists() bool {
	_, err := os.Stat(LockFilePath)
	return err == nil
}

func createLockFile() error {
	if err := os.MkdirAll(filepath.Dir(LockFilePath), 0o755); err != nil {
		return fmt.Errorf("fps: create lock directory: %w", err)
	}
	f, err := os.OpenFile(LockFilePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("fps: create lock file: %w", err)
	}
	return f.Close()
}

func removeLockFile() error {
	if err := os.Remove(LockFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fps: remove lock file: %w", err)
	}
	return nil
}
