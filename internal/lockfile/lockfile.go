// Package lockfile enforces the at-most-one-daemon-per-user rule with a pid
// file plus a flock, avoiding the TOCTOU race where two concurrent starts
// both pass a pid-file check before either writes it.
package lockfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned when another live daemon holds the lock.
var ErrAlreadyRunning = fmt.Errorf("daemon already running")

// DaemonLock couples the flock with the pid file it guards.
type DaemonLock struct {
	fl      *flock.Flock
	pidPath string
}

// Acquire takes the daemon lock and writes the pid file. When the lock is
// held elsewhere it reports ErrAlreadyRunning with the holder's pid if the
// pid file is readable.
func Acquire(lockPath, pidPath string) (*DaemonLock, error) {
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring daemon lock: %w", err)
	}
	if !locked {
		if pid, ok := ReadPID(pidPath); ok {
			return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		return nil, ErrAlreadyRunning
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("writing pid file: %w", err)
	}
	return &DaemonLock{fl: fl, pidPath: pidPath}, nil
}

// Release removes the pid file and drops the flock.
func (l *DaemonLock) Release() error {
	_ = os.Remove(l.pidPath)
	return l.fl.Unlock()
}

// ReadPID parses the pid file. Returns ok=false when absent or malformed.
func ReadPID(pidPath string) (int, bool) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// ProcessAlive probes a pid with signal 0.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	// EPERM means the process exists but belongs to another user.
	return err == nil || err == unix.EPERM
}

// Running reports whether a live daemon is recorded in the pid file.
func Running(pidPath string) (int, bool) {
	pid, ok := ReadPID(pidPath)
	if !ok {
		return 0, false
	}
	if !ProcessAlive(pid) {
		return 0, false
	}
	return pid, true
}
