package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "daemon.lock")
	pidPath := filepath.Join(dir, "daemon.pid")

	lock, err := Acquire(lockPath, pidPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	pid, ok := ReadPID(pidPath)
	if !ok || pid != os.Getpid() {
		t.Errorf("ReadPID = %d, %v; want own pid", pid, ok)
	}
	got, running := Running(pidPath)
	if !running || got != os.Getpid() {
		t.Errorf("Running = %d, %v", got, running)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("pid file still present after Release")
	}
	if _, running := Running(pidPath); running {
		t.Error("Running = true after Release")
	}
}

func TestSecondAcquireFails(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "daemon.lock")
	pidPath := filepath.Join(dir, "daemon.pid")

	lock, err := Acquire(lockPath, pidPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer func() { _ = lock.Release() }()

	_, err = Acquire(lockPath, pidPath)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Acquire err = %v, want ErrAlreadyRunning", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "daemon.lock")
	pidPath := filepath.Join(dir, "daemon.pid")

	lock, err := Acquire(lockPath, pidPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	lock2, err := Acquire(lockPath, pidPath)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	_ = lock2.Release()
}

func TestReadPIDMalformed(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "daemon.pid")

	if _, ok := ReadPID(pidPath); ok {
		t.Error("missing pid file reported ok")
	}
	if err := os.WriteFile(pidPath, []byte("not-a-pid\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, ok := ReadPID(pidPath); ok {
		t.Error("malformed pid file reported ok")
	}
}

func TestProcessAlive(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Error("own process reported dead")
	}
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Error("non-positive pid reported alive")
	}
}
