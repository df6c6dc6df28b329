package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestIsDaemonRunning_NotRunning(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "tray.pid")

	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Errorf("IsDaemonRunning() error = %v, want nil", err)
	}
	if running {
		t.Error("IsDaemonRunning() = true, want false for non-existent PID file")
	}
}

func TestIsDaemonRunning_WithCurrentProcess(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "tray.pid")
	if err := WritePIDFile(pidFile, os.Getpid()); err != nil {
		t.Fatalf("WritePIDFile() error = %v", err)
	}

	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Errorf("IsDaemonRunning() error = %v, want nil", err)
	}
	if !running {
		t.Error("IsDaemonRunning() = false, want true for current process")
	}
}

func TestIsDaemonRunning_WithDeadProcess(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "tray.pid")

	// A PID this high is not in use on test hosts.
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(99999999)+"\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Errorf("IsDaemonRunning() error = %v, want nil", err)
	}
	if running {
		t.Error("IsDaemonRunning() = true, want false for dead process")
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("stale PID file was not removed")
	}
}

func TestIsDaemonRunning_InvalidPID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "tray.pid")
	if err := os.WriteFile(pidFile, []byte("not-a-number\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Errorf("IsDaemonRunning() error = %v, want nil for invalid PID", err)
	}
	if running {
		t.Error("IsDaemonRunning() = true, want false for invalid PID")
	}
}

func TestStopDaemon_NotRunning(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "tray.pid")

	err := StopDaemon(pidFile)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("StopDaemon() error = %v, want ErrDaemonNotRunning", err)
	}
}

func TestStopDaemon_InvalidPID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "tray.pid")
	if err := os.WriteFile(pidFile, []byte("invalid\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	if err := StopDaemon(pidFile); err == nil {
		t.Error("StopDaemon() expected error for invalid PID, got nil")
	}
}

func TestRunDaemon_ManagesPIDFile(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "tray.pid")

	err := RunDaemon(pidFile, func(stop <-chan struct{}) error {
		pid, err := ReadPIDFile(pidFile)
		if err != nil {
			t.Errorf("ReadPIDFile() error = %v", err)
		}
		if pid != os.Getpid() {
			t.Errorf("PID file = %d, want %d", pid, os.Getpid())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunDaemon() error = %v", err)
	}

	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("PID file was not removed after run returned")
	}
}

func TestRunDaemon_PropagatesRunError(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "tray.pid")
	want := errors.New("tray failed")

	err := RunDaemon(pidFile, func(<-chan struct{}) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("RunDaemon() error = %v, want %v", err, want)
	}
}

func TestAcquirePIDLock(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), "switch.lock")

	ok, err := AcquirePIDLock(lockFile)
	if err != nil || !ok {
		t.Fatalf("AcquirePIDLock() = %v, %v, want true, nil", ok, err)
	}
	pid, err := ReadPIDFile(lockFile)
	if err != nil || pid != os.Getpid() {
		t.Errorf("lock holds PID %d (err %v), want %d", pid, err, os.Getpid())
	}

	ok, err = AcquirePIDLock(lockFile)
	if err != nil {
		t.Fatalf("AcquirePIDLock() second call error = %v", err)
	}
	if ok {
		t.Error("AcquirePIDLock() = true while the lock is held")
	}

	ReleasePIDLock(lockFile)
	if _, err := os.Stat(lockFile); !os.IsNotExist(err) {
		t.Error("ReleasePIDLock() left the lock file")
	}

	ok, err = AcquirePIDLock(lockFile)
	if err != nil || !ok {
		t.Errorf("AcquirePIDLock() after release = %v, %v, want true, nil", ok, err)
	}
	ReleasePIDLock(lockFile)

	entries, _ := os.ReadDir(filepath.Dir(lockFile))
	if len(entries) != 0 {
		t.Errorf("lock directory has %d leftover entries", len(entries))
	}
}

func TestAcquirePIDLock_TakesOverStaleLock(t *testing.T) {
	dir := t.TempDir()
	for _, content := range []string{strconv.Itoa(99999999) + "\n", "garbage\n"} {
		lockFile := filepath.Join(dir, "switch.lock")
		if err := os.WriteFile(lockFile, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write lock file: %v", err)
		}

		ok, err := AcquirePIDLock(lockFile)
		if err != nil || !ok {
			t.Errorf("AcquirePIDLock() over %q = %v, %v, want true, nil", content, ok, err)
		}
		ReleasePIDLock(lockFile)
	}
}

func TestReleasePIDLock_LeavesOtherHolder(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), "switch.lock")
	if err := WritePIDFile(lockFile, 99999999); err != nil {
		t.Fatalf("WritePIDFile() error = %v", err)
	}

	ReleasePIDLock(lockFile)
	if _, err := os.Stat(lockFile); err != nil {
		t.Errorf("ReleasePIDLock() removed a lock it does not hold: %v", err)
	}
}
