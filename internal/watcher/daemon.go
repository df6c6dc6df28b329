package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	gops "github.com/shirou/gopsutil/v3/process"

	"github.com/devalexanderdaza/antigravity-agent/internal/process"
)

// ErrDaemonNotRunning is returned when no live daemon owns the PID file.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StartDaemon re-executes the current binary with args as a detached
// background process. Its PID is written to pidFile and its output is
// appended to logFile.
func StartDaemon(pidFile, logFile string, args ...string) (int, error) {
	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		return 0, fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return 0, fmt.Errorf("daemon already running (PID file: %s)", pidFile)
	}

	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, args...)
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.Stdin = nil
	process.Detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon process: %w", err)
	}

	pid := cmd.Process.Pid
	if err := WritePIDFile(pidFile, pid); err != nil {
		cmd.Process.Kill()
		return 0, err
	}

	if err := cmd.Process.Release(); err != nil {
		return 0, fmt.Errorf("failed to release process: %w", err)
	}
	return pid, nil
}

// RunDaemon records the current PID in pidFile and calls run. stop is
// closed on SIGTERM or SIGINT; run must return soon after. The PID file is
// removed when run returns.
func RunDaemon(pidFile string, run func(stop <-chan struct{}) error) error {
	if err := WritePIDFile(pidFile, os.Getpid()); err != nil {
		return err
	}
	defer RemovePIDFile(pidFile)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	stop := make(chan struct{})
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "received signal %v, shutting down...\n", sig)
			close(stop)
		case <-done:
		}
	}()

	return run(stop)
}

// StopDaemon asks the daemon recorded in pidFile to terminate.
func StopDaemon(pidFile string) error {
	pid, err := ReadPIDFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w (PID file not found)", ErrDaemonNotRunning)
		}
		return err
	}

	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		RemovePIDFile(pidFile)
		return fmt.Errorf("%w (process %d not found)", ErrDaemonNotRunning, pid)
	}
	if err := p.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate process %d: %w", pid, err)
	}
	return nil
}

// IsDaemonRunning reports whether the PID in pidFile belongs to a live
// process. A stale PID file is removed.
func IsDaemonRunning(pidFile string) (bool, error) {
	pid, err := ReadPIDFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return false, nil
		}
		return false, err
	}

	alive, err := gops.PidExists(int32(pid))
	if err != nil || !alive {
		RemovePIDFile(pidFile)
		return false, nil
	}
	return true, nil
}

// ReadPIDFile returns the PID stored in pidFile.
func ReadPIDFile(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	return pid, nil
}

// WritePIDFile stores pid in pidFile.
func WritePIDFile(pidFile string, pid int) error {
	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// RemovePIDFile deletes pidFile, ignoring a missing file.
func RemovePIDFile(pidFile string) {
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to remove PID file: %v\n", err)
	}
}

// AcquirePIDLock creates lockFile holding the current PID. It reports false
// when a live process already holds the lock. A lock left behind by a dead
// process is taken over.
func AcquirePIDLock(lockFile string) (bool, error) {
	self := os.Getpid()
	tmp := fmt.Sprintf("%s.%d.tmp", lockFile, self)
	if err := WritePIDFile(tmp, self); err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	for attempt := 0; attempt < 2; attempt++ {
		// Linking publishes the file with its content in one step.
		err := os.Link(tmp, lockFile)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return false, fmt.Errorf("failed to create lock file: %w", err)
		}

		pid, err := ReadPIDFile(lockFile)
		if err != nil {
			var numErr *strconv.NumError
			switch {
			case os.IsNotExist(err):
				continue
			case errors.As(err, &numErr):
				RemovePIDFile(lockFile)
				continue
			default:
				return false, err
			}
		}
		if alive, err := gops.PidExists(int32(pid)); err == nil && alive {
			return false, nil
		}
		RemovePIDFile(lockFile)
	}
	return false, nil
}

// ReleasePIDLock removes lockFile if the current process holds it.
func ReleasePIDLock(lockFile string) {
	pid, err := ReadPIDFile(lockFile)
	if err != nil || pid != os.Getpid() {
		return
	}
	RemovePIDFile(lockFile)
}
