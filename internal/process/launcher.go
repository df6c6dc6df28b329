package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Method is how a launch candidate is resolved.
type Method string

const (
	MethodExplicit Method = "explicit"
	MethodPath     Method = "path"
	MethodCommand  Method = "command"
)

// LaunchDescriptor describes a successful spawn.
type LaunchDescriptor struct {
	Method Method
	Target string
	PID    int
}

// LaunchAttempt is one candidate that did not start.
type LaunchAttempt struct {
	Method Method
	Target string
	Err    error
}

// LaunchError lists every candidate tried when none could be started.
type LaunchError struct {
	Attempts []LaunchAttempt
}

func (e *LaunchError) Error() string {
	if len(e.Attempts) == 0 {
		return "launch failed: no launch candidates configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s %s: %v", a.Method, a.Target, a.Err)
	}
	return "launch failed: " + strings.Join(parts, "; ")
}

// StartFunc spawns name without waiting for it and returns its PID.
type StartFunc func(name string) (int, error)

// Launcher starts Antigravity from the first usable candidate: the
// explicit path, then the install paths in order, then bare commands
// resolved through PATH.
type Launcher struct {
	ExplicitPath string
	Paths        []string
	Commands     []string
	Start        StartFunc
	stat         func(string) (os.FileInfo, error)
}

// NewLauncher returns a Launcher that spawns detached processes.
func NewLauncher(explicitPath string, paths, commands []string) *Launcher {
	return &Launcher{
		ExplicitPath: explicitPath,
		Paths:        paths,
		Commands:     commands,
		Start:        StartDetached,
	}
}

func (l *Launcher) statFile(path string) error {
	stat := l.stat
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("not found")
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	return nil
}

// Launch spawns the application. Success means the spawn returned without
// error, not that the application finished starting.
func (l *Launcher) Launch(ctx context.Context) (*LaunchDescriptor, error) {
	start := l.Start
	if start == nil {
		start = StartDetached
	}

	var attempts []LaunchAttempt
	try := func(method Method, target string) *LaunchDescriptor {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, LaunchAttempt{Method: method, Target: target, Err: err})
			return nil
		}
		if method != MethodCommand {
			if err := l.statFile(target); err != nil {
				attempts = append(attempts, LaunchAttempt{Method: method, Target: target, Err: err})
				return nil
			}
		}
		pid, err := start(target)
		if err != nil {
			attempts = append(attempts, LaunchAttempt{Method: method, Target: target, Err: err})
			return nil
		}
		return &LaunchDescriptor{Method: method, Target: target, PID: pid}
	}

	if l.ExplicitPath != "" {
		if d := try(MethodExplicit, l.ExplicitPath); d != nil {
			return d, nil
		}
	}
	for _, path := range l.Paths {
		if d := try(MethodPath, path); d != nil {
			return d, nil
		}
	}
	for _, command := range l.Commands {
		if d := try(MethodCommand, command); d != nil {
			return d, nil
		}
	}

	return nil, &LaunchError{Attempts: attempts}
}

// Detect returns the first existing install candidate without starting it.
func (l *Launcher) Detect() (string, bool) {
	if l.ExplicitPath != "" && l.statFile(l.ExplicitPath) == nil {
		return l.ExplicitPath, true
	}
	for _, path := range l.Paths {
		if l.statFile(path) == nil {
			return path, true
		}
	}
	for _, command := range l.Commands {
		if resolved, err := exec.LookPath(command); err == nil {
			return resolved, true
		}
	}
	return "", false
}

// StartDetached spawns name in its own session with no stdio and reaps it
// in the background.
func StartDetached(name string) (int, error) {
	cmd := exec.Command(name)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	Detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	go cmd.Wait()
	return pid, nil
}

// Detach makes cmd start in its own session (a new process group on
// Windows) so it outlives the caller.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = detachedAttr()
}
