package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devalexanderdaza/antigravity-agent/internal/logging"
)

// ErrNoProcessFound means nothing matched: the application is already stopped.
var ErrNoProcessFound = errors.New("no Antigravity process found")

// Lister enumerates host processes.
type Lister interface {
	List(ctx context.Context) ([]Info, error)
}

// Killer terminates one process. Killing a process that has already exited
// is not an error.
type Killer interface {
	Kill(ctx context.Context, pid int32) error
}

// Matched is a host process selected by a pattern.
type Matched struct {
	Info
	Pattern Pattern
}

// Killed describes a terminated process.
type Killed struct {
	Matched
	// Retried is set when the first signal failed and the retry succeeded.
	Retried bool
}

// KillFailure is a process that survived both attempts.
type KillFailure struct {
	Matched
	Err error
}

// TerminateReport lists the outcome per matched process.
type TerminateReport struct {
	Killed []Killed
	Failed []KillFailure
}

// Controller applies a pattern table to the host process list.
type Controller struct {
	patterns []Pattern
	exclude  []Pattern
	lister   Lister
	killer   Killer
	selfPID  int32
	selfExe  string
	logger   logging.Logger
}

// NewController creates a Controller. Processes matching any exclude
// pattern, the current process and other instances of its executable are
// never targeted.
func NewController(patterns, exclude []Pattern, lister Lister, killer Killer, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Controller{
		patterns: patterns,
		exclude:  exclude,
		lister:   lister,
		killer:   killer,
		selfPID:  int32(os.Getpid()),
		selfExe:  executablePath(),
		logger:   logger,
	}
}

func executablePath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		return resolved
	}
	return exe
}

func (c *Controller) isSelf(info Info) bool {
	if info.PID == c.selfPID {
		return true
	}
	return c.selfExe != "" && info.Exe == c.selfExe
}

// Patterns returns the detection table in match order.
func (c *Controller) Patterns() []Pattern {
	return c.patterns
}

// Matching returns every host process the pattern table selects.
func (c *Controller) Matching(ctx context.Context) ([]Matched, error) {
	procs, err := c.lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var matched []Matched
	for _, info := range procs {
		if c.isSelf(info) {
			continue
		}
		if _, excluded := Match(c.exclude, info); excluded {
			continue
		}
		if p, ok := Match(c.patterns, info); ok {
			matched = append(matched, Matched{Info: info, Pattern: p})
		}
	}
	return matched, nil
}

// IsRunning reports whether any target process is alive.
func (c *Controller) IsRunning(ctx context.Context) (bool, error) {
	matched, err := c.Matching(ctx)
	if err != nil {
		return false, err
	}
	return len(matched) > 0, nil
}

// TerminateAll kills every matched process, retrying a failed kill once.
// A process that still fails is recorded in the report and the rest are
// processed anyway. ErrNoProcessFound is returned when nothing matched.
func (c *Controller) TerminateAll(ctx context.Context) (*TerminateReport, error) {
	matched, err := c.Matching(ctx)
	if err != nil {
		return nil, err
	}
	report := &TerminateReport{}
	if len(matched) == 0 {
		return report, ErrNoProcessFound
	}

	for _, m := range matched {
		err := c.killer.Kill(ctx, m.PID)
		if err == nil {
			c.logger.Infof(logging.TypeProcess, "terminated %s (pid %d, %s)", m.Name, m.PID, m.Pattern)
			report.Killed = append(report.Killed, Killed{Matched: m})
			continue
		}

		c.logger.Warnf(logging.TypeProcess, "kill %s (pid %d) failed, retrying: %v", m.Name, m.PID, err)
		if err := c.killer.Kill(ctx, m.PID); err != nil {
			c.logger.Errorf(logging.TypeProcess, "kill %s (pid %d) failed after retry: %v", m.Name, m.PID, err)
			report.Failed = append(report.Failed, KillFailure{Matched: m, Err: err})
			continue
		}
		report.Killed = append(report.Killed, Killed{Matched: m, Retried: true})
	}

	return report, nil
}
