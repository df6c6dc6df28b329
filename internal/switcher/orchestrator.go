// Package switcher sequences process control and snapshot transfer into
// the sign-out and switch-account workflows.
package switcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/semaphore"

	"github.com/devalexanderdaza/antigravity-agent/internal/logging"
	"github.com/devalexanderdaza/antigravity-agent/internal/process"
	"github.com/devalexanderdaza/antigravity-agent/internal/snapshots"
	"github.com/devalexanderdaza/antigravity-agent/internal/watcher"
)

// Workflow names used in traces and metrics.
const (
	WorkflowSignOut = "signout"
	WorkflowSwitch  = "switch"
	WorkflowCapture = "capture"
	WorkflowRestore = "restore"
)

var (
	ErrNoActiveIdentity   = snapshots.ErrNoActiveIdentity
	ErrSwitchInProgress   = errors.New("another switch is already in progress")
	ErrTargetStillRunning = errors.New("Antigravity is still running after termination")
	ErrTargetRunning      = errors.New("Antigravity is running; stop it first")
)

// ProcessController stops the target application.
type ProcessController interface {
	IsRunning(ctx context.Context) (bool, error)
	TerminateAll(ctx context.Context) (*process.TerminateReport, error)
}

// Launcher starts the target application.
type Launcher interface {
	Launch(ctx context.Context) (*process.LaunchDescriptor, error)
}

// StateStore is an open state database.
type StateStore interface {
	snapshots.KV
	DeleteKeys(keys []string) (int, error)
	Close() error
}

// OpenStoreFunc opens the state database for writing.
type OpenStoreFunc func() (StateStore, error)

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Processes ProcessController
	Launcher  Launcher
	OpenStore OpenStoreFunc
	Snapshots *snapshots.Manager
	// Settle is waited after termination and before launch.
	Settle  time.Duration
	Sleep   func(time.Duration)
	Logger  logging.Logger
	Metrics Metrics
	// Progress, when set, is called as each step starts.
	Progress func(State)
	// LockFile, when set, is a PID lock that keeps workflows of other agent
	// processes (CLI and tray daemon) from running at the same time.
	LockFile string
}

// Orchestrator runs one workflow at a time, across processes when
// Deps.LockFile is set.
type Orchestrator struct {
	deps     Deps
	inFlight *semaphore.Weighted
	now      func() time.Time
}

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics()
	}
	return &Orchestrator{
		deps:     deps,
		inFlight: semaphore.NewWeighted(1),
		now:      time.Now,
	}
}

// WithProgress returns an Orchestrator that reports step starts to fn. It
// shares the in-flight guard with o.
func (o *Orchestrator) WithProgress(fn func(State)) *Orchestrator {
	c := *o
	c.deps.Progress = fn
	return &c
}

// Snapshots returns the snapshot manager the workflows use.
func (o *Orchestrator) Snapshots() *snapshots.Manager {
	return o.deps.Snapshots
}

// run tracks one workflow invocation.
type run struct {
	o     *Orchestrator
	ctx   context.Context
	trace *Trace
}

func (o *Orchestrator) begin(ctx context.Context, workflow, account string) (*run, error) {
	if !o.inFlight.TryAcquire(1) {
		o.deps.Metrics.IncRuns(workflow, ResultRejected)
		return nil, ErrSwitchInProgress
	}
	if o.deps.LockFile != "" {
		ok, err := watcher.AcquirePIDLock(o.deps.LockFile)
		if err != nil || !ok {
			o.inFlight.Release(1)
			o.deps.Metrics.IncRuns(workflow, ResultRejected)
			if err != nil {
				return nil, fmt.Errorf("failed to lock %s: %w", o.deps.LockFile, err)
			}
			return nil, ErrSwitchInProgress
		}
	}
	trace := &Trace{
		RunID:    ulid.Make().String(),
		Workflow: workflow,
		Account:  account,
		Final:    StateIdle,
	}
	o.deps.Logger.Infof(logging.TypeSwitch, "[%s] %s started", trace.RunID, workflow)
	return &run{o: o, ctx: context.WithoutCancel(ctx), trace: trace}, nil
}

// finish releases the guard and settles the final state. A non-nil err is
// the fatal step error.
func (r *run) finish(err error) (*Trace, error) {
	defer r.o.inFlight.Release(1)
	if r.o.deps.LockFile != "" {
		defer watcher.ReleasePIDLock(r.o.deps.LockFile)
	}

	result := ResultSuccess
	switch {
	case err != nil:
		r.trace.Final = StateFailed
		result = ResultFailed
		r.o.deps.Logger.Errorf(logging.TypeSwitch, "[%s] %s failed: %s", r.trace.RunID, r.trace.Workflow, r.trace)
	case r.trace.Err() != nil:
		r.trace.Final = StateDone
		result = ResultDegraded
		r.o.deps.Logger.Warnf(logging.TypeSwitch, "[%s] %s finished with errors: %s", r.trace.RunID, r.trace.Workflow, r.trace)
	default:
		r.trace.Final = StateDone
		r.o.deps.Logger.Infof(logging.TypeSwitch, "[%s] %s done: %s", r.trace.RunID, r.trace.Workflow, r.trace)
	}
	r.o.deps.Metrics.IncRuns(r.trace.Workflow, result)
	return r.trace, err
}

// step runs fn as state. fn returns the step message; an error of a fatal
// step ends the workflow unless it is soft.
func (r *run) step(state State, fatal bool, fn func() (string, error)) error {
	if r.o.deps.Progress != nil {
		r.o.deps.Progress(state)
	}
	start := r.o.now()
	msg, err := fn()
	d := r.o.now().Sub(start)
	if isSoft(err) {
		fatal = false
	}

	r.trace.add(Step{State: state, Message: msg, Err: err, Fatal: err != nil && fatal, Duration: d})
	r.o.deps.Metrics.ObserveStep(state, d)
	if err == nil {
		return nil
	}
	if fatal {
		return &StepError{State: state, Err: err}
	}
	r.o.deps.Logger.Warnf(logging.TypeSwitch, "[%s] %s: %v", r.trace.RunID, state, err)
	return nil
}

// isSoft reports errors that are warnings rather than failures.
func isSoft(err error) bool {
	var partial *snapshots.PartialRestoreError
	return errors.As(err, &partial)
}

func (r *run) settle() {
	if r.o.deps.Settle > 0 {
		r.o.deps.Sleep(r.o.deps.Settle)
	}
}

// terminate stops the target, waits the settle delay and checks nothing
// matching is left. No running process is a no-op. Failures are recorded
// and the workflow goes on.
func (r *run) terminate() {
	_ = r.step(StateTerminating, false, func() (string, error) {
		report, err := r.o.deps.Processes.TerminateAll(r.ctx)
		r.settle()
		msg := "Antigravity was not running"
		switch {
		case errors.Is(err, process.ErrNoProcessFound):
		case err != nil:
			return "", fmt.Errorf("failed to terminate Antigravity: %w", err)
		default:
			msg = fmt.Sprintf("terminated %d Antigravity process(es)", len(report.Killed))
		}

		running, err := r.o.deps.Processes.IsRunning(r.ctx)
		if err != nil {
			return msg, fmt.Errorf("failed to verify Antigravity stopped: %w", err)
		}
		if running {
			if report != nil && len(report.Failed) > 0 {
				return msg, fmt.Errorf("%w (%d process(es) refused to exit)", ErrTargetStillRunning, len(report.Failed))
			}
			return msg, ErrTargetStillRunning
		}
		return msg, nil
	})
}

func (r *run) openStore(state State) (StateStore, error) {
	kv, err := r.o.deps.OpenStore()
	if err != nil {
		err = fmt.Errorf("failed to open state database: %w", err)
		r.trace.add(Step{State: state, Err: err, Fatal: true})
		return nil, &StepError{State: state, Err: err}
	}
	return kv, nil
}

// closer returns a function that closes kv once. The store must be closed
// before Antigravity is launched.
func (r *run) closer(kv StateStore) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := kv.Close(); err != nil {
				r.o.deps.Logger.Warnf(logging.TypeSwitch, "[%s] failed to close state database: %v", r.trace.RunID, err)
			}
		})
	}
}

func (r *run) launch() {
	r.settle()
	_ = r.step(StateLaunching, false, func() (string, error) {
		desc, err := r.o.deps.Launcher.Launch(r.ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("launched Antigravity via %s %s", desc.Method, desc.Target), nil
	})
}

// SignOutAndRelaunch snapshots the signed-in account, clears it from the
// state database and relaunches Antigravity on the sign-in screen.
func (o *Orchestrator) SignOutAndRelaunch(ctx context.Context) (*Trace, error) {
	r, err := o.begin(ctx, WorkflowSignOut, "")
	if err != nil {
		return nil, err
	}

	r.terminate()

	kv, err := r.openStore(StateExtractingIdentity)
	if err != nil {
		return r.finish(err)
	}
	closeStore := r.closer(kv)
	defer closeStore()

	var account string
	err = r.step(StateExtractingIdentity, true, func() (string, error) {
		email, err := o.deps.Snapshots.ActiveIdentity(kv)
		if err != nil {
			return "", err
		}
		account = email
		r.trace.Account = email
		return "signed in as " + logging.MaskEmail(email), nil
	})
	if err != nil {
		return r.finish(err)
	}

	err = r.step(StateCapturing, true, func() (string, error) {
		name, overwritten, err := o.deps.Snapshots.Capture(kv, account)
		if err != nil {
			return "", err
		}
		if overwritten {
			return "updated backup " + name, nil
		}
		return "created backup " + name, nil
	})
	if err != nil {
		return r.finish(err)
	}

	_ = r.step(StateClearing, false, func() (string, error) {
		removed, err := o.deps.Snapshots.ClearState(kv)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("cleared %d key(s)", removed), nil
	})

	closeStore()

	r.launch()
	return r.finish(nil)
}

// SwitchTo restores the snapshot of accountID and relaunches Antigravity.
// A missing snapshot fails before anything is terminated.
func (o *Orchestrator) SwitchTo(ctx context.Context, accountID string) (*Trace, error) {
	r, err := o.begin(ctx, WorkflowSwitch, accountID)
	if err != nil {
		return nil, err
	}

	if !o.deps.Snapshots.Exists(accountID) {
		err := fmt.Errorf("%w: %s", snapshots.ErrSnapshotNotFound, accountID)
		r.trace.add(Step{State: StateIdle, Err: err, Fatal: true})
		return r.finish(&StepError{State: StateIdle, Err: err})
	}

	r.terminate()

	kv, err := r.openStore(StateRestoring)
	if err != nil {
		return r.finish(err)
	}
	closeStore := r.closer(kv)
	defer closeStore()

	err = r.step(StateRestoring, true, func() (string, error) {
		summary, err := o.deps.Snapshots.Restore(kv, accountID)
		if err != nil {
			return "", err
		}
		msg := fmt.Sprintf("restored %d key(s) for %s", len(summary.Written), logging.MaskEmail(accountID))
		return msg, summary.Err()
	})
	if err != nil {
		return r.finish(err)
	}

	closeStore()

	r.launch()
	return r.finish(nil)
}

// CaptureResult describes a manual backup.
type CaptureResult struct {
	AccountID   string
	Name        string
	Overwritten bool
}

// Capture backs up the current state under accountID, or under the
// signed-in account when accountID is empty. Antigravity must not be
// running.
func (o *Orchestrator) Capture(ctx context.Context, accountID string) (*CaptureResult, error) {
	r, err := o.begin(ctx, WorkflowCapture, accountID)
	if err != nil {
		return nil, err
	}
	if err := r.requireStopped(); err != nil {
		_, err = r.finish(err)
		return nil, err
	}

	kv, err := r.openStore(StateCapturing)
	if err != nil {
		_, err = r.finish(err)
		return nil, err
	}
	defer kv.Close()

	if accountID == "" {
		err = r.step(StateExtractingIdentity, true, func() (string, error) {
			email, err := o.deps.Snapshots.ActiveIdentity(kv)
			if err != nil {
				return "", err
			}
			accountID = email
			r.trace.Account = email
			return "signed in as " + logging.MaskEmail(email), nil
		})
		if err != nil {
			_, err = r.finish(err)
			return nil, err
		}
	}

	result := &CaptureResult{AccountID: accountID}
	err = r.step(StateCapturing, true, func() (string, error) {
		name, overwritten, err := o.deps.Snapshots.Capture(kv, accountID)
		if err != nil {
			return "", err
		}
		result.Name = name
		result.Overwritten = overwritten
		return "backed up " + name, nil
	})
	if _, err := r.finish(err); err != nil {
		return nil, err
	}
	return result, nil
}

// Restore writes the snapshot of accountID into the state database without
// touching the process. Antigravity must not be running.
func (o *Orchestrator) Restore(ctx context.Context, accountID string) (*snapshots.Summary, error) {
	r, err := o.begin(ctx, WorkflowRestore, accountID)
	if err != nil {
		return nil, err
	}
	if err := r.requireStopped(); err != nil {
		_, err = r.finish(err)
		return nil, err
	}

	kv, err := r.openStore(StateRestoring)
	if err != nil {
		_, err = r.finish(err)
		return nil, err
	}
	defer kv.Close()

	var summary *snapshots.Summary
	err = r.step(StateRestoring, true, func() (string, error) {
		s, err := o.deps.Snapshots.Restore(kv, accountID)
		if err != nil {
			return "", err
		}
		summary = s
		return fmt.Sprintf("restored %d key(s)", len(s.Written)), s.Err()
	})
	if _, err := r.finish(err); err != nil {
		return nil, err
	}
	return summary, nil
}

func (r *run) requireStopped() error {
	return r.step(StateIdle, true, func() (string, error) {
		running, err := r.o.deps.Processes.IsRunning(r.ctx)
		if err != nil {
			return "", fmt.Errorf("failed to check Antigravity process: %w", err)
		}
		if running {
			return "", ErrTargetRunning
		}
		return "Antigravity is not running", nil
	})
}
