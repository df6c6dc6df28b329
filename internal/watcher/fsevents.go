package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devalexanderdaza/antigravity-agent/internal/logging"
	"github.com/devalexanderdaza/antigravity-agent/internal/store"
)

// DefaultDebounce is the quiet period before a callback fires.
const DefaultDebounce = 300 * time.Millisecond

// Kind classifies a filesystem change.
type Kind int

const (
	KindSettings Kind = iota
	KindAccounts
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindSettings:
		return "settings"
	case KindAccounts:
		return "accounts"
	case KindState:
		return "state"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Options selects what is watched. StateDir is optional.
type Options struct {
	SettingsFile string
	BackupsDir   string
	StateDir     string
	Debounce     time.Duration
	Logger       logging.Logger
}

// Callbacks run on a timer goroutine after the debounce period. Nil
// callbacks are skipped.
type Callbacks struct {
	OnSettingsChange func()
	OnAccountsChange func()
	OnStateChange    func()
}

func (c Callbacks) get(k Kind) func() {
	switch k {
	case KindSettings:
		return c.OnSettingsChange
	case KindAccounts:
		return c.OnAccountsChange
	case KindState:
		return c.OnStateChange
	}
	return nil
}

// Watcher turns fsnotify events into debounced callbacks.
type Watcher struct {
	opts   Options
	cb     Callbacks
	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	timers  map[Kind]*time.Timer
	stopped bool
}

// New creates a Watcher. Nothing is watched until Start.
func New(opts Options, cb Callbacks) (*Watcher, error) {
	if opts.SettingsFile == "" && opts.BackupsDir == "" && opts.StateDir == "" {
		return nil, errors.New("nothing to watch")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	for _, p := range []*string{&opts.SettingsFile, &opts.BackupsDir, &opts.StateDir} {
		if *p != "" {
			*p = filepath.Clean(*p)
		}
	}
	return &Watcher{
		opts:   opts,
		cb:     cb,
		stopCh: make(chan struct{}),
		timers: make(map[Kind]*time.Timer),
	}, nil
}

// Start adds the watches and begins dispatching. Directories are watched
// rather than files so that write-then-rename saves are seen.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	var dirs []string
	if w.opts.SettingsFile != "" {
		dirs = append(dirs, filepath.Dir(w.opts.SettingsFile))
	}
	if w.opts.BackupsDir != "" {
		if err := os.MkdirAll(w.opts.BackupsDir, 0755); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to create backups directory: %w", err)
		}
		dirs = append(dirs, w.opts.BackupsDir)
	}
	if w.opts.StateDir != "" {
		dirs = append(dirs, w.opts.StateDir)
	}

	seen := make(map[string]bool)
	for _, dir := range dirs {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.opts.Logger.Debugf(logging.TypeApp, "watching %s", dir)
	}

	w.fsw = fsw
	w.wg.Add(1)
	go w.run()
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if kind, ok := w.classify(ev.Name); ok {
				w.schedule(kind)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Warnf(logging.TypeApp, "file watcher error: %v", err)
		case <-w.stopCh:
			return
		}
	}
}

// classify maps a changed path to the kind of change it represents.
func (w *Watcher) classify(name string) (Kind, bool) {
	name = filepath.Clean(name)
	dir, base := filepath.Dir(name), filepath.Base(name)

	switch {
	case w.opts.SettingsFile != "" && name == w.opts.SettingsFile:
		return KindSettings, true
	case w.opts.BackupsDir != "" && dir == w.opts.BackupsDir && strings.HasSuffix(base, ".json"):
		return KindAccounts, true
	case w.opts.StateDir != "" && dir == w.opts.StateDir && strings.HasPrefix(base, store.FileName):
		return KindState, true
	}
	return 0, false
}

// schedule restarts the debounce timer of kind.
func (w *Watcher) schedule(kind Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[kind]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	w.timers[kind] = time.AfterFunc(w.opts.Debounce, func() { w.fire(kind) })
}

func (w *Watcher) fire(kind Kind) {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	w.opts.Logger.Debugf(logging.TypeApp, "%s changed", kind)
	if fn := w.cb.get(kind); fn != nil {
		fn()
	}
}

// Stop ends dispatching. Pending debounced callbacks are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	w.wg.Wait()
	return err
}
