package tray

import (
	_ "embed"
	"errors"
	"runtime"
	"sync"

	"fyne.io/systray"
)

var (
	//go:embed assets/icon.png
	iconPNG []byte
	//go:embed assets/icon.ico
	iconICO []byte
)

// ErrBackendClosed is returned once the tray event loop has ended.
var ErrBackendClosed = errors.New("tray backend has shut down")

const tooltip = "Antigravity Agent"

func iconBytes() []byte {
	if runtime.GOOS == "windows" {
		return iconICO
	}
	return iconPNG
}

// SystrayBackend draws the icon with fyne.io/systray. There is one icon
// per process and the OS event loop must run on the main goroutine, see
// Run. Hiding the icon ends the loop.
type SystrayBackend struct {
	mu     sync.Mutex
	closed bool
}

// NewSystrayBackend creates a backend. Call Run before creating icons.
func NewSystrayBackend() *SystrayBackend {
	return &SystrayBackend{}
}

// Run blocks in the OS event loop until the icon is hidden or Stop is
// called. onReady runs on its own goroutine once the tray is usable.
func (b *SystrayBackend) Run(onReady, onExit func()) {
	systray.Run(onReady, onExit)
}

// Stop ends the event loop.
func (b *SystrayBackend) Stop() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	systray.Quit()
}

// CreateIcon shows the icon with menu. onClick receives the action ID of
// the clicked item.
func (b *SystrayBackend) CreateIcon(menu Menu, onClick func(id string)) (Icon, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBackendClosed
	}

	systray.SetIcon(iconBytes())
	systray.SetTooltip(tooltip)

	ic := &systrayIcon{backend: b, onClick: onClick}
	ic.render(menu)
	return ic, nil
}

type systrayIcon struct {
	backend *SystrayBackend
	onClick func(id string)

	mu   sync.Mutex
	stop chan struct{}
}

func (ic *systrayIcon) SetMenu(menu Menu) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.stop == nil {
		return ErrBackendClosed
	}
	close(ic.stop)
	systray.ResetMenu()
	ic.render(menu)
	return nil
}

func (ic *systrayIcon) Hide() error {
	ic.mu.Lock()
	if ic.stop != nil {
		close(ic.stop)
		ic.stop = nil
	}
	ic.mu.Unlock()

	ic.backend.Stop()
	return nil
}

// render must be called with ic.mu held or before ic is shared.
func (ic *systrayIcon) render(menu Menu) {
	ic.stop = make(chan struct{})
	for _, it := range menu.Items {
		ic.add(nil, it)
	}
}

func (ic *systrayIcon) add(parent *systray.MenuItem, it MenuItem) {
	newItem := func(label string) *systray.MenuItem {
		if parent == nil {
			return systray.AddMenuItem(label, "")
		}
		return parent.AddSubMenuItem(label, "")
	}

	switch it.Kind {
	case ItemSeparator:
		if parent == nil {
			systray.AddSeparator()
		} else {
			parent.AddSeparator()
		}
	case ItemLabel:
		newItem(it.Label).Disable()
	case ItemAction:
		ic.forward(newItem(it.Label), it.Action.ID())
	case ItemSubmenu:
		sub := newItem(it.Label)
		for _, child := range it.Children {
			ic.add(sub, child)
		}
	}
}

func (ic *systrayIcon) forward(mi *systray.MenuItem, id string) {
	stop := ic.stop
	go func() {
		for {
			select {
			case <-mi.ClickedCh:
				ic.onClick(id)
			case <-stop:
				return
			}
		}
	}()
}
