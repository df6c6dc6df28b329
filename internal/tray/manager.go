package tray

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/devalexanderdaza/antigravity-agent/internal/logging"
	"github.com/devalexanderdaza/antigravity-agent/internal/switcher"
)

// Backend creates OS tray icons.
type Backend interface {
	CreateIcon(menu Menu, onClick func(id string)) (Icon, error)
}

// Icon is a live tray icon.
type Icon interface {
	SetMenu(menu Menu) error
	Hide() error
}

// SettingsStore persists the tray setting.
type SettingsStore interface {
	TrayEnabled() (bool, error)
	SetTrayEnabled(enabled bool) error
}

// AccountSource lists backed-up accounts, most recent first.
type AccountSource interface {
	IDs() ([]string, error)
}

// Switcher runs the switch-to-account workflow.
type Switcher interface {
	SwitchTo(ctx context.Context, accountID string) (*switcher.Trace, error)
}

// Window is the UI the Show and Hide actions act on.
type Window interface {
	Show() error
	Hide() error
}

type nopWindow struct{}

func (nopWindow) Show() error { return nil }
func (nopWindow) Hide() error { return nil }

// Options configures a Manager.
type Options struct {
	Settings SettingsStore
	Accounts AccountSource
	Backend  Backend
	Switcher Switcher
	Window   Window
	// Quit is called for the Quit action.
	Quit   func()
	Logger logging.Logger
}

// Manager owns the tray icon. icon is only read or written with mu held,
// and mu is never held while accounts are listed.
type Manager struct {
	settings SettingsStore
	accounts AccountSource
	backend  Backend
	switcher Switcher
	window   Window
	quit     func()
	logger   logging.Logger

	mu   sync.Mutex
	icon Icon
}

// NewManager creates a Manager with no icon.
func NewManager(opts Options) *Manager {
	m := &Manager{
		settings: opts.Settings,
		accounts: opts.Accounts,
		backend:  opts.Backend,
		switcher: opts.Switcher,
		window:   opts.Window,
		quit:     opts.Quit,
		logger:   opts.Logger,
	}
	if m.window == nil {
		m.window = nopWindow{}
	}
	if m.quit == nil {
		m.quit = func() {}
	}
	if m.logger == nil {
		m.logger = logging.Nop()
	}
	return m
}

// Enabled returns the persisted tray setting.
func (m *Manager) Enabled() (bool, error) {
	return m.settings.TrayEnabled()
}

// Visible reports whether the icon currently exists.
func (m *Manager) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.icon != nil
}

// Enable persists the setting and shows the icon if it is not shown yet.
func (m *Manager) Enable() error {
	if err := m.settings.SetTrayEnabled(true); err != nil {
		return fmt.Errorf("failed to save tray setting: %w", err)
	}
	return m.show()
}

// Disable persists the setting and removes the icon.
func (m *Manager) Disable() error {
	if err := m.settings.SetTrayEnabled(false); err != nil {
		return fmt.Errorf("failed to save tray setting: %w", err)
	}
	return m.remove()
}

// Toggle flips the tray setting and returns the new value. Concurrent
// toggles are not serialized; the last settings write wins.
func (m *Manager) Toggle() (bool, error) {
	enabled, err := m.settings.TrayEnabled()
	if err != nil {
		return false, fmt.Errorf("failed to read tray setting: %w", err)
	}
	if enabled {
		return false, m.Disable()
	}
	return true, m.Enable()
}

// Sync makes the icon match the persisted setting without writing it.
func (m *Manager) Sync() error {
	enabled, err := m.settings.TrayEnabled()
	if err != nil {
		return fmt.Errorf("failed to read tray setting: %w", err)
	}
	if enabled {
		return m.show()
	}
	return m.remove()
}

// Refresh rebuilds the menu of the existing icon in place. It does
// nothing when no icon is shown.
func (m *Manager) Refresh() error {
	if !m.Visible() {
		return nil
	}
	menu := m.buildMenu()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.icon == nil {
		return nil
	}
	if err := m.icon.SetMenu(menu); err != nil {
		return fmt.Errorf("failed to update tray menu: %w", err)
	}
	m.logger.Debugf(logging.TypeTray, "tray menu updated")
	return nil
}

func (m *Manager) show() error {
	if m.Visible() {
		return nil
	}
	menu := m.buildMenu()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.icon != nil {
		return nil
	}
	icon, err := m.backend.CreateIcon(menu, m.onClick)
	if err != nil {
		return fmt.Errorf("failed to create tray icon: %w", err)
	}
	m.icon = icon
	m.logger.Infof(logging.TypeTray, "tray icon created")
	return nil
}

func (m *Manager) remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.icon == nil {
		return nil
	}
	icon := m.icon
	m.icon = nil
	if err := icon.Hide(); err != nil {
		return fmt.Errorf("failed to hide tray icon: %w", err)
	}
	m.logger.Infof(logging.TypeTray, "tray icon removed")
	return nil
}

// buildMenu lists accounts; a listing error degrades to a menu without
// accounts.
func (m *Manager) buildMenu() Menu {
	accounts, err := m.accounts.IDs()
	if err != nil {
		m.logger.Warnf(logging.TypeTray, "failed to list accounts: %v", err)
		accounts = nil
	}
	return BuildMenu(accounts)
}

// onClick is handed to the backend. Actions run off the UI goroutine.
func (m *Manager) onClick(id string) {
	go func() {
		if err := m.HandleClick(context.Background(), id); err != nil {
			m.logger.Errorf(logging.TypeTray, "tray action %s failed: %v", id, err)
		}
	}()
}

// HandleClick runs the action of a menu item identifier. A successful
// account switch refreshes the menu.
func (m *Manager) HandleClick(ctx context.Context, id string) error {
	action, err := ParseAction(id)
	if err != nil {
		return err
	}

	switch action.Kind {
	case ActionShow:
		return m.window.Show()
	case ActionHide:
		return m.window.Hide()
	case ActionQuit:
		m.logger.Infof(logging.TypeTray, "quit requested from tray")
		m.quit()
		return nil
	case ActionRefreshAccounts:
		return m.Refresh()
	case ActionSwitchAccount:
		return m.switchAccount(ctx, action.AccountID)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}

func (m *Manager) switchAccount(ctx context.Context, accountID string) error {
	if m.switcher == nil {
		return errors.New("account switching is not available")
	}
	m.logger.Infof(logging.TypeTray, "switching to %s from tray", logging.MaskEmail(accountID))

	trace, err := m.switcher.SwitchTo(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to switch to %s: %w", logging.MaskEmail(accountID), err)
	}
	if werr := trace.Err(); werr != nil {
		m.logger.Warnf(logging.TypeTray, "switch finished with warnings: %v", werr)
	}
	return m.Refresh()
}
