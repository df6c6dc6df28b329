// Package tray keeps the system tray icon in step with the tray setting
// and the list of backed-up accounts.
package tray

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is returned for menu identifiers ParseAction does not know.
var ErrUnknownAction = errors.New("unknown tray action")

// ActionKind enumerates the tray menu actions.
type ActionKind int

const (
	ActionShow ActionKind = iota
	ActionHide
	ActionQuit
	ActionRefreshAccounts
	ActionSwitchAccount
)

const switchAccountPrefix = "switch_account:"

// Action is a parsed menu item identifier. AccountID is set only for
// ActionSwitchAccount.
type Action struct {
	Kind      ActionKind
	AccountID string
}

// SwitchAccount returns the action that switches to accountID.
func SwitchAccount(accountID string) Action {
	return Action{Kind: ActionSwitchAccount, AccountID: accountID}
}

// ID is the menu item identifier of a; ParseAction(a.ID()) == a.
func (a Action) ID() string {
	switch a.Kind {
	case ActionShow:
		return "show"
	case ActionHide:
		return "hide"
	case ActionQuit:
		return "quit"
	case ActionRefreshAccounts:
		return "refresh_accounts"
	case ActionSwitchAccount:
		return switchAccountPrefix + a.AccountID
	default:
		return fmt.Sprintf("action(%d)", int(a.Kind))
	}
}

func (a Action) String() string {
	return a.ID()
}

// ParseAction converts a menu item identifier into an Action.
func ParseAction(id string) (Action, error) {
	switch id {
	case "show":
		return Action{Kind: ActionShow}, nil
	case "hide":
		return Action{Kind: ActionHide}, nil
	case "quit":
		return Action{Kind: ActionQuit}, nil
	case "refresh_accounts":
		return Action{Kind: ActionRefreshAccounts}, nil
	}

	if account, ok := strings.CutPrefix(id, switchAccountPrefix); ok {
		if strings.TrimSpace(account) == "" {
			return Action{}, fmt.Errorf("%w: %q has no account", ErrUnknownAction, id)
		}
		return SwitchAccount(account), nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, id)
}
