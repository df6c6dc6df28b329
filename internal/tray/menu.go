package tray

// RecentCount is how many accounts the quick switch section shows.
const RecentCount = 2

// ItemKind is the role of a menu entry.
type ItemKind int

const (
	ItemAction ItemKind = iota
	ItemLabel
	ItemSeparator
	ItemSubmenu
)

// MenuItem is one entry of a Menu. Action is used by ItemAction entries,
// Children by ItemSubmenu entries.
type MenuItem struct {
	Kind     ItemKind
	Label    string
	Action   Action
	Children []MenuItem
}

// Menu is a backend-independent tray menu.
type Menu struct {
	Items []MenuItem
}

func actionItem(label string, a Action) MenuItem {
	return MenuItem{Kind: ItemAction, Label: label, Action: a}
}

var separator = MenuItem{Kind: ItemSeparator}

// BuildMenu lays out the tray menu for accounts, which must be ordered most
// recent first.
func BuildMenu(accounts []string) Menu {
	var items []MenuItem

	if len(accounts) > 0 {
		items = append(items, MenuItem{Kind: ItemLabel, Label: "Quick switch"})
		recent := accounts
		if len(recent) > RecentCount {
			recent = recent[:RecentCount]
		}
		for _, id := range recent {
			items = append(items, actionItem("  "+id, SwitchAccount(id)))
		}
		items = append(items, separator)

		if len(accounts) > RecentCount {
			all := MenuItem{Kind: ItemSubmenu, Label: "All accounts"}
			for _, id := range accounts {
				all.Children = append(all.Children, actionItem(id, SwitchAccount(id)))
			}
			items = append(items, all, separator)
		}

		items = append(items, actionItem("Refresh accounts", Action{Kind: ActionRefreshAccounts}), separator)
	}

	items = append(items,
		actionItem("Show window", Action{Kind: ActionShow}),
		separator,
		actionItem("Hide window", Action{Kind: ActionHide}),
		separator,
		actionItem("Quit", Action{Kind: ActionQuit}),
	)
	return Menu{Items: items}
}

// Actions returns every action reachable from the menu, submenus included.
func (m Menu) Actions() []Action {
	var out []Action
	var walk func(items []MenuItem)
	walk = func(items []MenuItem) {
		for _, it := range items {
			switch it.Kind {
			case ItemAction:
				out = append(out, it.Action)
			case ItemSubmenu:
				walk(it.Children)
			}
		}
	}
	walk(m.Items)
	return out
}
