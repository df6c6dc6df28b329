// Package process finds, terminates and launches the Antigravity
// application's processes.
package process

import (
	"fmt"
	"strings"
)

// Kind selects what a Pattern compares against.
type Kind int

const (
	// KindExact matches the process name exactly.
	KindExact Kind = iota
	// KindContains matches a substring of the name or the command line.
	KindContains
	// KindEndsWith matches a suffix of the name or the command line.
	KindEndsWith
	// KindCmdContains matches a substring of the command line.
	KindCmdContains
	// KindCmdEndsWith matches a suffix of the command line.
	KindCmdEndsWith
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindContains:
		return "contains"
	case KindEndsWith:
		return "ends_with"
	case KindCmdContains:
		return "cmd_contains"
	case KindCmdEndsWith:
		return "cmd_ends_with"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Pattern is one rule for recognizing a target process.
type Pattern struct {
	Kind  Kind
	Value string
}

func Exact(v string) Pattern { return Pattern{Kind: KindExact, Value: v} }

func Contains(v string) Pattern { return Pattern{Kind: KindContains, Value: v} }

func EndsWith(v string) Pattern { return Pattern{Kind: KindEndsWith, Value: v} }

func CmdContains(v string) Pattern { return Pattern{Kind: KindCmdContains, Value: v} }

func CmdEndsWith(v string) Pattern { return Pattern{Kind: KindCmdEndsWith, Value: v} }

func (p Pattern) String() string {
	return fmt.Sprintf("%s(%q)", p.Kind, p.Value)
}

// Matches reports whether a process with the given name and command line
// satisfies the pattern. Comparisons are case-sensitive.
func (p Pattern) Matches(name, cmdline string) bool {
	if p.Value == "" {
		return false
	}
	switch p.Kind {
	case KindExact:
		return name == p.Value
	case KindContains:
		return strings.Contains(name, p.Value) || strings.Contains(cmdline, p.Value)
	case KindEndsWith:
		return strings.HasSuffix(name, p.Value) || strings.HasSuffix(cmdline, p.Value)
	case KindCmdContains:
		return strings.Contains(cmdline, p.Value)
	case KindCmdEndsWith:
		return strings.HasSuffix(cmdline, p.Value)
	}
	return false
}

// Info is the part of a host process the patterns look at.
type Info struct {
	PID     int32
	Name    string
	Cmdline string
	// Exe is the resolved executable path, empty when unreadable.
	Exe string
}

// Match returns the first pattern in order that info satisfies.
func Match(patterns []Pattern, info Info) (Pattern, bool) {
	for _, p := range patterns {
		if p.Matches(info.Name, info.Cmdline) {
			return p, true
		}
	}
	return Pattern{}, false
}
