// Package console implements the interactive operator front-end (spec
// §4.7): a menu-driven loop offering the same operations as the CLI
// flags, plus a slot for custom entries an embedder can register.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/loykin/svcguard/internal/buildinfo"
	"github.com/loykin/svcguard/internal/manager"
	"github.com/loykin/svcguard/internal/scm"
	"github.com/loykin/svcguard/internal/worker"
)

// entry is one menu line: a key the operator types, a label shown in the
// menu, and the action to run.
type entry struct {
	key   byte
	label string
	fn    func(ctx context.Context) error
}

// Console is the operator-facing menu loop (spec §4.7).
type Console struct {
	Pool        *worker.Pool
	Manager     *manager.Manager
	Installer   scm.Installer
	Controller  scm.Controller
	ServiceName string
	DisplayName string
	Description string

	in  *bufio.Scanner
	out io.Writer

	custom []entry
}

// New constructs a Console reading operator input from in and writing
// menu/status output to out.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewScanner(in), out: out}
}

// Register adds a custom menu entry (SPEC_FULL.md §7). key must not
// collide with the built-in entries 0,1,2,3,4,5,7.
func (c *Console) Register(key byte, label string, fn func(ctx context.Context) error) {
	c.custom = append(c.custom, entry{key: key, label: label, fn: fn})
}

func (c *Console) builtins() []entry {
	return []entry{
		{'1', "show status", c.showStatus},
		{'2', "install/uninstall service", c.toggleInstall},
		{'3', "start/stop service", c.toggleRunning},
		{'4', "single-step a worker", c.singleStep},
		{'5', "loop-debug (run now, repeat)", c.loopDebug},
		{'7', "watchdog check now", c.watchdogCheckNow},
		{'0', "exit", nil},
	}
}

// Run prints the menu and dispatches operator selections until the
// operator chooses exit or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	for {
		c.printMenu()
		fmt.Fprint(c.out, "> ")
		if !c.in.Scan() {
			return c.in.Err()
		}
		choice := strings.TrimSpace(c.in.Text())
		if choice == "" {
			continue
		}
		if choice == "0" {
			fmt.Fprintln(c.out, "exiting")
			return nil
		}
		if err := c.dispatch(ctx, choice[0]); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (c *Console) printMenu() {
	all := append(c.builtins()[:len(c.builtins())-1], c.custom...)
	sort.Slice(all, func(i, j int) bool { return all[i].key < all[j].key })
	fmt.Fprintln(c.out, "--- svcguard console ---")
	for _, e := range all {
		fmt.Fprintf(c.out, "  %c) %s\n", e.key, e.label)
	}
	fmt.Fprintln(c.out, "  0) exit")
}

func (c *Console) dispatch(ctx context.Context, key byte) error {
	for _, e := range c.builtins() {
		if e.key == key && e.fn != nil {
			return e.fn(ctx)
		}
	}
	for _, e := range c.custom {
		if e.key == key {
			return e.fn(ctx)
		}
	}
	fmt.Fprintln(c.out, "unknown selection")
	return nil
}

func (c *Console) showStatus(ctx context.Context) error {
	fmt.Fprintln(c.out, buildinfo.Read().String())
	if c.Pool != nil {
		for i := 0; i < c.Pool.ThreadCount; i++ {
			fmt.Fprintf(c.out, "  slot %d: active=%v last_active=%s\n", i, c.Pool.Active(i), c.Pool.LastActive(i).Format(time.RFC3339))
		}
		fmt.Fprintf(c.out, "  shutting_down=%v\n", c.Pool.ShuttingDown())
	}
	if c.Controller != nil {
		state, err := c.Controller.QueryState(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "  scm state=%v\n", state)
	}
	return nil
}

func (c *Console) toggleInstall(ctx context.Context) error {
	if c.Installer == nil {
		return fmt.Errorf("no installer configured")
	}
	installed, err := c.Installer.IsInstalled(ctx)
	if err != nil {
		return err
	}
	if installed {
		fmt.Fprintln(c.out, "uninstalling service")
		return c.Installer.Uninstall(ctx)
	}
	fmt.Fprintln(c.out, "installing service")
	return c.Installer.Install(ctx, c.DisplayName, c.Description)
}

func (c *Console) toggleRunning(ctx context.Context) error {
	if c.Controller == nil {
		return fmt.Errorf("no controller configured")
	}
	state, err := c.Controller.QueryState(ctx)
	if err != nil {
		return err
	}
	if state == scm.StateRunning {
		fmt.Fprintln(c.out, "stopping service")
		return c.Controller.Stop(ctx)
	}
	fmt.Fprintln(c.out, "starting service")
	return c.Controller.Start(ctx)
}

func (c *Console) singleStep(ctx context.Context) error {
	if c.Pool == nil {
		return fmt.Errorf("no worker pool configured")
	}
	fmt.Fprint(c.out, "slot index: ")
	if !c.in.Scan() {
		return c.in.Err()
	}
	idx, err := parseIndex(c.in.Text(), c.Pool.ThreadCount)
	if err != nil {
		return err
	}
	c.Pool.RunNow(idx)
	fmt.Fprintf(c.out, "woke slot %d\n", idx)
	return nil
}

func (c *Console) loopDebug(ctx context.Context) error {
	if c.Pool == nil {
		return fmt.Errorf("no worker pool configured")
	}
	for i := 0; i < c.Pool.ThreadCount; i++ {
		c.Pool.RunNow(i)
	}
	fmt.Fprintln(c.out, "woke all slots")
	return nil
}

func (c *Console) watchdogCheckNow(ctx context.Context) error {
	if c.Manager == nil {
		return fmt.Errorf("no manager configured")
	}
	if err := c.Manager.CheckWatchDogNow(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "watchdog check complete")
	return nil
}

func parseIndex(raw string, count int) (int, error) {
	raw = strings.TrimSpace(raw)
	var idx int
	if _, err := fmt.Sscanf(raw, "%d", &idx); err != nil {
		return 0, fmt.Errorf("invalid slot index %q", raw)
	}
	if idx < 0 || idx >= count {
		return 0, fmt.Errorf("slot index %d out of range [0,%d)", idx, count)
	}
	return idx, nil
}
