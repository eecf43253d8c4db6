// Package watchdog implements the peer-service keep-alive described in
// spec §4.4: a config-driven list of peer OS service names is polled each
// cycle, and any peer reporting exactly "no" (never "unknown") is issued
// a single start command.
package watchdog

import (
	"context"
	"fmt"
	"strings"

	"github.com/loykin/svcguard/internal/logger"
)

// RunState is what a peer reports about itself. The watchdog only ever
// acts on StateNo; StateUnknown is treated as "leave it alone" per
// spec §4.4.
type RunState string

const (
	StateYes     RunState = "yes"
	StateNo      RunState = "no"
	StateUnknown RunState = "unknown"
)

// PeerChecker reports whether a named peer service is running, and can
// issue it a start command. cmd/svcguard's platform files implement it
// (systemctl on Unix, the Windows service manager on Windows); tests
// supply a fake.
type PeerChecker interface {
	IsServiceRunning(ctx context.Context, name string) (RunState, error)
	StartService(ctx context.Context, name string) error
}

// Watchdog polls Peers once per cycle via CheckOnce.
type Watchdog struct {
	Peers   []string
	Checker PeerChecker
	Log     logger.Sink
}

// ParsePeers splits a config value on commas or semicolons, trimming
// whitespace and dropping empty entries, matching spec §6's
// WatchDog field format.
func ParsePeers(raw string) []string {
	raw = strings.ReplaceAll(raw, ";", ",")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// New constructs a Watchdog from a raw config string (see ParsePeers).
func New(rawPeers string, checker PeerChecker, log logger.Sink) *Watchdog {
	if log == nil {
		log = logger.Discard{}
	}
	return &Watchdog{Peers: ParsePeers(rawPeers), Checker: checker, Log: log}
}

// CheckOnce polls every configured peer and starts any reporting
// StateNo. A peer reporting StateUnknown or StateYes is left untouched;
// an error from the checker for one peer does not stop the others.
func (w *Watchdog) CheckOnce(ctx context.Context) error {
	if w.Checker == nil || len(w.Peers) == 0 {
		return nil
	}
	var firstErr error
	for _, peer := range w.Peers {
		state, err := w.Checker.IsServiceRunning(ctx, peer)
		if err != nil {
			w.Log.WriteLine("AM: watchdog check of %s failed: %v", peer, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("check %s: %w", peer, err)
			}
			continue
		}
		if state != StateNo {
			continue
		}
		w.Log.WriteLine("AM: watchdog restarting peer %s", peer)
		if err := w.Checker.StartService(ctx, peer); err != nil {
			w.Log.WriteLine("AM: watchdog failed to start %s: %v", peer, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("start %s: %w", peer, err)
			}
		}
	}
	return firstErr
}
