package watchdog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	states  map[string]RunState
	started []string
	errs    map[string]error
}

func (f *fakeChecker) IsServiceRunning(_ context.Context, name string) (RunState, error) {
	if err, ok := f.errs[name]; ok {
		return StateUnknown, err
	}
	return f.states[name], nil
}

func (f *fakeChecker) StartService(_ context.Context, name string) error {
	f.started = append(f.started, name)
	return nil
}

func TestParsePeersSplitsOnCommaAndSemicolon(t *testing.T) {
	got := ParsePeers("svc-a, svc-b;svc-c ,, svc-d")
	require.Equal(t, []string{"svc-a", "svc-b", "svc-c", "svc-d"}, got)
}

func TestCheckOnceStartsOnlyPeersReportingNo(t *testing.T) {
	checker := &fakeChecker{states: map[string]RunState{
		"svc-a": StateYes,
		"svc-b": StateNo,
		"svc-c": StateUnknown,
	}}
	w := New("svc-a,svc-b,svc-c", checker, nil)

	err := w.CheckOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"svc-b"}, checker.started)
}

func TestCheckOnceNeverActsOnUnknown(t *testing.T) {
	checker := &fakeChecker{states: map[string]RunState{"svc-a": StateUnknown}}
	w := New("svc-a", checker, nil)

	require.NoError(t, w.CheckOnce(context.Background()))
	require.Empty(t, checker.started)
}

func TestCheckOnceContinuesAfterPeerError(t *testing.T) {
	checker := &fakeChecker{
		states: map[string]RunState{"svc-b": StateNo},
		errs:   map[string]error{"svc-a": assertErr{}},
	}
	w := New("svc-a,svc-b", checker, nil)

	err := w.CheckOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, []string{"svc-b"}, checker.started)
}

// TestScenarioS6WatchdogAction mirrors spec scenario S6's literal
// example: of two semicolon-separated peers, the one reporting "no" is
// started and the one reporting "unknown" is left alone.
func TestScenarioS6WatchdogAction(t *testing.T) {
	checker := &fakeChecker{states: map[string]RunState{"svcA": StateNo, "svcB": StateUnknown}}
	w := New("svcA;svcB", checker, nil)

	require.NoError(t, w.CheckOnce(context.Background()))
	require.Equal(t, []string{"svcA"}, checker.started)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestCheckOnceNoPeersIsNoop(t *testing.T) {
	w := New("", &fakeChecker{}, nil)
	require.NoError(t, w.CheckOnce(context.Background()))
}
