package timer

import "weak"

// WeakCallback is a callable reference whose holding does not prevent
// reclamation of its target (spec §4.6). Go's standard library gained
// weak.Pointer[T] in 1.24; a weak timer callback wraps one plus the
// method to invoke, so the scheduler's timer map never keeps the target
// object alive.
type WeakCallback struct {
	alive func() bool
	call  func(state any)
}

// NewWeakCallback builds a callback bound to target by weak reference.
// fn receives the resolved target and the timer's opaque state on every
// successful dispatch. Once target is garbage collected, Alive reports
// false, Invoke does nothing, and the owning timer is removed by the
// scheduler.
func NewWeakCallback[T any](target *T, fn func(t *T, state any)) WeakCallback {
	wp := weak.Make(target)
	return WeakCallback{
		alive: func() bool { return wp.Value() != nil },
		call: func(state any) {
			if t := wp.Value(); t != nil {
				fn(t, state)
			}
		},
	}
}

// NewStaticCallback builds a callback bound to a function with no
// lifetime-bound target (spec §4.6: "bound to a static or otherwise
// lifetime-unbounded function is always alive").
func NewStaticCallback(fn func(state any)) WeakCallback {
	return WeakCallback{
		alive: func() bool { return true },
		call:  fn,
	}
}

// Alive reports whether the callback's target can still be resolved.
func (w WeakCallback) Alive() bool {
	if w.alive == nil {
		return false
	}
	return w.alive()
}

// Invoke calls the callback if its target is still alive. It is a no-op
// (not an error) when the target has been collected.
func (w WeakCallback) Invoke(state any) {
	if w.call == nil || !w.Alive() {
		return
	}
	w.call(state)
}
