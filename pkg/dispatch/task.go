package dispatch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateIdle State = iota
	StateSlotRequested
	StateSlotAcquired
	StateSending
	StateAwaitingCompletion
	StateCompleted
	StateFailed
	StateCancelled
)

var stateNames = [...]string{
	"idle",
	"slot-requested",
	"slot-acquired",
	"sending",
	"awaiting-completion",
	"completed",
	"failed",
	"cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Task is the handle for one dispatched operation. It can be awaited
// (pumping the dispatcher until it settles), given continuations with
// Then, or polled with Done and State.
type Task struct {
	d    *Dispatcher
	uid  string
	name string

	state  State
	result *Result
	slot   *Slot
	err    *Error
	then   []func(*Result)
}

func (t *Task) UID() string {
	return t.uid
}

func (t *Task) State() State {
	return t.state
}

func (t *Task) Done() bool {
	return t.state.Terminal()
}

// Result returns the live result. Before the task settles it may be
// partially populated.
func (t *Task) Result() *Result {
	return t.result
}

// Err returns the terminal error, or nil while pending or on success.
func (t *Task) Err() error {
	if t.err == nil {
		return nil
	}
	return t.err
}

// OK reports whether no error has been recorded so far.
func (t *Task) OK() bool {
	return t.err == nil
}

// Then runs fn once with the result when the task settles. If it has
// already settled fn runs immediately.
func (t *Task) Then(fn func(*Result)) *Task {
	if fn == nil {
		return t
	}
	if t.Done() {
		fn(t.result)
		return t
	}
	t.then = append(t.then, fn)
	return t
}

// Await pumps the dispatcher until the task settles or ctx ends. It reports
// whether the task completed without error.
func (t *Task) Await(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	if !t.Done() {
		ticker := time.NewTicker(t.d.pumpInterval)
		defer ticker.Stop()
		for {
			t.d.Loop()
			if t.Done() {
				break
			}
			select {
			case <-ctx.Done():
				return false
			case <-ticker.C:
			}
		}
	}
	return t.err == nil
}

func (t *Task) fail(log logrus.FieldLogger, err *Error) *Task {
	log.WithField("code", err.Code).Warnf("%s failed: %s", t.name, err.Kind)
	t.result.setError(err)
	t.settle(StateFailed, err)
	return t
}

func (t *Task) settle(state State, err *Error) {
	if t.Done() {
		return
	}
	t.state = state
	t.err = err
	delete(t.d.live, t)

	then := t.then
	t.then = nil
	for _, fn := range then {
		fn(t.result)
	}
}
