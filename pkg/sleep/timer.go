// Package sleep implements the do-not-disturb countdown. While running the
// panel is hidden and the anchor dims; the timer itself only gates
// visibility and opacity, so cancellation never needs to roll anything back.
package sleep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// State describes the timer's phase.
type State string

const (
	// StateIdle means no countdown is active.
	StateIdle State = "idle"
	// StateRunning means a countdown is in progress.
	StateRunning State = "running"
)

// EventKind distinguishes per-minute progress from the terminal notification.
type EventKind int

const (
	// EventTick carries the remaining minutes after a one-minute decrement.
	EventTick EventKind = iota
	// EventEnded fires exactly once when the countdown reaches zero or is
	// woken explicitly.
	EventEnded
)

// Event is delivered to every subscriber on each tick and on completion.
// Woken distinguishes an explicit wake (the panel is re-shown) from natural
// expiry (it is not).
type Event struct {
	Kind      EventKind
	Remaining int
	Woken     bool
}

// Listener receives timer events synchronously, in subscription order.
type Listener func(Event)

// ErrInvalidDuration rejects a start outside hours 0-23 / minutes 0-59 or
// with both components zero.
var ErrInvalidDuration = errors.New("sleep: duration must be between 1 minute and 23h59m")

// ErrAlreadyRunning rejects starting a countdown over an active one.
var ErrAlreadyRunning = errors.New("sleep: timer already running")

type subscriber struct {
	id int
	fn Listener
}

// Timer is the countdown state machine. Ticks are driven externally: Run
// feeds wall-clock minutes, tests call Tick directly.
type Timer struct {
	mu        sync.Mutex
	remaining int
	active    bool
	subs      []subscriber
	nextID    int
}

// NewTimer returns an idle timer.
func NewTimer() *Timer {
	return &Timer{}
}

// State reports the current phase.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return StateRunning
	}
	return StateIdle
}

// Remaining reports minutes left; zero when idle.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Subscribe registers a listener and returns its unsubscribe function.
func (t *Timer) Subscribe(fn Listener) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.subs = append(t.subs, subscriber{id: id, fn: fn})
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

// Start begins a countdown of hours*60+minutes minutes. A rejected start
// leaves the timer state untouched.
func (t *Timer) Start(hours, minutes int) error {
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return ErrInvalidDuration
	}
	if hours == 0 && minutes == 0 {
		return ErrInvalidDuration
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return ErrAlreadyRunning
	}
	t.active = true
	t.remaining = hours*60 + minutes
	return nil
}

// Tick decrements the countdown by one minute and notifies subscribers.
// A tick on an idle timer is a no-op, so a stray tick after wake or expiry
// cannot fire a second ended notification.
func (t *Timer) Tick() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.remaining--
	if t.remaining <= 0 {
		t.remaining = 0
		t.active = false
		t.notifyLocked(Event{Kind: EventEnded})
		t.mu.Unlock()
		return
	}
	t.notifyLocked(Event{Kind: EventTick, Remaining: t.remaining})
	t.mu.Unlock()
}

// Wake ends the countdown early. Waking an idle timer is a no-op.
func (t *Timer) Wake() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.active = false
	t.remaining = 0
	t.notifyLocked(Event{Kind: EventEnded, Woken: true})
}

// Run drives the countdown from wall-clock time until it ends or ctx is
// cancelled. App exit cancels ctx, which silently abandons the countdown.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
			if t.State() == StateIdle {
				return
			}
		}
	}
}

// notifyLocked delivers to subscribers in order. A panicking listener is
// logged and skipped so it cannot block the others.
func (t *Timer) notifyLocked(ev Event) {
	for _, s := range t.subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "sleep: listener panic: %v\n", r)
				}
			}()
			s.fn(ev)
		}()
	}
}
