// Package timersvc is the Timer Service external collaborator:
// create_timer(ms, cb) / cancel_timer(h). Only the
// idle-close path uses it; everything else in the core runs to
// completion synchronously.
package timersvc

import "time"

// Handle identifies one scheduled timer for later cancellation.
type Handle interface{}

// Service is the narrow timer surface the core depends on.
type Service interface {
	Now() time.Time
	CreateTimer(d time.Duration, cb func()) Handle
	CancelTimer(h Handle)
}

// Real is a Service backed by the wall clock and time.AfterFunc. Timer
// callbacks fire on their own goroutine, exactly like a real kernel
// timer signal would; callers (core.Core) serialize them behind their
// own mutex before touching any state.
type Real struct{}

// NewReal returns the wall-clock Service.
func NewReal() *Real { return &Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) CreateTimer(d time.Duration, cb func()) Handle {
	return time.AfterFunc(d, cb)
}

func (Real) CancelTimer(h Handle) {
	if t, ok := h.(*time.Timer); ok {
		t.Stop()
	}
}

type fakeTimer struct {
	deadline time.Time
	cb       func()
	canceled bool
}

// Fake is a virtual-clock Service for deterministic tests. Time only
// moves when Advance is called; due timers fire synchronously on the
// calling goroutine in deadline order.
type Fake struct {
	now    time.Time
	timers []*fakeTimer
}

// NewFake returns a Fake clock starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time { return f.now }

func (f *Fake) CreateTimer(d time.Duration, cb func()) Handle {
	t := &fakeTimer{deadline: f.now.Add(d), cb: cb}
	f.timers = append(f.timers, t)
	return t
}

func (f *Fake) CancelTimer(h Handle) {
	if t, ok := h.(*fakeTimer); ok {
		t.canceled = true
	}
}

// Advance moves the virtual clock forward by d and fires every timer
// whose deadline is now due, earliest first. Firing a timer may itself
// schedule new timers; those are eligible in the same Advance call only
// if their deadline also falls at or before the new now.
func (f *Fake) Advance(d time.Duration) {
	f.now = f.now.Add(d)
	for {
		due := f.dueTimer()
		if due == nil {
			return
		}
		due.canceled = true // one-shot: consumed once fired
		due.cb()
	}
}

func (f *Fake) dueTimer() *fakeTimer {
	var best *fakeTimer
	for _, t := range f.timers {
		if t.canceled {
			continue
		}
		if t.deadline.After(f.now) {
			continue
		}
		if best == nil || t.deadline.Before(best.deadline) {
			best = t
		}
	}
	return best
}

// Pending returns the number of live (not fired, not canceled) timers,
// for test assertions that an idle timer was armed or cleared.
func (f *Fake) Pending() int {
	n := 0
	for _, t := range f.timers {
		if !t.canceled {
			n++
		}
	}
	return n
}
