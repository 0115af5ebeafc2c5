package router

import (
	"testing"
	"time"

	"github.com/crasgo/crasd/internal/enable"
	"github.com/crasgo/crasd/internal/iodev"
	"github.com/crasgo/crasd/internal/lifecycle"
	"github.com/crasgo/crasd/internal/stream"
	"github.com/crasgo/crasd/internal/timersvc"
	"github.com/crasgo/crasd/internal/worker"
)

type hooks struct{ open bool }

func (h *hooks) Open(f *iodev.Format) error { h.open = true; return nil }
func (h *hooks) Close() error               { h.open = false; return nil }
func (h *hooks) IsOpen() bool               { return h.open }

type fakeList struct{ streams []*stream.Stream }

func (l *fakeList) All() []*stream.Stream { return l.streams }
func (l *fakeList) HasDirection(dir iodev.Direction) bool {
	for _, s := range l.streams {
		if s.Direction == dir {
			return true
		}
	}
	return false
}

type harness struct {
	reg   *iodev.Registry
	en    *enable.Set
	clk   *timersvc.Fake
	w     *worker.Fake
	lc    *lifecycle.Controller
	list  *fakeList
	route *Router
}

func newHarness() *harness {
	reg := iodev.NewRegistry()
	en := enable.New()
	clk := timersvc.NewFake(time.Unix(0, 0))
	w := worker.NewFake()
	list := &fakeList{}
	lc := lifecycle.New(clk, w, en, list)
	return &harness{reg: reg, en: en, clk: clk, w: w, lc: lc, list: list, route: New(reg, en, lc, w, list)}
}

func (h *harness) addEnabled(dir iodev.Direction) *iodev.Device {
	dev := &iodev.Device{Direction: dir, Hooks: &hooks{}}
	if err := h.reg.Add(dev); err != nil {
		panic(err)
	}
	if _, err := h.en.Enable(dev, false); err != nil {
		panic(err)
	}
	return dev
}

func TestStreamAddedOpensAllEnabledOutputs(t *testing.T) {
	h := newHarness()
	o1 := h.addEnabled(iodev.Output)
	o2 := h.addEnabled(iodev.Output)
	s := &stream.Stream{ID: 1, Direction: iodev.Output}

	if err := h.route.StreamAdded(s); err != nil {
		t.Fatalf("StreamAdded: %v", err)
	}
	if !o1.IsOpen() || !o2.IsOpen() {
		t.Fatalf("both enabled outputs should be open")
	}
	if !h.w.Attached(o1, s) || !h.w.Attached(o2, s) {
		t.Fatalf("stream should be attached to both devices")
	}
}

func TestStreamAddedPinnedInvalidTarget(t *testing.T) {
	h := newHarness()
	s := &stream.Stream{ID: 1, Direction: iodev.Output, IsPinned: true, PinnedDevIdx: 999}

	if err := h.route.StreamAdded(s); err != iodev.ErrInvalid {
		t.Fatalf("StreamAdded pinned to missing device: got %v, want ErrInvalid", err)
	}
}

func TestStreamAddedSwallowsPerDeviceFailure(t *testing.T) {
	h := newHarness()
	o1 := h.addEnabled(iodev.Output)
	o2 := h.addEnabled(iodev.Output)
	h.w.FailAttach[o1.Index] = true
	s := &stream.Stream{ID: 1, Direction: iodev.Output}

	if err := h.route.StreamAdded(s); err != nil {
		t.Fatalf("StreamAdded should swallow per-device attach failure: %v", err)
	}
	if h.w.Attached(o1, s) {
		t.Fatalf("o1 attach should have failed")
	}
	if !h.w.Attached(o2, s) {
		t.Fatalf("o2 should still receive the stream")
	}
}

func TestStreamRemovedOutputArmsIdleThenCloses(t *testing.T) {
	h := newHarness()
	o1 := h.addEnabled(iodev.Output)
	s := &stream.Stream{ID: 1, Direction: iodev.Output}
	h.list.streams = []*stream.Stream{s}
	if err := h.route.StreamAdded(s); err != nil {
		t.Fatal(err)
	}

	h.list.streams = nil // stream removed from the external list
	ms, err := h.route.StreamRemoved(s)
	if err != nil {
		t.Fatalf("StreamRemoved: %v", err)
	}
	if ms != 0 {
		t.Fatalf("drain ms = %d, want 0 (fake worker drains instantly)", ms)
	}
	if !o1.IsOpen() {
		t.Fatalf("output should not close immediately, only after idle timeout")
	}
	if !o1.HasPendingIdleTimeout() {
		t.Fatalf("expected idle timeout armed")
	}

	h.clk.Advance(lifecycle.IdleTimeout)
	if o1.IsOpen() {
		t.Fatalf("output should be closed after idle timeout elapses")
	}
}

func TestStreamRemovedInputClosesImmediately(t *testing.T) {
	h := newHarness()
	i1 := h.addEnabled(iodev.Input)
	s := &stream.Stream{ID: 1, Direction: iodev.Input}
	h.list.streams = []*stream.Stream{s}
	if err := h.route.StreamAdded(s); err != nil {
		t.Fatal(err)
	}

	h.list.streams = nil
	if _, err := h.route.StreamRemoved(s); err != nil {
		t.Fatal(err)
	}
	if i1.IsOpen() {
		t.Fatalf("input should close immediately, no idle grace period")
	}
	if i1.HasPendingIdleTimeout() {
		t.Fatalf("input should never get an idle timeout")
	}
}

func TestStreamRemovedPositiveDrainIsNotAnError(t *testing.T) {
	h := newHarness()
	o1 := h.addEnabled(iodev.Output)
	s := &stream.Stream{ID: 1, Direction: iodev.Output}
	h.list.streams = []*stream.Stream{s}
	if err := h.route.StreamAdded(s); err != nil {
		t.Fatal(err)
	}
	h.w.DrainMs[s.ID] = 250

	ms, err := h.route.StreamRemoved(s)
	if err != nil {
		t.Fatalf("positive drain should not be an error: %v", err)
	}
	if ms != 250 {
		t.Fatalf("ms = %d, want 250", ms)
	}
	if !o1.IsOpen() {
		t.Fatalf("device should remain untouched until drain completes")
	}
}
