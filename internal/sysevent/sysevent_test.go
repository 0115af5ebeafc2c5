package sysevent

import (
	"testing"
	"time"

	"github.com/crasgo/crasd/internal/enable"
	"github.com/crasgo/crasd/internal/iodev"
	"github.com/crasgo/crasd/internal/lifecycle"
	"github.com/crasgo/crasd/internal/router"
	"github.com/crasgo/crasd/internal/stream"
	"github.com/crasgo/crasd/internal/timersvc"
	"github.com/crasgo/crasd/internal/worker"
)

type hooks struct {
	open        bool
	volume      int
	muted       bool
	captureGain int
	captureMute bool
}

func (h *hooks) Open(f *iodev.Format) error { h.open = true; return nil }
func (h *hooks) Close() error               { h.open = false; return nil }
func (h *hooks) IsOpen() bool               { return h.open }
func (h *hooks) SetVolume(level int)        { h.volume = level }
func (h *hooks) SetMute(muted bool)         { h.muted = muted }
func (h *hooks) SetCaptureGain(gain int)    { h.captureGain = gain }
func (h *hooks) SetCaptureMute(muted bool)  { h.captureMute = muted }

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
	reg  *iodev.Registry
	en   *enable.Set
	lc   *lifecycle.Controller
	h    *Handler
	list *fakeList
	w    *worker.Fake
}

func newHarness() *harness {
	reg := iodev.NewRegistry()
	en := enable.New()
	clk := timersvc.NewFake(time.Unix(0, 0))
	w := worker.NewFake()
	list := &fakeList{}
	lc := lifecycle.New(clk, w, en, list)
	route := router.New(reg, en, lc, w, list)
	h := New(reg, en, lc, route, w, list)
	return &harness{reg: reg, en: en, lc: lc, h: h, list: list, w: w}
}

func (hn *harness) addEnabled(dir iodev.Direction, idx uint32) *iodev.Device {
	dev := &iodev.Device{Index: idx, Direction: dir, Hooks: &hooks{}}
	if err := hn.reg.AddFixed(dev); err != nil {
		panic(err)
	}
	if _, err := hn.en.Enable(dev, false); err != nil {
		panic(err)
	}
	return dev
}

// addRegisteredOnly registers dev without enabling it, modeling a device a
// pinned stream still targets after rm_active_node disabled it.
func (hn *harness) addRegisteredOnly(dir iodev.Direction, idx uint32) *iodev.Device {
	dev := &iodev.Device{Index: idx, Direction: dir, Hooks: &hooks{}}
	if err := hn.reg.AddFixed(dev); err != nil {
		panic(err)
	}
	return dev
}

func TestVolumeChangedOnlyTouchesOpenDevices(t *testing.T) {
	h := newHarness()
	open := h.addEnabled(iodev.Output, 20)
	closed := h.addEnabled(iodev.Output, 21)
	open.Hooks.(*hooks).open = true

	h.h.VolumeChanged(iodev.Output, 42)

	if got := open.Hooks.(*hooks).volume; got != 42 {
		t.Fatalf("open device volume = %d, want 42", got)
	}
	if got := closed.Hooks.(*hooks).volume; got != 0 {
		t.Fatalf("closed device volume = %d, want untouched (0)", got)
	}
}

func TestMuteAndCaptureEventsRouteByDirection(t *testing.T) {
	h := newHarness()
	out := h.addEnabled(iodev.Output, 20)
	in := h.addEnabled(iodev.Input, 21)
	out.Hooks.(*hooks).open = true
	in.Hooks.(*hooks).open = true

	h.h.MuteChanged(iodev.Output, true)
	if !out.Hooks.(*hooks).muted {
		t.Fatalf("output device should be muted")
	}
	if in.Hooks.(*hooks).muted {
		t.Fatalf("mute_changed(Output) must not touch the input device")
	}

	h.h.CaptureGainChanged(7)
	if got := in.Hooks.(*hooks).captureGain; got != 7 {
		t.Fatalf("capture gain = %d, want 7", got)
	}
	if got := out.Hooks.(*hooks).captureGain; got != 0 {
		t.Fatalf("capture_gain_changed must not touch output devices")
	}

	h.h.CaptureMuteChanged(true)
	if !in.Hooks.(*hooks).captureMute {
		t.Fatalf("input device should have capture mute set")
	}
}

// TestSuspendResumeRoundTrip is scenario 7: enable O1, attach a default
// stream so O1 opens; suspend must detach the stream and close O1;
// resume must reopen O1 and reattach the stream.
func TestSuspendResumeRoundTrip(t *testing.T) {
	h := newHarness()
	o1 := h.addEnabled(iodev.Output, 20)

	s1 := &stream.Stream{ID: 1, Direction: iodev.Output}
	h.list.streams = []*stream.Stream{s1}
	if err := h.lc.InitDevice(o1, s1); err != nil {
		t.Fatalf("InitDevice: %v", err)
	}
	if err := h.w.AddStream(o1, s1); err != nil {
		t.Fatalf("AddStream: %v", err)
	}
	if !o1.IsOpen() || !h.w.Attached(o1, s1) {
		t.Fatalf("setup: o1 should be open with s1 attached")
	}

	h.h.Suspend()
	if o1.IsOpen() {
		t.Fatalf("suspend should have closed o1")
	}
	if h.w.Attached(o1, s1) {
		t.Fatalf("suspend should have detached s1")
	}

	h.h.Resume()
	if !o1.IsOpen() {
		t.Fatalf("resume should have reopened o1")
	}
	if !h.w.Attached(o1, s1) {
		t.Fatalf("resume should have reattached s1")
	}
}

func TestSuspendDetachesPinnedStreamOnlyFromItsTarget(t *testing.T) {
	h := newHarness()
	o1 := h.addEnabled(iodev.Output, 20)
	o2 := h.addEnabled(iodev.Output, 21)

	pinned := &stream.Stream{ID: 5, Direction: iodev.Output, IsPinned: true, PinnedDevIdx: o1.Index}
	h.list.streams = []*stream.Stream{pinned}
	if err := h.lc.InitDevice(o1, pinned); err != nil {
		t.Fatalf("InitDevice: %v", err)
	}
	if err := h.w.AddStream(o1, pinned); err != nil {
		t.Fatalf("AddStream: %v", err)
	}

	h.h.Suspend()
	if h.w.Attached(o1, pinned) {
		t.Fatalf("pinned stream should be detached from its target on suspend")
	}
	if o2.IsOpen() {
		t.Fatalf("o2 was never opened; suspend must not open it")
	}
}

// TestSuspendResumePinnedStreamOnDisabledDevice covers the state left by
// scenario 4 (rm_active_node disables a device while a pinned stream keeps
// it open): the target device is never in the enabled set, so suspend/
// resume must still find it through the registry rather than silently
// dropping the stream from the cycle.
func TestSuspendResumePinnedStreamOnDisabledDevice(t *testing.T) {
	h := newHarness()
	dev := h.addRegisteredOnly(iodev.Output, 30)

	pinned := &stream.Stream{ID: 9, Direction: iodev.Output, IsPinned: true, PinnedDevIdx: dev.Index}
	h.list.streams = []*stream.Stream{pinned}
	if err := h.lc.InitDevice(dev, pinned); err != nil {
		t.Fatalf("InitDevice: %v", err)
	}
	if err := h.w.AddStream(dev, pinned); err != nil {
		t.Fatalf("AddStream: %v", err)
	}

	h.h.Suspend()
	if h.w.Attached(dev, pinned) {
		t.Fatalf("suspend should have detached the pinned stream even though its device is disabled")
	}

	h.h.Resume()
	if !h.w.Attached(dev, pinned) {
		t.Fatalf("resume should have reattached the pinned stream to its disabled-but-registered device")
	}
}
