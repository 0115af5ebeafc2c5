package lifecycle

import (
	"testing"
	"time"

	"github.com/crasgo/crasd/internal/enable"
	"github.com/crasgo/crasd/internal/iodev"
	"github.com/crasgo/crasd/internal/stream"
	"github.com/crasgo/crasd/internal/timersvc"
	"github.com/crasgo/crasd/internal/worker"
)

type fakeHooks struct {
	open     bool
	openErr  error
	closeErr error
}

func (h *fakeHooks) Open(f *iodev.Format) error {
	if h.openErr != nil {
		return h.openErr
	}
	h.open = true
	return nil
}
func (h *fakeHooks) Close() error {
	h.open = false
	return h.closeErr
}
func (h *fakeHooks) IsOpen() bool { return h.open }

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

func setup() (*Controller, *timersvc.Fake, *worker.Fake, *enable.Set, *fakeList) {
	clk := timersvc.NewFake(time.Unix(0, 0))
	w := worker.NewFake()
	en := enable.New()
	list := &fakeList{}
	c := New(clk, w, en, list)
	return c, clk, w, en, list
}

func testDevice() *iodev.Device {
	return &iodev.Device{Direction: iodev.Output, Index: 11, Hooks: &fakeHooks{}}
}

func TestInitDeviceOpensAndRegisters(t *testing.T) {
	c, _, w, _, _ := setup()
	dev := testDevice()
	s := &stream.Stream{ID: 1, Direction: iodev.Output, CbThreshold: 480}

	if err := c.InitDevice(dev, s); err != nil {
		t.Fatalf("InitDevice: %v", err)
	}
	if !dev.IsOpen() {
		t.Fatalf("device should be open")
	}
	if !w.OpenDevs[dev.Index] {
		t.Fatalf("worker should have the device registered")
	}
	if dev.MinCbLevel != 480 {
		t.Fatalf("MinCbLevel = %d, want 480", dev.MinCbLevel)
	}
}

func TestInitDeviceRollsBackOnWorkerFailure(t *testing.T) {
	c, _, w, _, _ := setup()
	dev := testDevice()
	w.FailOpen[dev.Index] = true
	s := &stream.Stream{ID: 1, Direction: iodev.Output}

	err := c.InitDevice(dev, s)
	if err == nil {
		t.Fatalf("expected error from worker failure")
	}
	if dev.IsOpen() {
		t.Fatalf("device should have been closed after rollback")
	}
	if dev.Format != nil {
		t.Fatalf("format should be cleared after rollback")
	}
}

func TestCloseDevKeptAliveByPinnedStream(t *testing.T) {
	c, _, _, _, list := setup()
	dev := testDevice()
	s := &stream.Stream{ID: 1, Direction: iodev.Output}
	if err := c.InitDevice(dev, s); err != nil {
		t.Fatal(err)
	}
	list.streams = []*stream.Stream{{ID: 2, IsPinned: true, PinnedDevIdx: dev.Index}}

	if err := c.CloseDev(dev); err != nil {
		t.Fatal(err)
	}
	if !dev.IsOpen() {
		t.Fatalf("device should remain open: pinned stream still targets it")
	}
}

func TestIdleCloseSchedulesAndFires(t *testing.T) {
	c, clk, w, en, _ := setup()
	dev := testDevice()
	s := &stream.Stream{ID: 1, Direction: iodev.Output}
	if err := c.InitDevice(dev, s); err != nil {
		t.Fatal(err)
	}
	if _, err := en.Enable(dev, false); err != nil {
		t.Fatal(err)
	}

	c.ArmIdleClose(dev, clk.Now())
	if !dev.HasPendingIdleTimeout() {
		t.Fatalf("expected idle timeout to be armed")
	}
	if !c.HasArmedTimer() {
		t.Fatalf("expected idle timer scheduled")
	}

	clk.Advance(IdleTimeout - time.Second)
	if !dev.IsOpen() {
		t.Fatalf("device should not close before deadline")
	}

	clk.Advance(time.Second)
	if dev.IsOpen() {
		t.Fatalf("device should be closed after deadline")
	}
	if c.HasArmedTimer() {
		t.Fatalf("idle timer should be cleared once nothing is pending")
	}
	if w.OpenDevs[dev.Index] {
		t.Fatalf("worker should have dropped the device")
	}
}
