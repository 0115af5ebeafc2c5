package selection

import (
	"testing"
	"time"

	"github.com/crasgo/crasd/internal/enable"
	"github.com/crasgo/crasd/internal/iodev"
	"github.com/crasgo/crasd/internal/lifecycle"
	"github.com/crasgo/crasd/internal/notify"
	"github.com/crasgo/crasd/internal/router"
	"github.com/crasgo/crasd/internal/stream"
	"github.com/crasgo/crasd/internal/timersvc"
	"github.com/crasgo/crasd/internal/worker"
)

type hooks struct {
	open       bool
	activeNode *iodev.Node
}

func (h *hooks) Open(f *iodev.Format) error    { h.open = true; return nil }
func (h *hooks) Close() error                  { h.open = false; return nil }
func (h *hooks) IsOpen() bool                  { return h.open }
func (h *hooks) UpdateActiveNode(n *iodev.Node) { h.activeNode = n }

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
	reg    *iodev.Registry
	en     *enable.Set
	hub    *notify.Hub
	policy *Policy
	list   *fakeList
}

func newHarness() *harness {
	reg := iodev.NewRegistry()
	en := enable.New()
	clk := timersvc.NewFake(time.Unix(0, 0))
	w := worker.NewFake()
	list := &fakeList{}
	lc := lifecycle.New(clk, w, en, list)
	route := router.New(reg, en, lc, w, list)
	hub := notify.NewHub(func() notify.Snapshot { return notify.Snapshot{} })

	for _, dir := range []iodev.Direction{iodev.Output, iodev.Input} {
		if err := reg.AddFixed(iodev.NewFallback(dir)); err != nil {
			panic(err)
		}
		if _, err := en.Enable(reg.Find(fallbackIdx(dir)), false); err != nil {
			panic(err)
		}
	}

	return &harness{reg: reg, en: en, hub: hub, policy: New(reg, en, route, hub), list: list}
}

func fallbackIdx(dir iodev.Direction) uint32 {
	if dir == iodev.Input {
		return iodev.FallbackInputIdx
	}
	return iodev.FallbackOutputIdx
}

func (h *harness) addDevice(dir iodev.Direction, nodeIdx uint32) (*iodev.Device, *iodev.Node) {
	dev := &iodev.Device{Direction: dir, Hooks: &hooks{}}
	node := &iodev.Node{Idx: nodeIdx, Name: "node"}
	dev.AddNode(node)
	if err := h.reg.Add(dev); err != nil {
		panic(err)
	}
	return dev, node
}

func TestSelectNodeSwitchesActiveDevice(t *testing.T) {
	h := newHarness()
	o1, n1 := h.addDevice(iodev.Output, 1)
	o2, n2 := h.addDevice(iodev.Output, 1)

	if h.en.IsEnabled(o1) || h.en.IsEnabled(o2) {
		t.Fatalf("neither real device should start enabled")
	}
	fb := h.reg.Find(iodev.FallbackOutputIdx)
	if !h.en.IsEnabled(fb) {
		t.Fatalf("fallback should start enabled")
	}

	if err := h.policy.SelectNode(iodev.Output, n2.ID()); err != nil {
		t.Fatalf("SelectNode o2: %v", err)
	}
	if h.en.IsEnabled(fb) {
		t.Fatalf("fallback should be disabled once a real device is selected")
	}
	if !h.en.IsEnabled(o2) || h.en.IsEnabled(o1) {
		t.Fatalf("o2 should be enabled, o1 should not")
	}

	fired := 0
	h.hub.ActiveNodeChanged.Subscribe(func() { fired++ })
	if err := h.policy.SelectNode(iodev.Output, n1.ID()); err != nil {
		t.Fatalf("SelectNode o1: %v", err)
	}
	h.hub.Flush()
	if fired != 1 {
		t.Fatalf("active-node-changed should fire exactly once, got %d", fired)
	}
	if !h.en.IsEnabled(o1) || h.en.IsEnabled(o2) {
		t.Fatalf("o1 should now be enabled, o2 disabled")
	}
	if o2.IsOpen() {
		t.Fatalf("o2 should have been closed")
	}
}

func TestPinnedStreamSurvivesDisable(t *testing.T) {
	h := newHarness()
	i1, n1 := h.addDevice(iodev.Input, 1)
	if err := h.policy.AddActiveNode(iodev.Input, n1.ID()); err != nil {
		t.Fatalf("AddActiveNode: %v", err)
	}
	if !h.en.IsEnabled(i1) {
		t.Fatalf("i1 should be enabled")
	}

	pinned := &stream.Stream{ID: 1, Direction: iodev.Input, IsPinned: true, PinnedDevIdx: i1.Index}
	h.list.streams = []*stream.Stream{pinned}
	i1.Hooks.(*hooks).open = true // simulate the pinned stream having opened it

	if err := h.policy.RmActiveNode(iodev.Input, n1.ID()); err != nil {
		t.Fatalf("RmActiveNode: %v", err)
	}
	if !i1.IsOpen() {
		t.Fatalf("i1 should remain open: pinned stream still targets it")
	}
	fb := h.reg.Find(iodev.FallbackInputIdx)
	if !h.en.IsEnabled(fb) {
		t.Fatalf("fallback should be enabled once the real device list is empty")
	}
}

func TestFallbackGuaranteeAfterRmActiveNode(t *testing.T) {
	h := newHarness()
	o1, n1 := h.addDevice(iodev.Output, 1)
	if err := h.policy.AddActiveNode(iodev.Output, n1.ID()); err != nil {
		t.Fatalf("AddActiveNode: %v", err)
	}
	if err := h.policy.RmActiveNode(iodev.Output, n1.ID()); err != nil {
		t.Fatalf("RmActiveNode: %v", err)
	}

	fb := h.reg.Find(iodev.FallbackOutputIdx)
	if !h.en.IsEnabled(fb) {
		t.Fatalf("fallback should be enabled")
	}
	if h.en.IsEnabled(o1) {
		t.Fatalf("o1 should be disabled")
	}
	if id := h.policy.GetActiveNodeID(iodev.Output); id == 0 {
		t.Fatalf("GetActiveNodeID should return the fallback's non-zero node id")
	}
}
