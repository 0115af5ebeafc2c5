//go:build linux

package hwdev

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/jochenvg/go-udev"

	"github.com/crasgo/crasd/internal/iodev"
)

// udevEnumerator backs Probe/Watch with the "sound" subsystem of the
// kernel device tree. It does not open PCM devices itself — opening
// ALSA hardware is out of scope here, so each returned
// Device's Hooks is a nullHooks that only tracks open/closed state and
// records the enumerated card path for whatever backend cmd/crasd wires
// in next.
type udevEnumerator struct {
	u udev.Udev

	mu sync.Mutex
	cancel context.CancelFunc
	ch chan struct{}
}

// New returns the Linux Enumerator.
func New() Enumerator {
	return &udevEnumerator{u: udev.Udev{}}
}

// Probe enumerates udev's "sound" subsystem. ALSA exposes one syspath
// per card/device pair; dir filters by name suffix since udev has no
// notion of playback vs capture direction at the card level — the
// actual PCM subdevice (c for capture, p for playback) does.
func (e *udevEnumerator) Probe(dir iodev.Direction) ([]*iodev.Device, error) {
	enum := e.u.NewEnumerate()
	if err := enum.AddMatchSubsystem("sound"); err != nil {
		return nil, err
	}
	if err := enum.AddMatchIsInitialized(); err != nil {
		return nil, err
	}

	udevs, err := enum.Devices()
	if err != nil {
		return nil, err
	}

	suffix := "p"
	if dir == iodev.Input {
		suffix = "c"
	}

	var devices []*iodev.Device
	for _, d := range udevs {
		sysname := d.Sysname()
		if !strings.HasPrefix(sysname, "pcmC") || !strings.HasSuffix(sysname, suffix) {
			continue
		}

		name := d.PropertyValue("ID_MODEL")
		if name == "" {
			name = sysname
		}

		dev := &iodev.Device{
			Direction: dir,
			Info: iodev.Info{StableID: d.Syspath(), Name: name},
			Hooks: &nullHooks{devnode: d.Devnode()},
		}
		dev.AddNode(&iodev.Node{Idx: 0, Name: name, Plugged: true})
		devices = append(devices, dev)
	}
	return devices, nil
}

// Watch starts a netlink monitor on the "sound" subsystem and signals
// once per batch of udev events, coalescing bursts the same way the
// Windows backend's notifier does.
func (e *udevEnumerator) Watch() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ch != nil {
		return e.ch
	}

	mon := e.u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("sound"); err != nil {
		log.Printf("hwdev: udev monitor filter: %v", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := mon.DeviceChan(ctx)
	if err != nil {
		log.Printf("hwdev: udev monitor start: %v", err)
		cancel()
		return nil
	}

	ch := make(chan struct{}, 1)
	e.cancel = cancel
	e.ch = ch

	go func() {
		for range events {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch
}

func (e *udevEnumerator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// nullHooks is the placeholder Hooks for an enumerated-but-unopened
// ALSA node: it tracks only the open/closed bit. Real PCM I/O against
// devnode is the Audio Worker's concern,
// not this package's.
type nullHooks struct {
	mu      sync.Mutex
	devnode string
	isOpen  bool
}

func (h *nullHooks) Open(*iodev.Format) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isOpen = true
	return nil
}

func (h *nullHooks) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isOpen = false
	return nil
}

func (h *nullHooks) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isOpen
}
