// Package hwdev provides the concrete hardware-backed implementations of
// iodev.Hooks: the "open real hardware" capability behind a registered
// Device's open/close/is_open/set_volume/set_mute hooks. cmd/crasd picks the build
// for its platform; everything else in this repository only ever sees
// the iodev.Hooks interface.
package hwdev

import "github.com/crasgo/crasd/internal/iodev"

// Enumerator lists the hardware endpoints currently present and can
// watch for hotplug changes. Each platform build provides exactly one
// concrete Enumerator; cmd/crasd is the only caller.
type Enumerator interface {
	// Probe returns one Device per hardware endpoint currently present
	// for dir, unregistered (Index == 0) and ready to hand to
	// core.Core's AddOutput/AddInput.
	Probe(dir iodev.Direction) ([]*iodev.Device, error)

	// Watch returns a channel that receives a signal whenever the set
	// of hardware endpoints may have changed (a device was plugged or
	// unplugged). The caller re-Probes on each signal; the channel
	// itself carries no payload. A nil channel means this platform
	// cannot watch for hotplug and the caller must poll on its own
	// schedule instead.
	Watch() <-chan struct{}

	// Close releases whatever platform resources Watch and Probe hold.
	Close()
}
