package iodev

import "time"

// Info is the opaque descriptor published to clients: name, stable ID,
// and whatever else the wire protocol needs. The core never looks inside
// it beyond copying it into snapshots.
type Info struct {
	StableID string
	Name     string
}

// Hooks is the capability surface a concrete device backend (ALSA, WCA,
// a Bluetooth link, the silent fallback) implements. Open/Close/IsOpen
// are mandatory; every other capability is optional and is detected with
// a type assertion against the small single-method interfaces below
// rather than a struct of nullable function pointers.
type Hooks interface {
	Open(format *Format) error
	Close() error
	IsOpen() bool
}

// VolumeSetter is implemented by devices that can set master volume.
type VolumeSetter interface {
	SetVolume(level int)
}

// MuteSetter is implemented by devices that can mute/unmute.
type MuteSetter interface {
	SetMute(muted bool)
}

// CaptureGainSetter is implemented by capture devices with gain control.
type CaptureGainSetter interface {
	SetCaptureGain(gain int)
}

// CaptureMuteSetter is implemented by capture devices that can mute.
type CaptureMuteSetter interface {
	SetCaptureMute(muted bool)
}

// ActiveNodeUpdater lets a device recompute its own active node after an
// external selection change affects it.
type ActiveNodeUpdater interface {
	UpdateActiveNode(node *Node)
}

// FormatSetter lets a device renegotiate its format after open.
type FormatSetter interface {
	SetFormat(format *Format) error
}

// Device is one logical audio endpoint: one ALSA PCM, one WCA endpoint,
// one Bluetooth link, or the synthetic fallback. It is never copied; the
// registry and every other package hold *Device.
type Device struct {
	Index     uint32
	Direction Direction
	Info      Info
	Hooks     Hooks

	Nodes      []*Node
	ActiveNode *Node
	IsActive   bool

	// IdleTimeout is a monotonic deadline; zero means no pending close.
	IdleTimeout time.Time

	Format    *Format
	ExtFormat *Format

	MinCbLevel uint32
	MaxCbLevel uint32
}

// AddNode appends a node to the device, owning the node's back-pointer.
func (d *Device) AddNode(n *Node) {
	n.device = d
	d.Nodes = append(d.Nodes, n)
}

// FindNode linear-searches this device's nodes by device-scoped index.
func (d *Device) FindNode(nodeIdx uint32) *Node {
	for _, n := range d.Nodes {
		if n.Idx == nodeIdx {
			return n
		}
	}
	return nil
}

// IsOpen reports whether the hook layer considers the device open.
func (d *Device) IsOpen() bool {
	return d.Hooks != nil && d.Hooks.IsOpen()
}

// HasPendingIdleTimeout reports whether a future idle-close is armed.
func (d *Device) HasPendingIdleTimeout() bool {
	return !d.IdleTimeout.IsZero()
}

// ClearIdleTimeout cancels any pending idle-close deadline.
func (d *Device) ClearIdleTimeout() {
	d.IdleTimeout = time.Time{}
}

// ClearFormat resets the negotiated format, as happens whenever the
// device is not open.
func (d *Device) ClearFormat() {
	d.Format = nil
	d.ExtFormat = nil
}
