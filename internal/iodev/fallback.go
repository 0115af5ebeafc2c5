package iodev

// Fixed indices for the two synthetic fallback devices, safely inside
// the reserved special-device region (< MaxSpecialDeviceIdx).
const (
	FallbackOutputIdx uint32 = 1
	FallbackInputIdx  uint32 = 2
)

type fallbackHooks struct {
	open bool
}

func (h *fallbackHooks) Open(format *Format) error { h.open = true; return nil }
func (h *fallbackHooks) Close() error               { h.open = false; return nil }
func (h *fallbackHooks) IsOpen() bool               { return h.open }

// NewFallback builds the always-available silent device for dir. One is
// created per direction at init and is never removed; it guarantees
// the guarantee that at least one device stays enabled per direction.
func NewFallback(dir Direction) *Device {
	idx := FallbackOutputIdx
	name := "Silent Output"
	if dir == Input {
		idx = FallbackInputIdx
		name = "Silent Input"
	}
	dev := &Device{
		Index:     idx,
		Direction: dir,
		Info:      Info{StableID: "fallback", Name: name},
		Hooks:     &fallbackHooks{},
	}
	node := &Node{Idx: 0, Type: NodeUnknown, Name: name, Plugged: true}
	dev.AddNode(node)
	dev.ActiveNode = node
	dev.IsActive = true
	return dev
}
