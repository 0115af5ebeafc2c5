// Package enable implements the Enablement Set: the
// per-direction record of which devices are eligible to receive default
// streams right now.
package enable

import "github.com/crasgo/crasd/internal/iodev"

// Entry is one device on a direction's enablement list.
type Entry struct {
	Device           *iodev.Device
	ForPinnedStreams bool
}

// Set tracks enablement per direction as an ordered list (append order
// preserved; a plain slice gives the same observable order a doubly
// linked list would, with none of the pointer bookkeeping).
type Set struct {
	entries [2][]*Entry
}

// New returns an empty enablement set.
func New() *Set {
	return &Set{}
}

// IsEnabled linear-searches whether dev currently has an entry.
func (s *Set) IsEnabled(dev *iodev.Device) bool {
	return s.entry(dev) != nil
}

// entry returns dev's enablement entry, or nil.
func (s *Set) entry(dev *iodev.Device) *Entry {
	for _, e := range s.entries[dev.Direction] {
		if e.Device == dev {
			return e
		}
	}
	return nil
}

// Enable appends a new entry for dev. Fails with ErrDuplicate if dev is
// already enabled.
func (s *Set) Enable(dev *iodev.Device, forPinnedStreams bool) (*Entry, error) {
	if s.IsEnabled(dev) {
		return nil, iodev.ErrDuplicate
	}
	e := &Entry{Device: dev, ForPinnedStreams: forPinnedStreams}
	s.entries[dev.Direction] = append(s.entries[dev.Direction], e)
	return e, nil
}

// Disable removes e from its direction's list. No-op if e is already
// gone (tolerates being called twice during a race with suspend).
func (s *Set) Disable(e *Entry) {
	list := s.entries[e.Device.Direction]
	for i, cur := range list {
		if cur == e {
			s.entries[e.Device.Direction] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// DisableDevice removes dev's entry, if any, and reports whether one was
// found and removed.
func (s *Set) DisableDevice(dev *iodev.Device) bool {
	e := s.entry(dev)
	if e == nil {
		return false
	}
	s.Disable(e)
	return true
}

// List returns dir's enablement entries in insertion order. Callers must
// not mutate the returned slice.
func (s *Set) List(dir iodev.Direction) []*Entry {
	return s.entries[dir]
}

// Empty reports whether dir currently has no enabled devices.
func (s *Set) Empty(dir iodev.Direction) bool {
	return len(s.entries[dir]) == 0
}

// PossiblyDisableFallback disables the fallback device for dir if it is
// currently enabled. Used when a real device is about to become active,
// so a direction is never briefly left with two enabled devices when a
// real one takes over from fallback.
func (s *Set) PossiblyDisableFallback(dir iodev.Direction) bool {
	fallbackIdx := iodev.FallbackOutputIdx
	if dir == iodev.Input {
		fallbackIdx = iodev.FallbackInputIdx
	}
	for _, e := range s.entries[dir] {
		if e.Device.Index == fallbackIdx {
			s.Disable(e)
			return true
		}
	}
	return false
}
