package notify

import (
	"sync/atomic"

	"github.com/crasgo/crasd/internal/iodev"
)

// NodeInfo is the published, client-facing view of a Node.
type NodeInfo struct {
	ID          iodev.CompositeNodeID
	Type        iodev.NodeType
	Name        string
	Plugged     bool
	Volume      int
	CaptureGain int
}

// DirectionSnapshot is the published view of one direction's devices,
// capped to the registry's fixed-size limits.
type DirectionSnapshot struct {
	DeviceCount    int
	Devices        []iodev.Info
	Nodes          []NodeInfo
	SelectedNodeID iodev.CompositeNodeID
}

// Snapshot is the full process-wide published state: one
// DirectionSnapshot per direction.
type Snapshot struct {
	Output DirectionSnapshot
	Input  DirectionSnapshot
}

// Store holds the current Snapshot behind a seqlock: readers never block
// a writer and a writer never blocks a reader. UpdateBegin/UpdateComplete
// bracket a write with a two-phase handshake; Load retries if it
// observes a write in flight.
type Store struct {
	seq   atomic.Uint64
	value atomic.Pointer[Snapshot]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.value.Store(&Snapshot{})
	return s
}

// UpdateBegin marks the start of a write: the sequence counter becomes
// odd, signaling any concurrent Load to retry.
func (s *Store) UpdateBegin() {
	s.seq.Add(1)
}

// UpdateComplete installs next and marks the write finished: the
// sequence counter becomes even again.
func (s *Store) UpdateComplete(next Snapshot) {
	s.value.Store(&next)
	s.seq.Add(1)
}

// Load returns the most recently completed Snapshot. It never observes
// a torn write: if UpdateBegin/UpdateComplete is in progress it retries.
func (s *Store) Load() Snapshot {
	for {
		before := s.seq.Load()
		if before%2 == 1 {
			continue // write in flight, spin
		}
		v := *s.value.Load()
		after := s.seq.Load()
		if before == after {
			return v
		}
	}
}
