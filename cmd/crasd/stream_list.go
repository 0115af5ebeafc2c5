package main

import (
	"github.com/crasgo/crasd/internal/iodev"
	"github.com/crasgo/crasd/internal/stream"
)

// emptyStreamList is a stream.List with no streams, ever. It stands in
// for the real Stream List external collaborator, whose wire protocol
// and client-session bookkeeping live outside this daemon entirely.
// crasd wires this so the process runs standalone, demonstrating
// device/node orchestration without a client transport.
type emptyStreamList struct{}

func (emptyStreamList) All() []*stream.Stream             { return nil }
func (emptyStreamList) HasDirection(iodev.Direction) bool { return false }
