// Package iodev holds the device and node registry: the data model shared
// by every other orchestration package (enable, stream, lifecycle,
// selection, sysevent, notify, core).
package iodev

import "errors"

// Error taxonomy for registry and capability operations. All are
// comparable sentinel values usable with errors.Is; callers never need
// to inspect message text.
var (
	ErrInvalid     = errors.New("iodev: invalid argument")
	ErrDuplicate   = errors.New("iodev: already present")
	ErrNotFound    = errors.New("iodev: not found")
	ErrBusy        = errors.New("iodev: device busy")
	ErrOutOfMemory = errors.New("iodev: out of memory")
	ErrHwFailure   = errors.New("iodev: hardware failure")
)
