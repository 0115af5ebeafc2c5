package iodev

// Format is the negotiated PCM format of an open device. The core never
// interprets samples; it only carries the format tuple between the
// stream that requested it and the hooks that open/configure hardware.
type Format struct {
	RateHz      uint32
	NumChannels uint32
	SampleBits  uint32
}

// Equal reports whether two formats describe the same PCM layout.
func (f Format) Equal(o Format) bool {
	return f.RateHz == o.RateHz && f.NumChannels == o.NumChannels && f.SampleBits == o.SampleBits
}
