package state

import "github.com/mwfern/vmdeck/internal/device"

// logRing is a fixed-capacity FIFO buffer of log lines. When full, pushing
// evicts the oldest entry.
type logRing struct {
	buf   []device.LogLine
	start int
	count int
}

func newLogRing(capacity int) *logRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &logRing{buf: make([]device.LogLine, capacity)}
}

func (r *logRing) push(line device.LogLine) {
	idx := (r.start + r.count) % len(r.buf)
	r.buf[idx] = line
	if r.count < len(r.buf) {
		r.count++
		return
	}
	// Full: the slot we just wrote was the oldest entry.
	r.start = (r.start + 1) % len(r.buf)
}

func (r *logRing) len() int { return r.count }

func (r *logRing) clear() {
	r.start = 0
	r.count = 0
}

// list returns the buffered lines, oldest first.
func (r *logRing) list() []device.LogLine {
	out := make([]device.LogLine, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
