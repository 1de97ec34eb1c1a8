package analysis

import "github.com/ayusman/formcheck/internal/pose"

// History is a fixed-capacity FIFO ring of smoothed frames.
type History struct {
	buf   []pose.Frame
	start int
	size  int
}

// NewHistory creates an empty History holding at most capacity frames.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]pose.Frame, capacity)}
}

// Push appends f, evicting the oldest frame when full.
func (h *History) Push(f pose.Frame) {
	idx := (h.start + h.size) % len(h.buf)
	h.buf[idx] = f
	if h.size < len(h.buf) {
		h.size++
		return
	}
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of frames held.
func (h *History) Len() int {
	return h.size
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.buf)
}

// Frames returns the held frames ordered oldest to newest.
// The returned slice is a copy.
func (h *History) Frames() []pose.Frame {
	out := make([]pose.Frame, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// With returns the frames that would be held after pushing f, without modifying h.
func (h *History) With(f pose.Frame) []pose.Frame {
	frames := append(h.Frames(), f)
	if len(frames) > len(h.buf) {
		frames = frames[len(frames)-len(h.buf):]
	}
	return frames
}

// Reset empties the history.
func (h *History) Reset() {
	h.start = 0
	h.size = 0
}
