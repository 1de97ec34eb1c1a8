package analysis

import "github.com/ayusman/formcheck/internal/pose"

// Smoother is a confidence-gated, linearly weighted moving average over the most
// recent raw frames. Newer frames carry more weight.
type Smoother struct {
	size      int
	threshold float64
	window    []pose.Frame
}

// NewSmoother creates a Smoother averaging up to size frames, using only landmarks
// whose confidence exceeds threshold.
func NewSmoother(size int, threshold float64) *Smoother {
	if size < 1 {
		size = 1
	}
	return &Smoother{
		size:      size,
		threshold: threshold,
		window:    make([]pose.Frame, 0, size),
	}
}

// Smooth pushes f into the window and returns the smoothed frame and the fraction
// of its landmarks that cleared the threshold.
func (s *Smoother) Smooth(f pose.Frame) (pose.Frame, float64) {
	s.Push(f)
	return smoothWindow(s.window, s.threshold)
}

// Preview returns what Smooth would return without modifying the window.
func (s *Smoother) Preview(f pose.Frame) (pose.Frame, float64) {
	return smoothWindow(s.next(f), s.threshold)
}

// Push adds f to the window, evicting the oldest frame when full.
func (s *Smoother) Push(f pose.Frame) {
	s.window = s.next(f)
}

// Len returns the number of frames in the window.
func (s *Smoother) Len() int {
	return len(s.window)
}

// Reset empties the window.
func (s *Smoother) Reset() {
	s.window = s.window[:0]
}

func (s *Smoother) next(f pose.Frame) []pose.Frame {
	start := 0
	if len(s.window) >= s.size {
		start = len(s.window) - s.size + 1
	}
	out := make([]pose.Frame, 0, s.size)
	out = append(out, s.window[start:]...)
	return append(out, f)
}

// smoothWindow averages each landmark over window (oldest first). The i-th oldest
// frame has weight (i+1)/sum(1..n); weights of skipped entries are renormalized away.
// A landmark with no confident entry passes through from the newest frame.
func smoothWindow(window []pose.Frame, threshold float64) (pose.Frame, float64) {
	if len(window) == 0 {
		return pose.Frame{}, 0
	}
	newest := window[len(window)-1]
	out := pose.Frame{Timestamp: newest.Timestamp}

	n := len(window)
	total := float64(n*(n+1)) / 2

	var confident int
	for j := 0; j < pose.NumLandmarks; j++ {
		var x, y, c, wsum float64
		for i, f := range window {
			p := f.Points[j]
			if !p.Valid(threshold) {
				continue
			}
			w := float64(i+1) / total
			x += p.X * w
			y += p.Y * w
			c += p.Confidence * w
			wsum += w
		}
		if wsum == 0 {
			out.Points[j] = newest.Points[j]
			continue
		}
		out.Points[j] = pose.Landmark{X: x / wsum, Y: y / wsum, Confidence: c / wsum}
		confident++
	}
	return out, float64(confident) / pose.NumLandmarks
}
