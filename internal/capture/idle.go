package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	blurKernel    = 21
	diffThreshold = 25
)

// IdleGate reports whether a camera scene is worth running pose estimation on.
// The scene turns idle once no motion has been seen for the idle period and
// becomes active again on the first frame with motion.
type IdleGate struct {
	threshold  float64 // percent of pixels that must change
	idleAfter  time.Duration
	prevGray   gocv.Mat
	baseline   bool
	lastMotion time.Time
	mu         sync.Mutex
}

// NewIdleGate creates a gate that goes idle after idleAfter without threshold
// percent of pixels changing between frames.
func NewIdleGate(threshold float64, idleAfter time.Duration) *IdleGate {
	return &IdleGate{
		threshold: threshold,
		idleAfter: idleAfter,
		prevGray:  gocv.NewMat(),
	}
}

// Active feeds frame to the gate and reports whether the scene is active at now.
// The first frame is always active.
func (g *IdleGate) Active(frame *gocv.Mat, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false
	}

	if g.motion(frame) {
		g.lastMotion = now
	}
	return now.Sub(g.lastMotion) < g.idleAfter
}

// motion grays and blurs frame, then compares it to the previous frame.
func (g *IdleGate) motion(frame *gocv.Mat) bool {
	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !g.baseline {
		blurred.CopyTo(&g.prevGray)
		g.baseline = true
		return true
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100
	blurred.CopyTo(&g.prevGray)

	return changed > g.threshold
}

// Reset forgets the baseline frame so the next frame is active.
func (g *IdleGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.baseline = false
	g.lastMotion = time.Time{}
}

// Close releases resources used by the gate.
func (g *IdleGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prevGray.Close()
	g.baseline = false
}
