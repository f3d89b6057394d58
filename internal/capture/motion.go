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
	pixelDiffCut  = 25
	DefaultIdleAt = 2 * time.Second
)

// MotionDetector compares consecutive frames and reports the share of
// pixels that changed.
type MotionDetector struct {
	threshold float64

	mu       sync.Mutex
	prev     gocv.Mat
	hasPrior bool
}

// NewMotionDetector returns a detector that reports motion when more than
// threshold percent of pixels change between frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect compares frame with the previous one. The first frame only sets the
// baseline and never reports motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.GaussianBlur(gray, &smooth, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.hasPrior {
		smooth.CopyTo(&m.prev)
		m.hasPrior = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(smooth, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDiffCut, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	smooth.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prev.Close()
	m.prev = gocv.NewMat()
	m.hasPrior = false
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.Reset()
}

// Gate tracks whether sampling should run at the active or the idle rate.
// It turns active on motion and falls back to idle after a quiet period.
type Gate struct {
	idleAfter  time.Duration
	active     bool
	lastMotion time.Time
}

// NewGate returns an idle gate. A non-positive idleAfter selects DefaultIdleAt.
func NewGate(idleAfter time.Duration) *Gate {
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAt
	}
	return &Gate{idleAfter: idleAfter}
}

// Observe records one motion sample taken at now. It reports whether the
// gate is active afterwards and whether that changed.
func (g *Gate) Observe(motion bool, now time.Time) (active, changed bool) {
	switch {
	case motion:
		g.lastMotion = now
		if !g.active {
			g.active = true
			return true, true
		}
	case g.active && now.Sub(g.lastMotion) > g.idleAfter:
		g.active = false
		return false, true
	}
	return g.active, false
}

// Active reports the current mode.
func (g *Gate) Active() bool {
	return g.active
}

// FPS returns the sampling rate for the current mode.
func (g *Gate) FPS() int {
	if g.active {
		return ActiveFPS
	}
	return IdleFPS
}
