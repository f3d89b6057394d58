package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera replays a fixed list of frames.
type MockCamera struct {
	mu     sync.Mutex
	frames []gocv.Mat
	next   int
	loop   bool
	open   bool
	fps    int
	reads  int
}

// NewMockCamera replays frames, starting over at the end when loop is set.
// The camera keeps its own copies of the frames.
func NewMockCamera(frames []gocv.Mat, loop bool) *MockCamera {
	c := &MockCamera{loop: loop, fps: IdleFPS}
	c.SetFrames(frames)
	return c
}

// SolidFrames returns n frames of the given size filled with gray levels
// that alternate between dark and light, so consecutive frames differ.
func SolidFrames(n, rows, cols int) []gocv.Mat {
	frames := make([]gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
		if i%2 == 1 {
			m.SetTo(gocv.NewScalar(255, 255, 255, 0))
		}
		frames[i] = m
	}
	return frames
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.next = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// ReadFrame returns a clone of the next frame.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if c.next >= len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return nil, fmt.Errorf("mock camera: %w", ErrNoFrame)
		}
		c.next = 0
	}

	frame := c.frames[c.next].Clone()
	c.next++
	c.reads++
	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads returns how many frames were handed out.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// SetFrames replaces the playback list and rewinds.
func (c *MockCamera) SetFrames(frames []gocv.Mat) {
	copies := make([]gocv.Mat, len(frames))
	for i := range frames {
		copies[i] = frames[i].Clone()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.frames {
		c.frames[i].Close()
	}
	c.frames = copies
	c.next = 0
}
