// Package camera provides a pose source backed by a local camera and a hand
// detector.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/sign2me/internal/capture"
	"github.com/ayusman/sign2me/internal/detector"
	"github.com/ayusman/sign2me/internal/feature"
	"github.com/ayusman/sign2me/internal/pose"
	"github.com/ayusman/sign2me/pkg/logger"
)

// ErrAlreadyRunning is returned by Start on a running source.
var ErrAlreadyRunning = errors.New("camera source already running")

// Options configures a Source.
type Options struct {
	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64
	// IdleAfter is how long without motion before sampling slows down.
	IdleAfter time.Duration
	Logger    logger.Logger
}

// Source samples a camera, runs hand detection and publishes one frame
// per sample. Sampling runs at the active rate while the scene moves and at
// the idle rate otherwise; detection runs in both modes so a held pose is
// still classified.
type Source struct {
	pose.Hub

	camera   capture.Camera
	detector detector.Detector
	motion   *capture.MotionDetector
	gate     *capture.Gate
	log      logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	previewMu sync.RWMutex
	preview   []byte
}

// New wires a camera to a detector.
func New(camera capture.Camera, det detector.Detector, opts Options) *Source {
	if opts.MotionThreshold <= 0 {
		opts.MotionThreshold = 1.0
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	return &Source{
		camera:   camera,
		detector: det,
		motion:   capture.NewMotionDetector(opts.MotionThreshold),
		gate:     capture.NewGate(opts.IdleAfter),
		log:      opts.Logger,
	}
}

// Start opens the camera and begins sampling until ctx ends or Stop is called.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("start camera source: %w", err)
	}
	s.camera.SetFPS(s.gate.FPS())

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)

	s.log.Info(ctx, "camera source started", logger.Int("fps", s.gate.FPS()))
	return nil
}

// Stop ends sampling and closes the camera.
func (s *Source) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	s.motion.Reset()
	return s.camera.Close()
}

// Running reports whether the sampling loop is active.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Preview returns the most recent camera frame as JPEG.
func (s *Source) Preview() ([]byte, bool) {
	s.previewMu.RLock()
	defer s.previewMu.RUnlock()
	return s.preview, s.preview != nil
}

func (s *Source) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(s.gate.FPS()))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.sample(ctx, now) {
				fps := s.gate.FPS()
				s.camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
				s.log.Debug(ctx, "sampling rate changed", logger.Int("fps", fps))
			}
		}
	}
}

// sample processes one camera frame and reports whether the sampling mode changed.
func (s *Source) sample(ctx context.Context, now time.Time) bool {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		s.log.Debug(ctx, "camera read failed", logger.Err(err))
		return false
	}
	defer frame.Close()

	s.storePreview(frame)

	moved, _ := s.motion.Detect(frame)
	_, changed := s.gate.Observe(moved, now)

	hands, err := s.detector.Detect(frame)
	if err != nil {
		s.log.Debug(ctx, "hand detection failed", logger.Err(err))
		return changed
	}

	if len(hands) == 0 {
		s.Publish(feature.Frame{})
	} else {
		s.Publish(feature.FromHand(hands[0]))
	}
	return changed
}

func (s *Source) storePreview(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	s.previewMu.Lock()
	s.preview = data
	s.previewMu.Unlock()
}
