// Package app wires configuration, storage, pose sources, sessions and the
// HTTP server into a running sign2me process.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/sign2me/internal/capture"
	"github.com/ayusman/sign2me/internal/classifier"
	"github.com/ayusman/sign2me/internal/config"
	"github.com/ayusman/sign2me/internal/detector"
	"github.com/ayusman/sign2me/internal/gateway"
	"github.com/ayusman/sign2me/internal/pose"
	"github.com/ayusman/sign2me/internal/pose/camera"
	"github.com/ayusman/sign2me/internal/server"
	"github.com/ayusman/sign2me/internal/session"
	"github.com/ayusman/sign2me/internal/store"
	"github.com/ayusman/sign2me/pkg/logger"
	"github.com/ayusman/sign2me/pkg/metrics"
)

// Source names sessions can mount.
const (
	SourceFeed   = "feed"
	SourceCamera = "camera"
)

// ErrNoCamera is returned by Practice when the camera source is disabled.
var ErrNoCamera = errors.New("camera source is not enabled")

// Options overrides collaborators that are otherwise built from Config.
type Options struct {
	Logger     logger.Logger
	Metrics    *metrics.Manager
	Classifier classifier.Client
	Camera     capture.Camera
	Detector   detector.Detector
}

// Presenter shows a session to the learner until they quit.
type Presenter func(ctx context.Context, c *session.Controller) error

// App is the main application that owns every long-lived component.
type App struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Manager

	store    *store.Store
	feed     *pose.Feed
	camera   *camera.Source
	detector detector.Detector
	manager  *session.Manager
	server   *server.Server
}

// New creates an App from cfg. The caller must Close it.
func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewManager()
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.NewHTTPClient(cfg.ClassifierURL, cfg.ClassifierTimeout)
	}

	a := &App{
		cfg:     cfg,
		log:     opts.Logger,
		metrics: opts.Metrics,
		feed:    pose.NewFeed(),
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	a.store = st

	sources := map[string]pose.Source{SourceFeed: a.feed}
	if cfg.CameraEnabled {
		a.camera = a.newCameraSource(opts)
		sources[SourceCamera] = a.camera
	}

	a.manager, err = session.NewManager(session.ManagerConfig{
		Classifier:  opts.Classifier,
		GatewayMode: cfg.GatewayMode,
		GatewayOptions: gateway.Options{
			Timeout:  cfg.ClassifierTimeout,
			Interval: cfg.PollInterval,
		},
		Alphabet:      cfg.Alphabet,
		ExcludeRepeat: cfg.ExcludeRepeat,
		Policy: session.Policy{
			Cooldown:         cfg.FeedbackCooldown,
			CorrectMessage:   cfg.CorrectMessage,
			FallbackFeedback: cfg.FallbackFeedback,
		},
		Sources:  sources,
		Settings: st.Settings(),
		Logger:   a.log.Named("session"),
		Metrics:  a.metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	srvCfg := server.Config{
		StaticDir: resolveStaticDir(cfg.StaticDir),
		Manager:   a.manager,
		Settings:  st.Settings(),
		Feed:      a.feed,
		Metrics:   a.metrics,
		Logger:    a.log.Named("http"),
	}
	if a.camera != nil {
		srvCfg.Camera = a.camera
	}
	a.server = server.New(srvCfg)

	return a, nil
}

// newCameraSource opens the configured capture device with MediaPipe
// detection, falling back to the mock detector when MediaPipe is missing.
func (a *App) newCameraSource(opts Options) *camera.Source {
	cam := opts.Camera
	if cam == nil {
		cam = capture.NewDevice(a.cfg.CameraID)
	}

	det := opts.Detector
	if det == nil {
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			det = mp
			a.log.Info(context.Background(), "using MediaPipe hand detection")
		} else {
			a.log.Warn(context.Background(), "MediaPipe not available, using mock detector", logger.Err(err))
			det = detector.NewMockDetector()
		}
	}
	a.detector = det

	return camera.New(cam, det, camera.Options{
		MotionThreshold: a.cfg.MotionThreshold,
		Logger:          a.log.Named("camera"),
	})
}

// Manager returns the session manager.
func (a *App) Manager() *session.Manager {
	return a.manager
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// Feed returns the shared frame feed.
func (a *App) Feed() *pose.Feed {
	return a.feed
}

// Serve runs the HTTP server, and the camera when enabled, until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.camera != nil {
		if err := a.camera.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			return a.camera.Stop()
		})
	}

	g.Go(func() error {
		return a.server.Run(ctx, a.cfg.Addr)
	})

	return g.Wait()
}

// Practice runs a single camera-backed session shown by present.
func (a *App) Practice(ctx context.Context, present Presenter) error {
	if a.camera == nil {
		return ErrNoCamera
	}

	ctrl, err := a.manager.Create(ctx, SourceCamera)
	if err != nil {
		return err
	}
	defer a.manager.Delete(ctrl.ID())

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)

	if err := a.camera.Start(ctx); err != nil {
		cancel()
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		return a.camera.Stop()
	})

	g.Go(func() error {
		defer cancel()
		return present(ctx, ctrl)
	})

	return g.Wait()
}

// Close releases sessions, the detector and the store.
func (a *App) Close() error {
	var errs []error
	if a.manager != nil {
		errs = append(errs, a.manager.Close())
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// resolveStaticDir returns dir when set, else the first existing web
// directory among "web", "../web" and ~/.sign2me/web.
func resolveStaticDir(dir string) string {
	if dir != "" {
		return dir
	}

	candidates := []string{"web", filepath.Join("..", "web")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".sign2me", "web"))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
