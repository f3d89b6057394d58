// Package config defines service configuration and its loading from file and environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/sign2me/internal/gateway"
	"github.com/ayusman/sign2me/internal/sequencer"
	"github.com/ayusman/sign2me/pkg/logger"
)

// Gateway delivery modes.
const (
	ModePush = gateway.ModePush
	ModePoll = gateway.ModePoll
)

// Sentinel errors for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds the settings database.
	DataDir string `koanf:"data_dir"`

	// StaticDir, when set, is served at "/".
	StaticDir string `koanf:"static_dir"`

	// ClassifierURL is the base URL of the sign classification service.
	ClassifierURL string `koanf:"classifier_url"`

	// ClassifierTimeout bounds a single classification request.
	ClassifierTimeout time.Duration `koanf:"classifier_timeout"`

	// GatewayMode selects push-per-frame or fixed-interval polling.
	GatewayMode string `koanf:"gateway_mode"`

	// PollInterval is the polling period in poll mode.
	PollInterval time.Duration `koanf:"poll_interval"`

	// FeedbackCooldown suppresses new service feedback for this long after one is shown.
	FeedbackCooldown time.Duration `koanf:"feedback_cooldown"`

	// Alphabet is the set of practicable letters.
	Alphabet string `koanf:"alphabet"`

	// ExcludeRepeat avoids drawing the current target again on advance.
	ExcludeRepeat bool `koanf:"exclude_repeat"`

	// CorrectMessage replaces service feedback on a correct match.
	CorrectMessage string `koanf:"correct_message"`

	// FallbackFeedback is shown on a mismatch when the service sent no feedback.
	FallbackFeedback string `koanf:"fallback_feedback"`

	// CameraEnabled turns on the server-side camera source and MJPEG preview.
	CameraEnabled bool `koanf:"camera_enabled"`

	// CameraID is the capture device index.
	CameraID int `koanf:"camera_id"`

	// MotionThreshold is the percentage of changed pixels that wakes the detector.
	MotionThreshold float64 `koanf:"motion_threshold"`
}

// New returns a Config populated with defaults.
func New() *Config {
	dataDir := ".sign2me"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".sign2me")
	}

	return &Config{
		LogLevel:          "info",
		Addr:              ":8080",
		DataDir:           dataDir,
		ClassifierURL:     "http://localhost:5050",
		ClassifierTimeout: 2 * time.Second,
		GatewayMode:       ModePush,
		PollInterval:      time.Second,
		FeedbackCooldown:  10 * time.Second,
		Alphabet:          sequencer.DefaultAlphabet,
		ExcludeRepeat:     false,
		CorrectMessage:    "Correct! Great job!",
		FallbackFeedback:  "Try adjusting your hand shape.",
		CameraEnabled:     false,
		CameraID:          0,
		MotionThreshold:   1.0,
	}
}

// DBPath returns the settings database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "sign2me.db")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	u, err := url.Parse(c.ClassifierURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: classifier_url %q is not an absolute URL", ErrInvalidConfig, c.ClassifierURL)
	}
	if c.ClassifierTimeout <= 0 {
		return fmt.Errorf("%w: classifier_timeout must be positive", ErrInvalidConfig)
	}
	switch c.GatewayMode {
	case ModePush:
	case ModePoll:
		if c.PollInterval <= 0 {
			return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: gateway_mode %q (want %s or %s)", ErrInvalidConfig, c.GatewayMode, ModePush, ModePoll)
	}
	if c.FeedbackCooldown < 0 {
		return fmt.Errorf("%w: feedback_cooldown must not be negative", ErrInvalidConfig)
	}
	if err := sequencer.ValidateAlphabet(c.Alphabet); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MotionThreshold <= 0 {
		return fmt.Errorf("%w: motion_threshold must be positive", ErrInvalidConfig)
	}
	return nil
}
