package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/sign2me/internal/classifier"
	"github.com/ayusman/sign2me/internal/gateway"
	"github.com/ayusman/sign2me/internal/pose"
	"github.com/ayusman/sign2me/internal/sequencer"
	"github.com/ayusman/sign2me/pkg/logger"
	"github.com/ayusman/sign2me/pkg/metrics"
)

// Runtime setting keys that override the configured defaults for new sessions.
const (
	SettingAlphabet      = "alphabet"
	SettingCooldown      = "feedback_cooldown"
	SettingExcludeRepeat = "exclude_repeat"
)

var (
	// ErrNotFound is returned for an unknown session ID.
	ErrNotFound = errors.New("session not found")

	// ErrUnknownSource is returned when creating a session on an unregistered pose source.
	ErrUnknownSource = errors.New("unknown pose source")

	// ErrInvalidSetting is returned for an unknown setting key or a bad value.
	ErrInvalidSetting = errors.New("invalid setting")
)

// SettingsReader supplies runtime setting overrides.
type SettingsReader interface {
	All(ctx context.Context) (map[string]string, error)
}

// ValidateSetting checks a runtime setting before it is stored.
func ValidateSetting(key, value string) error {
	switch key {
	case SettingAlphabet:
		if err := sequencer.ValidateAlphabet(value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
		}
	case SettingCooldown:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: %s must be a non-negative duration, got %q", ErrInvalidSetting, key, value)
		}
	case SettingExcludeRepeat:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidSetting, key, value)
		}
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
	}
	return nil
}

// ManagerConfig holds the defaults every new session starts from.
type ManagerConfig struct {
	Classifier     classifier.Client
	GatewayMode    string
	GatewayOptions gateway.Options
	Alphabet       string
	ExcludeRepeat  bool
	Policy         Policy
	// Sources maps a source name to a pose source sessions can subscribe to.
	// The empty name means frames are pushed through the API only.
	Sources  map[string]pose.Source
	Settings SettingsReader
	Logger   logger.Logger
	Metrics  *metrics.Manager
	Clock    func() time.Time
}

// Manager creates, tracks and closes sessions by ID.
type Manager struct {
	cfg ManagerConfig

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager validates the defaults and returns an empty manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Classifier == nil {
		return nil, errors.New("session: classifier is required")
	}
	if err := sequencer.ValidateAlphabet(orDefault(cfg.Alphabet)); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.GatewayOptions.Logger == nil {
		cfg.GatewayOptions.Logger = cfg.Logger.Named("gateway")
	}
	if cfg.GatewayOptions.Metrics == nil {
		cfg.GatewayOptions.Metrics = cfg.Metrics
	}

	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Controller),
	}, nil
}

// effective is the per-session configuration after applying runtime settings.
type effective struct {
	alphabet      string
	cooldown      time.Duration
	excludeRepeat bool
}

func (m *Manager) effective(ctx context.Context) effective {
	e := effective{
		alphabet:      orDefault(m.cfg.Alphabet),
		cooldown:      m.cfg.Policy.Cooldown,
		excludeRepeat: m.cfg.ExcludeRepeat,
	}
	if m.cfg.Settings == nil {
		return e
	}

	settings, err := m.cfg.Settings.All(ctx)
	if err != nil {
		m.cfg.Logger.Warn(ctx, "settings unavailable, using defaults", logger.Err(err))
		return e
	}

	for key, value := range settings {
		if err := ValidateSetting(key, value); err != nil {
			m.cfg.Logger.Warn(ctx, "ignoring stored setting", logger.String("key", key), logger.Err(err))
			continue
		}
		switch key {
		case SettingAlphabet:
			e.alphabet = value
		case SettingCooldown:
			e.cooldown, _ = time.ParseDuration(value)
		case SettingExcludeRepeat:
			e.excludeRepeat, _ = strconv.ParseBool(value)
		}
	}
	return e
}

// Alphabet returns the practicable letters new sessions draw from.
func (m *Manager) Alphabet(ctx context.Context) []string {
	seq, err := sequencer.New(m.effective(ctx).alphabet)
	if err != nil {
		return nil
	}
	return seq.Letters()
}

// Create starts a session that consumes frames from the named source.
func (m *Manager) Create(ctx context.Context, source string) (*Controller, error) {
	var src pose.Source
	if source != "" {
		s, ok := m.cfg.Sources[source]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
		}
		src = s
	}

	e := m.effective(ctx)
	seq, err := sequencer.New(e.alphabet)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	gw, err := gateway.New(m.cfg.GatewayMode, m.cfg.Classifier, m.cfg.GatewayOptions)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	policy := m.cfg.Policy
	policy.Cooldown = e.cooldown

	id := uuid.NewString()
	c, err := NewController(Config{
		ID:            id,
		Sequencer:     seq,
		Gateway:       gw,
		Source:        src,
		Policy:        policy,
		ExcludeRepeat: e.excludeRepeat,
		Logger:        m.cfg.Logger,
		Metrics:       m.cfg.Metrics,
		Clock:         m.cfg.Clock,
	})
	if err != nil {
		gw.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = c
	m.mu.Unlock()

	return c, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.Close()
}

// IDs lists active sessions in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every session.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	var errs []error
	for _, c := range sessions {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func orDefault(alphabet string) string {
	if alphabet == "" {
		return sequencer.DefaultAlphabet
	}
	return alphabet
}
