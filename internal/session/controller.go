package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ayusman/sign2me/internal/feature"
	"github.com/ayusman/sign2me/internal/gateway"
	"github.com/ayusman/sign2me/internal/pose"
	"github.com/ayusman/sign2me/internal/sequencer"
	"github.com/ayusman/sign2me/pkg/logger"
	"github.com/ayusman/sign2me/pkg/metrics"
)

// ErrClosed is returned when using a closed session.
var ErrClosed = errors.New("session closed")

// Config wires a Controller to its collaborators.
type Config struct {
	// ID names the session in logs.
	ID        string
	Sequencer *sequencer.Sequencer
	Gateway   gateway.Gateway
	// Source is optional; frames may also be fed through HandleFrame.
	Source pose.Source
	Policy Policy
	// ExcludeRepeat avoids drawing the current target again on advance.
	ExcludeRepeat bool
	Logger        logger.Logger
	Metrics       *metrics.Manager
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Controller owns one session's State. Frames, gateway results and advance
// requests are processed one at a time by a single goroutine.
type Controller struct {
	id            string
	seq           *sequencer.Sequencer
	gw            gateway.Gateway
	policy        Policy
	excludeRepeat bool
	log           logger.Logger
	metrics       *metrics.Manager
	clock         func() time.Time

	// state is written only by the loop goroutine.
	state State

	frames   chan feature.Frame
	advances chan chan State

	mu      sync.RWMutex
	current State
	subs    map[int]chan State
	nextSub int

	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
}

// NewController draws the first target and starts processing events.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Sequencer == nil || cfg.Gateway == nil {
		return nil, errors.New("session: sequencer and gateway are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:            cfg.ID,
		seq:           cfg.Sequencer,
		gw:            cfg.Gateway,
		policy:        cfg.Policy,
		excludeRepeat: cfg.ExcludeRepeat,
		log:           cfg.Logger,
		metrics:       cfg.Metrics,
		clock:         cfg.Clock,
		frames:        make(chan feature.Frame, 1),
		advances:      make(chan chan State),
		subs:          make(map[int]chan State),
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	c.state = NewState(c.seq.Next(""))
	c.current = c.state

	if cfg.Source != nil {
		c.unsubscribe = cfg.Source.Subscribe(c.HandleFrame)
	}

	c.metrics.SessionOpened()
	c.log.Info(ctx, "session started", logger.String("session", c.id), logger.String("target", c.state.Target))

	go c.run(ctx)
	return c, nil
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// HandleFrame queues one perception tick. It never blocks; an unprocessed
// older frame is replaced.
func (c *Controller) HandleFrame(frame feature.Frame) {
	select {
	case <-c.done:
		return
	default:
	}

	for {
		select {
		case c.frames <- frame:
			return
		default:
		}
		select {
		case <-c.frames:
			c.metrics.RecordSkippedFrame()
		default:
		}
	}
}

// Advance moves the session to a new target and returns the reset state.
func (c *Controller) Advance(ctx context.Context) (State, error) {
	reply := make(chan State, 1)

	select {
	case c.advances <- reply:
	case <-c.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-c.done:
		select {
		case s := <-reply:
			return s, nil
		default:
			return State{}, ErrClosed
		}
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

// Subscribe returns a channel that receives the current state and every
// later change. A slow reader only sees the latest state. The channel is
// closed by the returned cancel function or when the session closes.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.current.Clone()
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Done is closed when the session stops processing events.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Close releases the pose source subscription, stops the gateway and ends
// every subscription. A result still in flight is discarded.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.cancel()
		<-c.done
		err = c.gw.Close()

		c.mu.Lock()
		for id, sub := range c.subs {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()

		c.metrics.SessionClosed()
		c.log.Info(context.Background(), "session closed", logger.String("session", c.id))
	})
	return err
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	results := c.gw.Results()
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-c.frames:
			c.onTick(ctx, frame)
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			c.onResult(ctx, r)
		case reply := <-c.advances:
			reply <- c.onAdvance(ctx)
		}
	}
}

func (c *Controller) onTick(ctx context.Context, frame feature.Frame) {
	v, err := feature.Normalize(frame)
	if err != nil {
		c.metrics.RecordSkippedFrame()
		if !frame.Empty() {
			c.log.Debug(ctx, "frame skipped", logger.String("session", c.id), logger.Err(err))
		}
		return
	}
	if c.state.Locked {
		return
	}
	c.gw.Submit(gateway.Request{Features: v, Target: c.state.Target, Round: c.state.Round})
}

func (c *Controller) onResult(ctx context.Context, r gateway.Result) {
	next, effect := c.state.ApplyPrediction(r, c.clock(), c.policy)

	if effect.Stale {
		c.metrics.RecordStaleResult()
		c.log.Debug(ctx, "stale result ignored",
			logger.String("session", c.id),
			logger.String("result_target", r.Target),
			logger.String("target", c.state.Target),
			logger.Int("round", int(c.state.Round)))
		return
	}
	if !effect.Applied {
		return
	}
	if effect.Suppressed {
		c.metrics.RecordSuppressedFeedback()
	}
	if next.Status != c.state.Status {
		c.metrics.RecordTransition(string(next.Status))
		c.log.Debug(ctx, "status changed",
			logger.String("session", c.id),
			logger.String("status", string(next.Status)),
			logger.String("predicted", next.PredictedSign))
	}

	c.publish(next)
}

func (c *Controller) onAdvance(ctx context.Context) State {
	exclude := ""
	if c.excludeRepeat {
		exclude = c.state.Target
	}

	next := c.state.Advance(c.seq.Next(exclude))
	c.metrics.RecordTransition(string(next.Status))
	c.log.Info(ctx, "session advanced",
		logger.String("session", c.id),
		logger.String("target", next.Target))

	c.publish(next)
	return next.Clone()
}

// publish stores s and hands a copy to every subscriber.
func (c *Controller) publish(s State) {
	c.state = s

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = s
	for _, sub := range c.subs {
		snap := s.Clone()
		select {
		case <-sub:
		default:
		}
		sub <- snap
	}
}
