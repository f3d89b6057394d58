// Package gateway delivers classification results to a practice session while
// keeping at most one request to the classification service outstanding.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ayusman/sign2me/internal/classifier"
	"github.com/ayusman/sign2me/internal/feature"
	"github.com/ayusman/sign2me/pkg/logger"
	"github.com/ayusman/sign2me/pkg/metrics"
)

// Delivery modes.
const (
	ModePush = "push"
	ModePoll = "poll"
)

const defaultTimeout = 2 * time.Second

// ErrUnknownMode is returned by New for an unsupported delivery mode.
var ErrUnknownMode = errors.New("unknown gateway mode")

// Request is one feature vector offered for classification.
type Request struct {
	Features feature.Vector
	// Target is the letter currently practiced, sent as a hint.
	Target string
	// Round identifies the practice round the request was made in.
	Round uint64
}

// Result is a completed classification.
type Result struct {
	Sign         string                   `json:"sign"`
	Feedback     string                   `json:"feedback,omitempty"`
	Confidence   string                   `json:"confidence,omitempty"`
	Alternatives []classifier.Alternative `json:"alternatives,omitempty"`
	// Target echoes the hint of the request this result answers; empty when polled.
	Target string `json:"target,omitempty"`
	// Round echoes the request's round; zero when polled.
	Round uint64 `json:"round,omitempty"`
}

// Gateway isolates the session from the classification service. Failed
// requests produce no result rather than an error.
type Gateway interface {
	// Submit offers a request. It returns false when the request was not sent.
	Submit(req Request) bool

	// Results delivers completed results. Only the latest undelivered result
	// is retained. The channel is closed by Close.
	Results() <-chan Result

	// Close stops the gateway and releases its resources.
	Close() error
}

// Options configures a gateway.
type Options struct {
	// Timeout bounds each request.
	Timeout time.Duration
	// Interval is the poll period in poll mode.
	Interval time.Duration
	Metrics  *metrics.Manager
	Logger   logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

// New creates the gateway for the given delivery mode.
func New(mode string, client classifier.Client, opts Options) (Gateway, error) {
	switch mode {
	case ModePush, "":
		return NewPush(client, opts), nil
	case ModePoll:
		return NewPoll(client, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// deliver stores r in ch, replacing an undelivered older result.
func deliver(ch chan Result, r Result) {
	for {
		select {
		case ch <- r:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func toResult(p classifier.Prediction, req Request) Result {
	return Result{
		Sign:         p.Sign,
		Feedback:     p.Feedback,
		Confidence:   p.Confidence,
		Alternatives: p.Alternatives,
		Target:       req.Target,
		Round:        req.Round,
	}
}

// health logs transitions between a reachable and an unreachable service
// at warn/info and repeated failures at debug only.
type health struct {
	log     logger.Logger
	failing atomic.Bool
}

func (h *health) observe(ctx context.Context, mode string, err error) string {
	switch {
	case err == nil:
		if h.failing.CompareAndSwap(true, false) {
			h.log.Info(ctx, "classifier reachable again", logger.String("mode", mode))
		}
		return metrics.OutcomeOK
	case errors.Is(err, classifier.ErrNoPrediction):
		h.log.Debug(ctx, "classifier has no prediction", logger.String("mode", mode))
		return metrics.OutcomeEmpty
	default:
		if h.failing.CompareAndSwap(false, true) {
			h.log.Warn(ctx, "classifier request failed", logger.String("mode", mode), logger.Err(err))
		} else {
			h.log.Debug(ctx, "classifier request failed", logger.String("mode", mode), logger.Err(err))
		}
		return metrics.OutcomeFailure
	}
}
