package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/sign2me/internal/classifier"
	"github.com/ayusman/sign2me/pkg/metrics"
)

// Push sends one request per accepted submission. A submission made while a
// request is outstanding is dropped, not queued.
type Push struct {
	client  classifier.Client
	opts    Options
	health  health
	results chan Result

	ctx    context.Context
	cancel context.CancelFunc

	inFlight atomic.Bool
	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
}

// NewPush creates a push-per-frame gateway.
func NewPush(client classifier.Client, opts Options) *Push {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	p := &Push{
		client:  client,
		opts:    opts,
		results: make(chan Result, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	p.health.log = opts.Logger
	return p
}

// Submit starts a request unless one is already in flight or the gateway is closed.
func (p *Push) Submit(req Request) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		p.opts.Metrics.RecordDroppedSubmission()
		return false
	}

	p.wg.Add(1)
	go p.run(req)
	return true
}

// InFlight reports whether a request is outstanding.
func (p *Push) InFlight() bool {
	return p.inFlight.Load()
}

func (p *Push) run(req Request) {
	defer p.wg.Done()
	// Released only after delivery so results keep submission order.
	defer p.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(p.ctx, p.opts.Timeout)
	defer cancel()

	start := time.Now()
	pred, err := p.client.Predict(ctx, req.Features.Flatten(), req.Target)
	outcome := p.health.observe(ctx, ModePush, err)
	p.opts.Metrics.RecordGatewayRequest(ModePush, outcome, time.Since(start))
	if outcome != metrics.OutcomeOK {
		return
	}

	deliver(p.results, toResult(pred, req))
}

// Results returns the result channel.
func (p *Push) Results() <-chan Result {
	return p.results
}

// Close cancels any outstanding request and closes the result channel.
func (p *Push) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	close(p.results)
	return nil
}
