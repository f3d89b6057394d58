package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/sign2me/internal/classifier"
	"github.com/ayusman/sign2me/pkg/metrics"
)

// Poll fetches the service's latest prediction on a fixed interval. Fetches
// run sequentially on one goroutine, so at most one is outstanding.
type Poll struct {
	client  classifier.Client
	opts    Options
	health  health
	results chan Result

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewPoll creates a polling gateway and starts its fetch loop.
func NewPoll(client classifier.Client, opts Options) *Poll {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poll{
		client:  client,
		opts:    opts,
		results: make(chan Result, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	p.health.log = opts.Logger
	go p.loop(ctx)
	return p
}

func (p *Poll) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx)
		}
	}
}

func (p *Poll) fetch(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	start := time.Now()
	pred, err := p.client.Latest(ctx)
	outcome := p.health.observe(ctx, ModePoll, err)
	p.opts.Metrics.RecordGatewayRequest(ModePoll, outcome, time.Since(start))
	if outcome != metrics.OutcomeOK {
		return
	}

	deliver(p.results, toResult(pred, Request{}))
}

// Submit never sends anything; poll mode does not upload features.
func (p *Poll) Submit(Request) bool {
	return false
}

// Results returns the result channel.
func (p *Poll) Results() <-chan Result {
	return p.results
}

// Close stops the fetch loop and closes the result channel.
func (p *Poll) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.done
		close(p.results)
	})
	return nil
}
