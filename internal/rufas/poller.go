package rufas

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often the workspace rescans while polling is on.
const DefaultPollInterval = time.Second

// Poller runs a task periodically. A tick is scheduled only after the previous
// one returns, so ticks never overlap. Stop cancels scheduling but lets an
// in-flight tick finish.
type Poller struct {
	interval time.Duration
	task     func(ctx context.Context) error
	logger   Logger
	trigger  <-chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped Poller.
func NewPoller(interval time.Duration, task func(ctx context.Context) error, logger Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{interval: interval, task: task, logger: logger}
}

// SetTrigger installs a channel that wakes the loop before the interval
// elapses. Signals received while a tick runs collapse into one extra tick.
// It must be called before Start.
func (p *Poller) SetTrigger(trigger <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trigger = trigger
}

// Start runs the first tick immediately and keeps ticking until Stop is
// called or ctx is cancelled. Starting a running Poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.trigger, p.done)
}

// Stop cancels future ticks. It does not wait for a running tick.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
}

// Running reports whether the Poller is scheduled.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Wait blocks until the loop started by the last Start has exited,
// including any tick that was running when Stop was called.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Poller) loop(ctx context.Context, trigger <-chan struct{}, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-trigger:
			timer.Stop()
		}

		if ctx.Err() != nil {
			return
		}
		p.tick(ctx)
		timer.Reset(p.interval)
	}
}

// tick runs the task detached from the loop's cancellation.
func (p *Poller) tick(ctx context.Context) {
	if err := p.task(context.WithoutCancel(ctx)); err != nil {
		p.logger.Warn("poll tick failed", "error", err)
	}
}
