package fps

import (
	"context"
	"sync"
	"time"

	"github.com/albireox/jaeger-core/internal/telemetry"
)

// Poller runs callable every delay until stopped (spec.md §4.7). Its
// sleep-then-invoke-then-repeat loop with cooperative cancellation mirrors
// the teacher's session/tcp.go run() checkTicker loop.
type Poller struct {
	Name     string
	Delay    time.Duration
	Callable func(ctx context.Context) error

	cancel context.CancelFunc
	done   chan struct{}
}

func newPoller(name string, delay time.Duration, callable func(ctx context.Context) error) *Poller {
	return &Poller{Name: name, Delay: delay, Callable: callable}
}

// start launches the poller's loop goroutine.
func (p *Poller) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.Delay)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := p.Callable(ctx); err != nil {
				telemetry.Warnf("fps: poller %q iteration failed: %v", p.Name, err)
			}
		}
	}()
}

// stop cancels the loop and waits for it to exit.
func (p *Poller) stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

// PollerList starts and stops a set of Pollers jointly.
type PollerList struct {
	mu      sync.Mutex
	pollers []*Poller
	running bool
}

func newPollerList(pollers ...*Poller) *PollerList {
	return &PollerList{pollers: pollers}
}

// Start launches every poller, unless already running.
func (l *PollerList) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	for _, p := range l.pollers {
		p.start(ctx)
	}
	l.running = true
}

// Stop cooperatively stops every poller and joins them.
func (l *PollerList) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	for _, p := range l.pollers {
		p.stop()
	}
	l.running = false
}

// Running reports whether the set is currently active.
func (l *PollerList) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
