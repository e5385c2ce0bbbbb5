package conversation

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// poller runs fn immediately and then on every tick until stopped.
type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startPoller(clk clock.Clock, interval time.Duration, fn func()) *poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{cancel: cancel, done: make(chan struct{})}

	// The ticker exists before start returns so no tick can be missed.
	ticker := clk.Ticker(interval)

	go func() {
		defer close(p.done)
		defer ticker.Stop()

		fn()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn()
			}
		}
	}()

	return p
}

// stop cancels the timer. An fn already running is allowed to finish.
func (p *poller) stop() {
	p.cancel()
}

// wait blocks until the poll goroutine has exited.
func (p *poller) wait() {
	<-p.done
}
