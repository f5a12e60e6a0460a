package llm

import (
	"context"
	"sync"
	"time"
)

// requestPacer enforces the monotonic last-request-time delay described
// in spec §4.1: "Every call blocks until now - last_request_time >=
// delay." There is exactly one sequential emission stream per client
// instance, so this is a single mutex-guarded timestamp, not a token
// bucket (golang.org/x/time/rate is used instead for the ambient
// dashboard's inbound-request limiting, which has a different shape:
// many independent callers rather than one sequential stream).
type requestPacer struct {
	mu              sync.Mutex
	delay           time.Duration
	lastRequestTime time.Time
}

func newRequestPacer(requestsPerMinute int) *requestPacer {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	return &requestPacer{
		delay: time.Duration(60*float64(time.Second)) / time.Duration(requestsPerMinute),
	}
}

// Wait blocks until the pacing delay since the last request has elapsed,
// then records now as the new last-request time.
func (p *requestPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastRequestTime.IsZero() {
		elapsed := time.Since(p.lastRequestTime)
		if remaining := p.delay - elapsed; remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	p.lastRequestTime = time.Now()
	return nil
}
