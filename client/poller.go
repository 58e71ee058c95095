package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ellysus/Momentary/schema"
)

// DefaultPollInterval is how often the prompt status is refreshed while a
// session is active.
const DefaultPollInterval = 2500 * time.Millisecond

// statusFetcher is the slice of the API the poller needs.
type statusFetcher interface {
	PromptStatus(ctx context.Context) (*schema.PromptStatus, error)
}

// Poller periodically refreshes the prompt status. Start and Stop are
// idempotent. Every run carries a generation id; a fetch that completes
// after its generation was superseded is discarded, so a stopped or
// restarted poller can never apply a stale result.
type Poller struct {
	mu         sync.Mutex
	logger     *zap.SugaredLogger
	api        statusFetcher
	interval   time.Duration
	generation uint64
	active     bool
	stopCh     chan struct{}
	status     *schema.PromptStatus
}

func NewPoller(logger *zap.SugaredLogger, api statusFetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		logger:   logger,
		api:      api,
		interval: interval,
	}
}

// Start begins polling with an immediate fetch. A second Start while
// already running is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return
	}

	p.active = true
	p.generation++
	p.stopCh = make(chan struct{})
	go p.run(p.generation, p.stopCh)
}

// Stop cancels the polling timer. An in-flight fetch is left to finish
// and is then discarded by the generation check.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}

	p.active = false
	close(p.stopCh)
	p.stopCh = nil
}

// Clear drops the last known status, used on logout so no prompt state
// leaks across sessions.
func (p *Poller) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = nil
}

// Status returns the last applied prompt status, nil while unknown.
func (p *Poller) Status() *schema.PromptStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		return nil
	}
	copied := *p.status
	return &copied
}

func (p *Poller) run(generation uint64, stop chan struct{}) {
	p.fetchOnce(generation)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.fetchOnce(generation)
		}
	}
}

// fetchOnce polls the server once. Failures are swallowed, a transient
// blip only means the status goes stale until the next tick.
func (p *Poller) fetchOnce(generation uint64) {
	status, err := p.api.PromptStatus(context.Background())
	if err != nil {
		p.logger.Debugf("Prompt status fetch failed: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active || p.generation != generation {
		// The poller was stopped or restarted while the fetch was in
		// flight, the result no longer belongs to this session.
		return
	}
	p.status = status
}
