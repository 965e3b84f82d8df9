package status

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
)

// Fetcher retrieves one status snapshot. Only this call is allowed to block on
// network I/O inside the coordinator.
type Fetcher func(ctx context.Context) (*types.StatusSnapshot, error)

// Config tunes the coordinator's fetch cycle. Zero values take the defaults.
type Config struct {
	BaseInterval time.Duration // interval between successful fetches (default 30s)
	MaxInterval  time.Duration // backoff ceiling (default 300s)
	RestartDelay time.Duration // delay before the restart attempt after repeated failures (default 5s)
	FetchTimeout time.Duration // per-fetch deadline (default 10s)
	MaxFailures  int           // consecutive failures before tear-down-and-restart (default 3)
}

func (c *Config) applyDefaults() {
	if c.BaseInterval <= 0 {
		c.BaseInterval = 30 * time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 300 * time.Second
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = 5 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 3
	}
}

type observer struct {
	onUpdate func(*types.StatusSnapshot)
	onError  func(error)
}

// Coordinator drives one shared fetch/backoff cycle for any number of observers.
// It holds at most one in-flight fetch system-wide regardless of observer count;
// that single-flight guarantee is what distinguishes it from per-observer polling.
//
// Lifecycle: idle with no observers, active from the first Subscribe until the
// last Unsubscribe. Constructed explicitly and injected; there is no package
// global.
type Coordinator struct {
	fetch Fetcher
	cfg   Config

	mu        sync.Mutex
	observers map[string]*observer
	cached    *types.StatusSnapshot
	errCount  int
	fetching  bool
	active    bool
	stopped   bool
	timer     *time.Timer
}

func NewCoordinator(fetch Fetcher, cfg Config) *Coordinator {
	cfg.applyDefaults()
	return &Coordinator{
		fetch:     fetch,
		cfg:       cfg,
		observers: make(map[string]*observer),
	}
}

// Subscribe registers a callback pair under id; re-subscribing the same id
// replaces the prior callbacks. If a cached snapshot exists it is delivered
// synchronously before this call returns, so a new observer is never left
// without data while waiting for the next cycle. The first observer moves the
// coordinator from idle to active and triggers an immediate fetch.
func (c *Coordinator) Subscribe(id string, onUpdate func(*types.StatusSnapshot), onError func(error)) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	obs := &observer{onUpdate: onUpdate, onError: onError}
	c.observers[id] = obs
	cached := c.cached
	kick := !c.active
	if kick {
		c.active = true
	}
	c.mu.Unlock()

	if cached != nil {
		deliverUpdate(obs, cached)
	}
	if kick {
		go c.runFetch()
	}
}

// Unsubscribe deregisters id. When no observers remain, polling stops and any
// armed timer is cancelled; an in-flight fetch is not interrupted, its result is
// simply discarded.
func (c *Coordinator) Unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.observers, id)
	if len(c.observers) == 0 && c.active {
		c.active = false
		c.stopTimerLocked()
	}
}

// Refresh requests an out-of-cycle fetch. A no-op while a fetch is in flight;
// callers needing freshness must re-request after the current fetch lands.
func (c *Coordinator) Refresh() {
	c.mu.Lock()
	if !c.active || c.fetching || c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.mu.Unlock()
	go c.runFetch()
}

// Stop tears the coordinator down for process shutdown.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.active = false
	c.stopTimerLocked()
}

// ObserverCount reports the number of registered observers.
func (c *Coordinator) ObserverCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

func (c *Coordinator) runFetch() {
	c.mu.Lock()
	if c.fetching || c.stopped || !c.active {
		c.mu.Unlock()
		return
	}
	c.fetching = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
	snap, err := c.fetch(ctx)
	cancel()
	if err == nil && snap == nil {
		err = types.ErrFetchFailed
	}

	c.mu.Lock()
	c.fetching = false
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if err == nil {
		c.errCount = 0
		c.cached = snap
	}
	if !c.active {
		// Last observer left while the fetch was in flight; the result stays
		// cached for the next subscriber but is delivered to no one.
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.errCount++
	}
	failures := c.errCount
	// Snapshot the observer set after the fetch lands so an observer subscribed
	// mid-flight receives this result rather than waiting a full cycle.
	targets := make([]*observer, 0, len(c.observers))
	for _, o := range c.observers {
		targets = append(targets, o)
	}
	c.mu.Unlock()

	if err == nil {
		for _, o := range targets {
			deliverUpdate(o, snap)
		}
	} else {
		tool.DefaultLogger.Warnf("Status fetch failed (%d consecutive): %v", failures, err)
		for _, o := range targets {
			deliverError(o, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || !c.active || c.fetching {
		return
	}
	switch {
	case err == nil:
		c.armTimerLocked(c.cfg.BaseInterval)
	case failures >= c.cfg.MaxFailures:
		// Tear down rather than backing off indefinitely: one restart attempt
		// shortly, with the failure streak reset for the fresh cycle. This
		// bounds the worst-case silence window after an error burst.
		c.errCount = 0
		c.stopTimerLocked()
		c.timer = time.AfterFunc(c.cfg.RestartDelay, c.runFetch)
		tool.DefaultLogger.Warnf("Status polling restarting in %s after %d consecutive failures", c.cfg.RestartDelay, failures)
	default:
		c.armTimerLocked(backoffInterval(c.cfg.BaseInterval, c.cfg.MaxInterval, failures))
	}
}

func (c *Coordinator) armTimerLocked(d time.Duration) {
	c.stopTimerLocked()
	c.timer = time.AfterFunc(d, c.runFetch)
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// backoffInterval computes min(base * 1.5^failures, max).
func backoffInterval(base, max time.Duration, failures int) time.Duration {
	d := time.Duration(float64(base) * math.Pow(1.5, float64(failures)))
	if d > max || d < 0 {
		return max
	}
	return d
}

// deliverUpdate invokes one observer's update callback, isolating panics so a
// broken callback cannot block delivery to the rest.
func deliverUpdate(o *observer, snap *types.StatusSnapshot) {
	if o.onUpdate == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			tool.DefaultLogger.Errorf("Status observer update panicked: %v", r)
		}
	}()
	o.onUpdate(snap)
}

func deliverError(o *observer, err error) {
	if o.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			tool.DefaultLogger.Errorf("Status observer error callback panicked: %v", r)
		}
	}()
	o.onError(err)
}
