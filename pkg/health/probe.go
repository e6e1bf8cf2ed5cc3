package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/cuemby/coordpool/pkg/log"
)

// ProbeInterval is the default cadence the HealthProbe polls the discovery
// dependency on, matching HEALTH_PROBE_INTERVAL.
const ProbeInterval = 5 * time.Second

// FailureThreshold is the number of consecutive probe failures that trip
// the breaker open, matching HEALTH_PROBE_FAILURE_THRESHOLD.
const FailureThreshold = 3

// OnTransition is called whenever the probe's availability flips, so the
// facade can emit degradation_changed and trigger a drain pass.
type OnTransition func(available bool)

// Probe tracks availability of the external discovery/migration dependency.
// Each check runs through a circuit breaker. Availability follows every
// check's result, so a single failed check reports the dependency
// unavailable. After FailureThreshold consecutive failures the breaker
// opens: checks are then short-circuited and reported unavailable without
// calling the Checker until the breaker's timeout has passed. Checker is
// pluggable: an HTTPChecker or TCPChecker, or a test double.
type Probe struct {
	checker Checker
	breaker *gobreaker.CircuitBreaker
	onFlip  OnTransition
	logger  zerolog.Logger

	mu        sync.Mutex
	available bool
	lastCheck time.Time

	stopCh chan struct{}
}

// NewProbe constructs a Probe around checker. onFlip is invoked (outside
// the probe's own lock) whenever availability changes; it may be nil.
//
// The breaker's open-state timeout is ProbeInterval, so a breaker that
// trips on one scheduled check naturally allows a trial request on the
// next tick — recovery needs one real probe interval to elapse, not an
// immediate retry.
func NewProbe(checker Checker, onFlip OnTransition) *Probe {
	return newProbe(checker, onFlip, ProbeInterval)
}

func newProbe(checker Checker, onFlip OnTransition, breakerTimeout time.Duration) *Probe {
	settings := gobreaker.Settings{
		Name:        "discovery-dependency",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= FailureThreshold
		},
	}
	return &Probe{
		checker: checker,
		breaker: gobreaker.NewCircuitBreaker(settings),
		onFlip:  onFlip,
		logger:  log.WithComponent("health_probe"),
		// Optimistic until the first check proves otherwise, so a pool
		// that never wires a real discovery dependency (tests, demos)
		// does not start every gated task in degraded mode.
		available: true,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the probe's polling loop.
func (p *Probe) Start() {
	go p.run()
}

// Stop stops the polling loop.
func (p *Probe) Stop() {
	close(p.stopCh)
}

func (p *Probe) run() {
	ticker := time.NewTicker(ProbeInterval)
	defer ticker.Stop()

	p.logger.Info().Msg("health probe started")

	for {
		select {
		case <-ticker.C:
			p.CheckNow(context.Background())
		case <-p.stopCh:
			p.logger.Info().Msg("health probe stopped")
			return
		}
	}
}

// CheckNow runs the check immediately through the breaker, updates the
// cached availability, and fires onFlip if it changed. The probe's own
// polling loop uses this path.
func (p *Probe) CheckNow(ctx context.Context) bool {
	healthy, changed := p.check(ctx)
	if changed {
		p.logger.Warn().Bool("available", healthy).Msg("discovery dependency availability changed")
		if p.onFlip != nil {
			p.onFlip(healthy)
		}
	}
	return healthy
}

// CheckNowQuiet runs the same on-demand check as CheckNow but never invokes
// onFlip, leaving it to the caller to react to a change itself. A submitter
// that finds a stale probe calls this instead of CheckNow, because it is
// already holding a lock onFlip would try to re-acquire.
func (p *Probe) CheckNowQuiet(ctx context.Context) (healthy bool, changed bool) {
	return p.check(ctx)
}

func (p *Probe) check(ctx context.Context) (healthy bool, changed bool) {
	_, err := p.breaker.Execute(func() (any, error) {
		result := p.checker.Check(ctx)
		if !result.Healthy {
			return nil, errUnhealthy
		}
		return nil, nil
	})

	healthy = err == nil

	p.mu.Lock()
	changed = healthy != p.available
	p.available = healthy
	p.lastCheck = time.Now()
	p.mu.Unlock()

	return healthy, changed
}

// Available returns the cached availability without performing a check.
func (p *Probe) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// Stale reports whether the cached result is older than ProbeInterval,
// used by the facade to decide whether a gated submission should trigger
// an on-demand check before deciding admission.
func (p *Probe) Stale() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastCheck) > ProbeInterval
}

var errUnhealthy = errors.New("health check reported unhealthy")
