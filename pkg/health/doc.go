/*
Package health implements the coordination pool's HealthProbe: the
component tracking whether the external discovery/migration dependency is
available, gating admission of discovery and migration tasks.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                     Checker Interface                        │
	│  • Check(ctx) Result                                         │
	│  • Type() CheckType                                          │
	└────────┬──────────────────────────────────────────┬──────────┘
	         ▼                                           ▼
	   ┌──────────┐                                ┌──────────┐
	   │   HTTP   │                                │    TCP    │
	   │ Checker  │                                │  Checker  │
	   └────┬─────┘                                └─────┬─────┘
	        └───────────────────┬────────────────────────┘
	                            ▼
	                 ┌────────────────────┐
	                 │        Probe        │
	                 │  gobreaker-wrapped  │
	                 │  available/degraded │
	                 └────────────────────┘

Checker is the pluggable strategy (HTTPChecker or TCPChecker, or a test
double). Probe runs whichever Checker is configured through a circuit
breaker. Availability follows each check's result: one failed check reports
the dependency unavailable, and the next successful one reports it
available again. After FailureThreshold consecutive failures the breaker
opens, and checks are short-circuited (reported unavailable without calling
the Checker) until ProbeInterval has passed; the next check is then a
trial, and its success closes the breaker. A flip back to available
triggers the facade's drain pass over previously gated tasks.

# Usage

	checker := health.NewHTTPChecker("http://discovery:8080/healthz")
	probe := health.NewProbe(checker, func(available bool) {
		// facade: flip HealthState.DiscoveryAvailable, emit
		// degradation_changed, drain the queue if newly available
	})
	probe.Start()
	defer probe.Stop()

	if probe.Stale() {
		probe.CheckNow(ctx)
	}

# Design Notes

Status and Config (health.go) are generic consecutive-failure bookkeeping
kept alongside the checkers; Probe does not use them. Probe counts failures
through its circuit breaker and adds the availability-change callback the
facade reacts to.
*/
package health
