package strips

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// circuitState represents the state of a circuit breaker
type circuitState int

const (
	stateClosed   circuitState = iota // Normal operation
	stateOpen                         // Source is failing, scrapes are refused
	stateHalfOpen                     // Testing if the source recovered
)

func (s circuitState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// circuitBreaker tracks consecutive scrape failures per scrape kind and
// refuses further scrapes of that kind for a while once too many pile up.
type circuitBreaker struct {
	failures         map[string]int
	lastFailure      map[string]time.Time
	state            map[string]circuitState
	lastStateLog     map[string]time.Time
	trialRunning     map[string]bool
	failureThreshold int
	openDuration     time.Duration
	clock            Clock
	mu               sync.Mutex
}

func newCircuitBreaker(threshold int, openDuration time.Duration, clock Clock) *circuitBreaker {
	return &circuitBreaker{
		failureThreshold: threshold,
		openDuration:     openDuration,
		clock:            clock,
		failures:         make(map[string]int),
		lastFailure:      make(map[string]time.Time),
		state:            make(map[string]circuitState),
		lastStateLog:     make(map[string]time.Time),
		trialRunning:     make(map[string]bool),
	}
}

// call runs fn unless the circuit for kind is open, and records the outcome.
// A missing strip is a healthy answer from the source.
func (cb *circuitBreaker) call(kind string, fn func() error) error {
	if err := cb.canAttempt(kind); err != nil {
		return err
	}

	err := fn()
	if err != nil && !errors.Is(err, ErrStripNotFound) {
		cb.recordFailure(kind, err)
	} else {
		cb.recordSuccess(kind)
	}
	return err
}

// canAttempt returns nil if the circuit is closed. Once an open circuit has
// waited out openDuration it admits a single trial scrape; every other caller
// is refused until that scrape is recorded.
func (cb *circuitBreaker) canAttempt(kind string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	lastFail := cb.lastFailure[kind]

	switch cb.getState(kind) {
	case stateClosed:
		return nil
	case stateHalfOpen:
		if !cb.trialRunning[kind] {
			cb.trialRunning[kind] = true
			return nil
		}
		return fmt.Errorf("%w: %w: %s scrapes suspended while a trial scrape is running",
			ErrScrapeFailed,
			ErrCircuitOpen,
			kind,
		)
	}

	if cb.clock.Now().Sub(lastFail) > cb.openDuration {
		cb.state[kind] = stateHalfOpen
		cb.trialRunning[kind] = true
		cb.logStateChange(kind, stateHalfOpen)
		return nil
	}

	return fmt.Errorf("%w: %w: %s scrapes suspended after %d failures, next retry at %s",
		ErrScrapeFailed,
		ErrCircuitOpen,
		kind,
		cb.failures[kind],
		lastFail.Add(cb.openDuration).Format(time.TimeOnly),
	)
}

// recordSuccess resets failure tracking for kind.
func (cb *circuitBreaker) recordSuccess(kind string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.getState(kind)

	delete(cb.failures, kind)
	delete(cb.lastFailure, kind)
	delete(cb.trialRunning, kind)
	cb.state[kind] = stateClosed

	if oldState != stateClosed {
		cb.logStateChange(kind, stateClosed)
	}
}

// recordFailure counts a failed scrape and opens the circuit at the threshold.
func (cb *circuitBreaker) recordFailure(kind string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures[kind]++
	cb.lastFailure[kind] = cb.clock.Now()
	delete(cb.trialRunning, kind)
	failCount := cb.failures[kind]

	if failCount < cb.failureThreshold {
		slog.Warn("[STRIPS-CIRCUIT] scrape failure",
			"kind", kind,
			"failures", failCount,
			"threshold", cb.failureThreshold,
			"error", err,
		)
		return
	}

	oldState := cb.getState(kind)
	cb.state[kind] = stateOpen
	if oldState != stateOpen {
		slog.Error("[STRIPS-CIRCUIT] opening circuit",
			"kind", kind,
			"failures", failCount,
			"open_for", cb.openDuration,
			"error", err,
		)
		cb.lastStateLog[kind] = cb.clock.Now()
	}
}

// getState returns the current state (must be called with lock held)
func (cb *circuitBreaker) getState(kind string) circuitState {
	if state, exists := cb.state[kind]; exists {
		return state
	}
	return stateClosed
}

// logStateChange logs state transitions at most once per minute per kind
// (must be called with lock held)
func (cb *circuitBreaker) logStateChange(kind string, newState circuitState) {
	now := cb.clock.Now()
	if lastLog, exists := cb.lastStateLog[kind]; exists && now.Sub(lastLog) < time.Minute {
		return
	}

	slog.Info("[STRIPS-CIRCUIT] circuit state changed", "kind", kind, "state", newState.String())
	cb.lastStateLog[kind] = now
}

// CircuitStats describes the breaker state for one scrape kind.
type CircuitStats struct {
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
}

// stats returns a snapshot for every kind with any recorded activity.
func (cb *circuitBreaker) stats() map[string]CircuitStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := make(map[string]CircuitStats, len(cb.state))
	for kind := range cb.state {
		stats[kind] = cb.statsFor(kind)
	}
	for kind := range cb.failures {
		stats[kind] = cb.statsFor(kind)
	}
	return stats
}

func (cb *circuitBreaker) statsFor(kind string) CircuitStats {
	return CircuitStats{
		State:       cb.getState(kind).String(),
		Failures:    cb.failures[kind],
		LastFailure: cb.lastFailure[kind],
	}
}
