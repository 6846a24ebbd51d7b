// Package risk enforces per-order and portfolio-level risk limits before an
// order reaches a gateway. Grounded on
// original_source/aegisquant-core/src/risk.rs: capital, throttle, position,
// and drawdown checks run in that fixed order and short-circuit on the
// first failure. The teacher's internal/risk/manager.go (a background
// goroutine fed by a channel) does not fit here — spec.md's concurrency
// model requires the engine to call risk checks synchronously inside its
// single-threaded process_tick — so this package exposes a direct Check
// method instead of a Run loop, while keeping the teacher's RWMutex/slog
// idiom for the manager's internal state.
package risk

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aegisgo/pkg/types"
)

// Error codes, closed per spec.md §7's taxonomy.
var (
	ErrInsufficientCapital   = errors.New("insufficient capital")
	ErrThrottleExceeded      = errors.New("order throttle exceeded")
	ErrPositionLimitExceeded = errors.New("position limit exceeded")
	ErrMaxDrawdownExceeded   = errors.New("max drawdown exceeded")
)

// CheckError wraps one of the sentinel errors above with the numbers that
// produced it. Its message prints those numbers as given, so a drawdown
// rejection reports fractions; only checkDrawdown's log line converts to a
// percentage (see Open Question #3 in SPEC_FULL.md).
type CheckError struct {
	Err      error
	Required float64
	Available float64
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: required=%.4f available=%.4f", e.Err.Error(), e.Required, e.Available)
}

func (e *CheckError) Unwrap() error { return e.Err }

// Manager enforces RiskConfig limits for one engine. It is NOT safe for
// concurrent use across multiple engines — each Optimizer-spawned engine
// owns its own Manager instance, matching spec.md §5's "engines share
// nothing" rule. The mutex here only protects against an engine's own
// concurrent dashboard-read goroutine, not against cross-engine sharing.
type Manager struct {
	cfg    types.RiskConfig
	logger *slog.Logger

	mu              sync.RWMutex
	orderTimestamps []time.Time // sliding window of accepted order times
	peakEquity      float64
	initialEquity   float64
}

func NewManager(cfg types.RiskConfig, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:             cfg,
		logger:          logger.With("component", "risk"),
		orderTimestamps: make([]time.Time, 0, cfg.MaxOrderRate+1),
	}
}

// Initialize seeds peak/initial equity and empties the order-rate window at
// the start of a run.
func (rm *Manager) Initialize(initialEquity float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.peakEquity = initialEquity
	rm.initialEquity = initialEquity
	rm.orderTimestamps = rm.orderTimestamps[:0]
}

// UpdateEquity raises the recorded peak if currentEquity is a new high. Peak
// equity never decreases, matching the original's ratchet.
func (rm *Manager) UpdateEquity(currentEquity float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if currentEquity > rm.peakEquity {
		rm.peakEquity = currentEquity
	}
}

// Check runs the capital, throttle, position, and drawdown gates in that
// order, returning the first failure. A passing throttle check records the
// order's timestamp (the check is not idempotent — calling Check twice for
// orders that both pass consumes two slots in the rate window).
func (rm *Manager) Check(order types.OrderRequest, account types.AccountStatus, currentPrice float64, now time.Time) error {
	if err := rm.checkCapital(order, account, currentPrice); err != nil {
		return err
	}
	if err := rm.checkThrottle(now); err != nil {
		return err
	}
	if err := rm.checkPositionLimit(order, account); err != nil {
		return err
	}
	if err := rm.checkDrawdown(account); err != nil {
		return err
	}
	return nil
}

func (rm *Manager) checkCapital(order types.OrderRequest, account types.AccountStatus, currentPrice float64) error {
	orderValue := order.Quantity
	if orderValue < 0 {
		orderValue = -orderValue
	}
	orderValue *= currentPrice

	if orderValue > account.Available {
		return &CheckError{Err: ErrInsufficientCapital, Required: orderValue, Available: account.Available}
	}
	if orderValue > rm.cfg.MaxOrderValue {
		return &CheckError{Err: ErrInsufficientCapital, Required: orderValue, Available: rm.cfg.MaxOrderValue}
	}
	return nil
}

// checkThrottle evicts timestamps older than one second from the front of
// the sliding window, then rejects if the remaining count has already
// reached MaxOrderRate. A passing check appends now to the window.
func (rm *Manager) checkThrottle(now time.Time) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(rm.orderTimestamps) && rm.orderTimestamps[i].Before(cutoff) {
		i++
	}
	rm.orderTimestamps = rm.orderTimestamps[i:]

	currentRate := len(rm.orderTimestamps)
	if currentRate >= rm.cfg.MaxOrderRate {
		return &CheckError{Err: ErrThrottleExceeded, Required: float64(currentRate), Available: float64(rm.cfg.MaxOrderRate)}
	}

	rm.orderTimestamps = append(rm.orderTimestamps, now)
	return nil
}

// checkPositionLimit uses the account's position count as a proxy for
// exposure, matching the original's simplification (each counted position
// stands in for 100 units), since the engine's AccountStatus does not carry
// a finer per-symbol breakdown at this layer.
func (rm *Manager) checkPositionLimit(order types.OrderRequest, account types.AccountStatus) error {
	currentPosition := float64(account.PositionCount) * 100.0
	total := currentPosition + absFloat(order.Quantity)
	if total > rm.cfg.MaxPositionSize {
		return &CheckError{Err: ErrPositionLimitExceeded, Required: total, Available: rm.cfg.MaxPositionSize}
	}
	return nil
}

// checkDrawdown compares the fractional drawdown from peak equity against
// MaxDrawdownPct, both kept as fractions; only the logged message converts
// to a percentage (SPEC_FULL.md Open Question #3).
func (rm *Manager) checkDrawdown(account types.AccountStatus) error {
	rm.mu.RLock()
	peak := rm.peakEquity
	rm.mu.RUnlock()

	if peak <= 0 {
		return nil
	}

	drawdown := (peak - account.Equity) / peak
	if drawdown > rm.cfg.MaxDrawdownPct {
		rm.logger.Warn("max drawdown exceeded",
			"current_pct", drawdown*100,
			"max_pct", rm.cfg.MaxDrawdownPct*100,
		)
		return &CheckError{Err: ErrMaxDrawdownExceeded, Required: drawdown, Available: rm.cfg.MaxDrawdownPct}
	}
	return nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
