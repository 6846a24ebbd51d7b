// Package precision provides the exact-decimal and epsilon-comparison
// primitives other components build on: AccountBalance carries money as a
// shopspring/decimal value (the persistence layer stores account snapshots
// through it), while price/quantity comparisons stay in float64 guarded by
// fixed epsilons. The gateways' running account balance is a float64, not an
// AccountBalance.
package precision

import (
	"github.com/shopspring/decimal"
)

// PriceEpsilon and QuantityEpsilon are the tolerances below which two
// float64 prices or quantities are considered equal. Both original gateway
// implementations use a looser 0.0001 for position-count filtering; this
// repo uses the tighter values the specification documents everywhere else,
// so AlmostZero and friends have one consistent meaning across the codebase.
const (
	PriceEpsilon    = 1e-10
	QuantityEpsilon = 1e-8
)

// AlmostEqual reports whether a and b differ by less than eps.
func AlmostEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

// AlmostZeroQuantity reports whether q is within QuantityEpsilon of zero.
func AlmostZeroQuantity(q float64) bool {
	return q > -QuantityEpsilon && q < QuantityEpsilon
}

// SpreadBps converts a bid/ask spread to basis points of the mid price.
// Returns 0 when mid is zero or negative to avoid a division by zero.
func SpreadBps(bid, ask float64) float64 {
	mid := (bid + ask) / 2
	if mid <= 0 {
		return 0
	}
	return ((ask - bid) / mid) * 10000
}

// AccountBalance wraps an exact decimal.Decimal money value with Add/Sub and
// a string round trip. Persisted account snapshots use it; the gateways'
// per-fill balance and realized P&L bookkeeping is done in float64 and is
// not routed through it.
type AccountBalance struct {
	value decimal.Decimal
}

func NewAccountBalance(amount float64) AccountBalance {
	return AccountBalance{value: decimal.NewFromFloat(amount)}
}

func (b AccountBalance) Add(amount float64) AccountBalance {
	return AccountBalance{value: b.value.Add(decimal.NewFromFloat(amount))}
}

func (b AccountBalance) Sub(amount float64) AccountBalance {
	return AccountBalance{value: b.value.Sub(decimal.NewFromFloat(amount))}
}

func (b AccountBalance) Float64() float64 {
	f, _ := b.value.Float64()
	return f
}

func (b AccountBalance) String() string {
	return b.value.String()
}

// ParseAccountBalance round-trips a decimal string back into an
// AccountBalance. If the string fails to parse (corrupted or truncated
// storage), it falls back to a zero balance rather than erroring — matching
// the original persistence layer's tolerant recovery contract.
func ParseAccountBalance(s string) AccountBalance {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return AccountBalance{value: decimal.Zero}
	}
	return AccountBalance{value: d}
}
