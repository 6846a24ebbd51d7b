// Package indicators implements streaming SMA, EMA, Bollinger Bands, and
// MACD over a single price series. Grounded on
// original_source/aegisquant-core/src/indicators.rs, which wraps the Rust
// `ta` crate's Next-trait indicators; no Go technical-analysis library
// appears anywhere in the example pack, so these are hand-rolled streaming
// accumulators (see DESIGN.md for the stdlib justification).
package indicators

import "math"

// SMA is a streaming simple moving average over a fixed window.
type SMA struct {
	period int
	window []float64
	sum    float64
	pos    int
	count  int
}

func NewSMA(period int) *SMA {
	return &SMA{period: period, window: make([]float64, period)}
}

func (s *SMA) Next(price float64) float64 {
	old := s.window[s.pos]
	s.window[s.pos] = price
	s.sum += price - old
	s.pos = (s.pos + 1) % s.period
	if s.count < s.period {
		s.count++
	}
	return s.sum / float64(s.count)
}

func (s *SMA) Ready() bool { return s.count >= s.period }

// EMA is a streaming exponential moving average.
type EMA struct {
	period int
	alpha  float64
	value  float64
	count  int
}

func NewEMA(period int) *EMA {
	return &EMA{period: period, alpha: 2.0 / float64(period+1)}
}

func (e *EMA) Next(price float64) float64 {
	e.count++
	if e.count == 1 {
		e.value = price
		return e.value
	}
	e.value = price*e.alpha + e.value*(1-e.alpha)
	return e.value
}

func (e *EMA) Ready() bool { return e.count >= e.period }

// BollingerBands tracks a rolling mean and standard deviation band.
type BollingerBands struct {
	period int
	stdDev float64
	window []float64
	pos    int
	count  int
}

func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{period: period, stdDev: stdDev, window: make([]float64, period)}
}

// BollingerResult holds the three bands computed from one update.
type BollingerResult struct {
	Upper, Middle, Lower float64
}

func (b *BollingerBands) Next(price float64) BollingerResult {
	b.window[b.pos] = price
	b.pos = (b.pos + 1) % b.period
	if b.count < b.period {
		b.count++
	}

	n := b.count
	var sum float64
	for i := 0; i < n; i++ {
		sum += b.window[i]
	}
	mean := sum / float64(n)

	var variance float64
	for i := 0; i < n; i++ {
		d := b.window[i] - mean
		variance += d * d
	}
	variance /= float64(n)
	sd := math.Sqrt(variance)

	return BollingerResult{
		Upper:  mean + b.stdDev*sd,
		Middle: mean,
		Lower:  mean - b.stdDev*sd,
	}
}

func (b *BollingerBands) Ready() bool { return b.count >= b.period }

// MACD tracks the moving-average convergence/divergence line, its signal
// line, and the histogram between them.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
	count  int
}

func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

// MACDResult is the DIF (MACD line), DEA (signal line), and histogram.
type MACDResult struct {
	DIF, DEA, Histogram float64
}

func (m *MACD) Next(price float64) MACDResult {
	m.count++
	dif := m.fast.Next(price) - m.slow.Next(price)
	dea := m.signal.Next(dif)
	return MACDResult{DIF: dif, DEA: dea, Histogram: dif - dea}
}

func (m *MACD) Ready() bool { return m.signal.Ready() }

// Result bundles every indicator's latest value, mirroring the original
// repo's combined IndicatorResult struct.
type Result struct {
	MA5, MA10, MA20, MA60 float64
	BollUpper, BollMiddle, BollLower float64
	MACDDif, MACDDea, MACDHistogram  float64
}

// Calculator updates the fixed indicator set used by the strategy layer:
// SMA(5/10/20/60), Bollinger(20, 2σ), MACD(12,26,9).
type Calculator struct {
	ma5, ma10, ma20, ma60 *SMA
	boll                  *BollingerBands
	macd                  *MACD
	count                 int
}

func NewCalculator() *Calculator {
	return &Calculator{
		ma5:  NewSMA(5),
		ma10: NewSMA(10),
		ma20: NewSMA(20),
		ma60: NewSMA(60),
		boll: NewBollingerBands(20, 2.0),
		macd: NewMACD(12, 26, 9),
	}
}

func (c *Calculator) Update(price float64) Result {
	c.count++
	boll := c.boll.Next(price)
	macd := c.macd.Next(price)
	return Result{
		MA5:            c.ma5.Next(price),
		MA10:           c.ma10.Next(price),
		MA20:           c.ma20.Next(price),
		MA60:           c.ma60.Next(price),
		BollUpper:      boll.Upper,
		BollMiddle:     boll.Middle,
		BollLower:      boll.Lower,
		MACDDif:        macd.DIF,
		MACDDea:        macd.DEA,
		MACDHistogram:  macd.Histogram,
	}
}

func (c *Calculator) Count() int { return c.count }

func (c *Calculator) Reset() {
	*c = *NewCalculator()
}
