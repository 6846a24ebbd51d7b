// Package cleansing validates and sanitizes raw tabular ticks before they
// reach the engine. Grounded on original_source/data_pipeline.rs: the basic
// path here is the row-level validation that pipeline always runs; the
// advanced, column-oriented outlier/forward-fill pass is exposed as an
// optional second stage for callers who load a full in-memory batch.
package cleansing

import (
	"math"
	"sort"

	"aegisgo/pkg/types"
)

// RawRow is one tabular record as read by a TabularSource, before it is
// promoted to a types.Tick.
type RawRow struct {
	Timestamp   int64
	Price       float64
	Volume      float64
	SplitFactor float64 // 0 or 1 means "no split"
	Dividend    float64 // 0 means "no dividend"
}

// rejection reasons, applied in a fixed order so DataQualityReport counts
// are deterministic regardless of which checks would also have failed.
const (
	reasonNone = iota
	reasonNonPositivePrice
	reasonNegativeVolume
	reasonNonMonotonicTimestamp
	reasonNaNOrInf
)

// Cleanse validates rows in timestamp order and returns the accepted ticks
// plus a report of what was rejected. Rows are expected already sorted by
// timestamp; Cleanse does not re-sort, it only rejects non-monotonic rows
// (a row whose timestamp equals or precedes the prior accepted timestamp is
// rejected, matching the original pipeline's "<=" monotonicity test, so
// every emitted tick has a strictly increasing timestamp).
func Cleanse(rows []RawRow) ([]types.Tick, types.DataQualityReport) {
	report := types.DataQualityReport{TotalTicks: int64(len(rows))}
	if len(rows) == 0 {
		return nil, report
	}

	ticks := make([]types.Tick, 0, len(rows))
	var lastTimestamp int64
	var lastPrice float64
	haveLast := false

	for _, r := range rows {
		reason := classify(r, lastTimestamp, haveLast)
		if reason != reasonNone {
			report.InvalidTicks++
			continue
		}

		if isAnomaly(r, lastPrice, haveLast) {
			report.AnomalyTicks++
		}

		price := r.Price
		if r.SplitFactor > 0 {
			price *= r.SplitFactor
		}
		if r.Dividend > 0 {
			price -= r.Dividend
		}

		tick := types.Tick{Timestamp: r.Timestamp, Price: price, Volume: r.Volume}
		ticks = append(ticks, tick)

		if report.FirstTimestamp == 0 {
			report.FirstTimestamp = r.Timestamp
		}
		report.LastTimestamp = r.Timestamp
		report.ValidTicks++
		lastTimestamp = r.Timestamp
		lastPrice = r.Price
		haveLast = true
	}

	return ticks, report
}

func classify(r RawRow, lastTimestamp int64, haveLast bool) int {
	if math.IsNaN(r.Price) || math.IsInf(r.Price, 0) || math.IsNaN(r.Volume) || math.IsInf(r.Volume, 0) {
		return reasonNaNOrInf
	}
	if r.Price <= 0 {
		return reasonNonPositivePrice
	}
	if r.Volume < 0 {
		return reasonNegativeVolume
	}
	if haveLast && r.Timestamp <= lastTimestamp {
		return reasonNonMonotonicTimestamp
	}
	return reasonNone
}

// priceJumpThreshold is the fractional change in price between one accepted
// tick and the next above which the later tick is flagged as an anomaly,
// without being rejected.
const priceJumpThreshold = 0.10

// isAnomaly flags a row whose raw price moved by more than
// priceJumpThreshold relative to the previously accepted row's raw price.
// There is no previous price to compare against for the first accepted row.
func isAnomaly(r RawRow, lastPrice float64, haveLast bool) bool {
	if !haveLast || lastPrice <= 0 {
		return false
	}
	changePct := math.Abs(r.Price-lastPrice) / lastPrice
	return changePct > priceJumpThreshold
}

// ————————————————————————————————————————————————————————————————————————
// Advanced pipeline: z-score outlier filtering + forward-fill
// ————————————————————————————————————————————————————————————————————————

// PipelineConfig tunes the advanced, batch-oriented cleansing pass.
type PipelineConfig struct {
	OutlierZScoreThreshold float64
	FillMissing            bool
	AdjustPrices           bool
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		OutlierZScoreThreshold: 3.0,
		FillMissing:            true,
		AdjustPrices:           true,
	}
}

// CleanAdvanced runs the full batch pipeline: dedupe-by-timestamp (keep
// last), optional forward/zero fill, then z-score outlier rejection. It
// operates on already-accepted ticks from Cleanse and returns a further
// filtered slice plus the count of ticks it dropped as outliers.
func CleanAdvanced(ticks []types.Tick, cfg PipelineConfig) ([]types.Tick, int64) {
	deduped := dedupeKeepLast(ticks)

	if cfg.FillMissing {
		fillZeroVolume(deduped)
	}

	if cfg.OutlierZScoreThreshold <= 0 {
		return deduped, 0
	}

	prices := make([]float64, len(deduped))
	for i, t := range deduped {
		prices[i] = t.Price
	}
	mean, std := meanStdDev(prices)
	if std < 0.0001 {
		std = 0.0001
	}

	kept := make([]types.Tick, 0, len(deduped))
	var dropped int64
	for i, t := range deduped {
		z := (prices[i] - mean) / std
		if z < 0 {
			z = -z
		}
		if z < cfg.OutlierZScoreThreshold {
			kept = append(kept, t)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

func dedupeKeepLast(ticks []types.Tick) []types.Tick {
	sorted := make([]types.Tick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	out := sorted[:0:0]
	for i, t := range sorted {
		if i+1 < len(sorted) && sorted[i+1].Timestamp == t.Timestamp {
			continue // a later row with the same timestamp wins
		}
		out = append(out, t)
	}
	return out
}

func fillZeroVolume(ticks []types.Tick) {
	var lastPrice float64
	for i := range ticks {
		if ticks[i].Price == 0 && lastPrice != 0 {
			ticks[i].Price = lastPrice
		}
		lastPrice = ticks[i].Price
	}
}

func meanStdDev(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance)
}
