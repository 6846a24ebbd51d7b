package optimizer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"aegisgo/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func syntheticTicks(n int) []types.Tick {
	ticks := make([]types.Tick, n)
	price := 100.0
	for i := 0; i < n; i++ {
		if i%20 < 10 {
			price += 1
		} else {
			price -= 1
		}
		ticks[i] = types.Tick{Timestamp: int64(i+1) * 1000, Price: price, Volume: 1}
	}
	return ticks
}

func TestGenerateCombinationsSkipsShortNotLessThanLong(t *testing.T) {
	t.Parallel()

	opt := New(types.DefaultRiskConfig(), testLogger())
	combos := opt.GenerateCombinations(ParameterRange{
		ShortMA: Range{Start: 5, End: 10, Step: 5},
		LongMA:  Range{Start: 5, End: 10, Step: 5},
	})

	for _, c := range combos {
		if c.ShortMAPeriod >= c.LongMAPeriod {
			t.Fatalf("combo %+v has short >= long", c)
		}
	}
	if len(combos) == 0 {
		t.Fatal("expected at least one valid combination")
	}
}

func TestGenerateCombinationsDefaultPositionSize(t *testing.T) {
	t.Parallel()

	opt := New(types.DefaultRiskConfig(), testLogger())
	combos := opt.GenerateCombinations(ParameterRange{
		ShortMA: Range{Start: 3, End: 3, Step: 1},
		LongMA:  Range{Start: 10, End: 10, Step: 1},
	})
	if len(combos) != 1 {
		t.Fatalf("len(combos) = %d, want 1", len(combos))
	}
	if combos[0].PositionSize != 100.0 {
		t.Fatalf("PositionSize = %v, want default 100.0", combos[0].PositionSize)
	}
}

func TestGenerateCombinationsPositionSizeSweep(t *testing.T) {
	t.Parallel()

	opt := New(types.DefaultRiskConfig(), testLogger())
	combos := opt.GenerateCombinations(ParameterRange{
		ShortMA:      Range{Start: 3, End: 3, Step: 1},
		LongMA:       Range{Start: 10, End: 10, Step: 1},
		PositionSize: PositionSizeRange{Start: 50, End: 150, Step: 50, Enabled: true},
	})
	if len(combos) != 3 {
		t.Fatalf("len(combos) = %d, want 3 (50, 100, 150)", len(combos))
	}
}

func TestRunSweepProducesIndexStableResults(t *testing.T) {
	t.Parallel()

	opt := New(types.DefaultRiskConfig(), testLogger())
	opt.Concurrency = 4

	ticks := syntheticTicks(200)
	results, err := opt.RunSweep(context.Background(), ticks, types.DataQualityReport{}, ParameterRange{
		ShortMA: Range{Start: 3, End: 5, Step: 1},
		LongMA:  Range{Start: 10, End: 15, Step: 5},
	})
	if err != nil {
		t.Fatalf("RunSweep() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}

	combos := opt.GenerateCombinations(ParameterRange{
		ShortMA: Range{Start: 3, End: 5, Step: 1},
		LongMA:  Range{Start: 10, End: 15, Step: 5},
	})
	if len(results) != len(combos) {
		t.Fatalf("len(results) = %d, want %d (one per valid combination)", len(results), len(combos))
	}
	for i, c := range combos {
		if results[i].Params != c {
			t.Fatalf("results[%d].Params = %+v, want %+v (combination order)", i, results[i].Params, c)
		}
	}
}

func TestRunSweepRespectsCancelledContext(t *testing.T) {
	t.Parallel()

	opt := New(types.DefaultRiskConfig(), testLogger())
	ticks := syntheticTicks(50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := opt.RunSweep(ctx, ticks, types.DataQualityReport{}, ParameterRange{
		ShortMA: Range{Start: 3, End: 3, Step: 1},
		LongMA:  Range{Start: 10, End: 10, Step: 1},
	})
	if err == nil {
		t.Fatal("RunSweep() with cancelled context = nil error, want context.Canceled")
	}
}

func TestSortBySharpeDescending(t *testing.T) {
	t.Parallel()

	results := []Result{
		{Result: types.BacktestResult{SharpeRatio: 0.5}},
		{Result: types.BacktestResult{SharpeRatio: 1.5}},
		{Result: types.BacktestResult{SharpeRatio: -0.2}},
	}
	SortBySharpe(results)

	for i := 1; i < len(results); i++ {
		if results[i-1].Result.SharpeRatio < results[i].Result.SharpeRatio {
			t.Fatalf("results not sorted descending: %+v", results)
		}
	}
}

func TestBestBySharpeAndBestByReturn(t *testing.T) {
	t.Parallel()

	results := []Result{
		{Params: types.StrategyParams{ShortMAPeriod: 1}, Result: types.BacktestResult{SharpeRatio: 0.5, TotalReturnPct: 10}},
		{Params: types.StrategyParams{ShortMAPeriod: 2}, Result: types.BacktestResult{SharpeRatio: 1.5, TotalReturnPct: 5}},
	}

	best := BestBySharpe(results)
	if best == nil || best.Params.ShortMAPeriod != 2 {
		t.Fatalf("BestBySharpe() = %+v, want ShortMAPeriod=2", best)
	}

	bestReturn := BestByReturn(results)
	if bestReturn == nil || bestReturn.Params.ShortMAPeriod != 1 {
		t.Fatalf("BestByReturn() = %+v, want ShortMAPeriod=1", bestReturn)
	}
}

func TestBestBySharpeEmptyReturnsNil(t *testing.T) {
	t.Parallel()
	if got := BestBySharpe(nil); got != nil {
		t.Fatalf("BestBySharpe(nil) = %v, want nil", got)
	}
	if got := BestByReturn(nil); got != nil {
		t.Fatalf("BestByReturn(nil) = %v, want nil", got)
	}
}

func TestDefaultParameterRangeMatchesOriginal(t *testing.T) {
	t.Parallel()
	r := DefaultParameterRange()
	if r.ShortMA != (Range{Start: 3, End: 10, Step: 1}) {
		t.Fatalf("ShortMA = %+v", r.ShortMA)
	}
	if r.LongMA != (Range{Start: 10, End: 30, Step: 2}) {
		t.Fatalf("LongMA = %+v", r.LongMA)
	}
}
