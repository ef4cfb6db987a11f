package backtest

import (
	"sync"

	"github.com/webclinic017/quant-research/internal/analytics"
	"github.com/webclinic017/quant-research/internal/broker"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
)

// SweepRun is one independent run in a sweep: its own config and its own
// strategy instance bound to a fresh broker.
type SweepRun struct {
	Name   string
	Config Config

	NewStrategy StrategyFactory
}

// SweepResult carries one run's full outcome. Err is set when the run could
// not be assembled or the strategy aborted it.
type SweepResult struct {
	Name string

	Summary    analytics.Summary
	Valuations []broker.DailyValuation
	History    []*broker.Trade

	Err error
}

// RunSweep executes every run concurrently against the same shared, read-only
// price data. Results come back in the same order as the runs. Each run gets
// a silent logger so concurrent output does not interleave.
func RunSweep(
	runs []SweepRun,
	baseline *market.Series,
	instruments map[string]*market.Series,
) []SweepResult {
	results := make([]SweepResult, len(runs))

	var wg sync.WaitGroup

	for i, run := range runs {
		wg.Add(1)

		go func(i int, run SweepRun) {
			defer wg.Done()

			results[i] = runOne(run, baseline, instruments)
		}(i, run)
	}

	wg.Wait()

	return results
}

func runOne(
	run SweepRun,
	baseline *market.Series,
	instruments map[string]*market.Series,
) SweepResult {
	result := SweepResult{Name: run.Name}

	log := logger.NewNopLogger()

	bt, b, err := NewEngineFromConfig(run.Config, run.NewStrategy, log)
	if err != nil {
		result.Err = err

		return result
	}

	bt.SetData(baseline, instruments)

	if err := bt.Run(); err != nil {
		result.Err = err

		return result
	}

	result.Valuations = b.Valuations()
	result.History = b.History()
	result.Summary = analytics.Summarize(result.Valuations, result.History, b.TotalCommission())

	return result
}
