package backtest

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/webclinic017/quant-research/internal/broker"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/internal/strategy"
	"github.com/webclinic017/quant-research/pkg/errors"
	"go.uber.org/zap"
)

// BuyDay controls which day's price a signal executes at: the signal day
// itself or the next trading day.
type BuyDay string

const (
	BuyDayToday    BuyDay = "today"
	BuyDayTomorrow BuyDay = "tomorrow"
)

// OnDayCallback reports per-day progress to the caller (current day index
// within the window and the total number of simulated days).
type OnDayCallback func(current int, total int)

// BackTester owns the simulated calendar and drives strategy and broker in
// lockstep, once per date in ascending order. It holds no trading logic.
type BackTester struct {
	broker   *broker.Broker
	strategy strategy.Strategy

	startDate optional.Option[time.Time]
	endDate   optional.Option[time.Time]
	buyDay    BuyDay

	dates   []time.Time
	dataSet bool

	logger *logger.Logger
	onDay  optional.Option[OnDayCallback]
}

// NewBackTester wires a broker and a strategy to a simulation window. None
// bounds leave that side of the window open.
func NewBackTester(
	b *broker.Broker,
	s strategy.Strategy,
	startDate optional.Option[time.Time],
	endDate optional.Option[time.Time],
	buyDay BuyDay,
	log *logger.Logger,
) *BackTester {
	return &BackTester{
		broker:    b,
		strategy:  s,
		startDate: startDate,
		endDate:   endDate,
		buyDay:    buyDay,
		dates:     nil,
		dataSet:   false,
		logger:    log,
		onDay:     optional.None[OnDayCallback](),
	}
}

// SetOnDayCallback registers a per-day progress callback.
func (bt *BackTester) SetOnDayCallback(callback OnDayCallback) {
	bt.onDay = optional.Some(callback)
}

// SetData computes the simulation calendar as the sorted union of every date
// present in the baseline and instrument series, and forwards the data to
// both the strategy and the broker.
func (bt *BackTester) SetData(baseline *market.Series, instruments map[string]*market.Series) {
	bt.dates = market.UnionDates(baseline, instruments)
	bt.dataSet = true

	bt.strategy.SetData(baseline, instruments)
	bt.broker.SetData(baseline, instruments)

	bt.logger.Debug("Simulation calendar built",
		zap.Int("dates", len(bt.dates)),
		zap.Int("instruments", len(instruments)),
	)
}

func (bt *BackTester) inWindow(date time.Time) (beforeStart bool, afterEnd bool) {
	if bt.startDate.IsSome() && date.Before(market.DayOf(bt.startDate.Unwrap())) {
		beforeStart = true
	}

	if bt.endDate.IsSome() && date.After(market.DayOf(bt.endDate.Unwrap())) {
		afterEnd = true
	}

	return beforeStart, afterEnd
}

// Run simulates every calendar date inside the window in ascending order:
// strategy first, broker second, one date at a time. Broker-level market
// conditions never stop the run; a strategy error aborts it.
func (bt *BackTester) Run() error {
	if bt.strategy == nil {
		return errors.New(errors.ErrCodeNoStrategy, "no strategy configured")
	}

	if !bt.dataSet {
		return errors.New(errors.ErrCodeNoData, "SetData was never called")
	}

	if len(bt.dates) == 0 {
		// No series produced any date; nothing to simulate.
		bt.logger.Warn("Empty simulation calendar, nothing to run")

		return nil
	}

	total := bt.windowSize()
	current := 0

	for i, today := range bt.dates {
		beforeStart, afterEnd := bt.inWindow(today)
		if beforeStart {
			continue
		}

		if afterEnd {
			return nil
		}

		// The last calendar date has no lookahead date for tomorrow-price
		// execution.
		if i == len(bt.dates)-1 {
			continue
		}

		tradeDate := today
		if bt.buyDay == BuyDayTomorrow {
			tradeDate = bt.dates[i+1]
		}

		if err := bt.strategy.Next(today, tradeDate); err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyFailed, err,
				"strategy %s failed on %s", bt.strategy.Name(), today.Format("2006-01-02"))
		}

		bt.broker.Run(today)

		current++
		if bt.onDay.IsSome() {
			bt.onDay.Unwrap()(current, total)
		}
	}

	return nil
}

// windowSize counts the calendar dates that will actually be simulated: the
// dates inside the window minus the final calendar date, which Run always
// skips. The progress callback reaches current == total on the last
// simulated day.
func (bt *BackTester) windowSize() int {
	count := 0

	for i, date := range bt.dates {
		if i == len(bt.dates)-1 {
			continue
		}

		beforeStart, afterEnd := bt.inWindow(date)
		if !beforeStart && !afterEnd {
			count++
		}
	}

	return count
}

// Dates returns the full simulation calendar.
func (bt *BackTester) Dates() []time.Time {
	dates := make([]time.Time, len(bt.dates))
	copy(dates, bt.dates)

	return dates
}
