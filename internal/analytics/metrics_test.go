package analytics

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/webclinic017/quant-research/internal/broker"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func valuations(values ...float64) []broker.DailyValuation {
	rows := make([]broker.DailyValuation, len(values))
	for i, v := range values {
		rows[i] = broker.DailyValuation{
			Date:       day(i),
			TotalValue: decimal.NewFromFloat(v),
		}
	}

	return rows
}

func executedSell(rate float64) *broker.Trade {
	return &broker.Trade{
		Side:       broker.SideSell,
		ActualDate: optional.Some(day(0)),
		ReturnRate: optional.Some(rate),
	}
}

func executedBuy() *broker.Trade {
	return &broker.Trade{
		Side:       broker.SideBuy,
		ActualDate: optional.Some(day(0)),
	}
}

func (suite *MetricsTestSuite) TestEmptyHistory() {
	summary := Summarize(nil, nil, decimal.Zero)

	suite.Equal(0, summary.Days)
	suite.Zero(summary.CumulativeReturn)
	suite.Zero(summary.MaxDrawdown)
	suite.True(summary.FinalValue.IsZero())
}

func (suite *MetricsTestSuite) TestCumulativeReturn() {
	summary := Summarize(valuations(1000, 1050, 1100), nil, decimal.Zero)

	suite.Equal(3, summary.Days)
	suite.Equal(day(0), summary.StartDate)
	suite.Equal(day(2), summary.EndDate)
	suite.InDelta(0.10, summary.CumulativeReturn, 1e-9)
	suite.True(summary.AnnualizedReturn > summary.CumulativeReturn)
}

func (suite *MetricsTestSuite) TestMaxDrawdown() {
	// Peak 1200, trough 900: drawdown 25%.
	summary := Summarize(valuations(1000, 1200, 900, 1100), nil, decimal.Zero)

	suite.InDelta(0.25, summary.MaxDrawdown, 1e-9)
}

func (suite *MetricsTestSuite) TestFlatSeriesHasNoDrawdownOrSharpe() {
	summary := Summarize(valuations(1000, 1000, 1000), nil, decimal.Zero)

	suite.Zero(summary.MaxDrawdown)
	suite.Zero(summary.SharpeRatio)
	suite.Zero(summary.CumulativeReturn)
}

func (suite *MetricsTestSuite) TestWinRateCountsSellsOnly() {
	history := []*broker.Trade{
		executedBuy(),
		executedSell(0.1),
		executedSell(-0.05),
		executedSell(0.3),
		{Side: broker.SideBuy}, // never executed, not counted
	}

	summary := Summarize(valuations(1000, 1010), history, decimal.NewFromInt(7))

	suite.Equal(4, summary.TradeCount)
	suite.Equal(2, summary.WinningTrades)
	suite.Equal(1, summary.LosingTrades)
	suite.InDelta(2.0/3.0, summary.WinRate, 1e-9)
	suite.True(summary.TotalCommission.Equal(decimal.NewFromInt(7)))
}
