// Package analytics computes performance metrics from a finished run's daily
// valuations and trade history.
package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/webclinic017/quant-research/internal/broker"
)

const tradingDaysPerYear = 252.0

// Summary is the headline performance report of one run.
type Summary struct {
	StartDate time.Time
	EndDate   time.Time
	Days      int

	InitialValue decimal.Decimal
	FinalValue   decimal.Decimal

	CumulativeReturn float64
	AnnualizedReturn float64
	MaxDrawdown      float64
	SharpeRatio      float64

	TradeCount      int
	WinningTrades   int
	LosingTrades    int
	WinRate         float64
	TotalCommission decimal.Decimal
}

// Summarize derives a Summary from daily valuations and executed trades.
// An empty valuation history yields a zero Summary.
func Summarize(
	valuations []broker.DailyValuation,
	history []*broker.Trade,
	totalCommission decimal.Decimal,
) Summary {
	summary := Summary{
		InitialValue:    decimal.Zero,
		FinalValue:      decimal.Zero,
		TotalCommission: totalCommission,
	}

	if len(valuations) == 0 {
		return summary
	}

	first := valuations[0]
	last := valuations[len(valuations)-1]

	summary.StartDate = first.Date
	summary.EndDate = last.Date
	summary.Days = len(valuations)
	summary.InitialValue = first.TotalValue
	summary.FinalValue = last.TotalValue

	initial := first.TotalValue.InexactFloat64()
	final := last.TotalValue.InexactFloat64()

	if initial > 0 {
		summary.CumulativeReturn = final/initial - 1

		years := float64(len(valuations)) / tradingDaysPerYear
		if years > 0 && final > 0 {
			summary.AnnualizedReturn = math.Pow(final/initial, 1/years) - 1
		}
	}

	summary.MaxDrawdown = maxDrawdown(valuations)
	summary.SharpeRatio = sharpeRatio(valuations)

	summary.TradeCount, summary.WinningTrades, summary.LosingTrades = countTrades(history)
	if summary.WinningTrades+summary.LosingTrades > 0 {
		summary.WinRate = float64(summary.WinningTrades) /
			float64(summary.WinningTrades+summary.LosingTrades)
	}

	return summary
}

// maxDrawdown is the largest peak-to-trough decline of total value, as a
// positive fraction of the peak.
func maxDrawdown(valuations []broker.DailyValuation) float64 {
	peak := 0.0
	worst := 0.0

	for _, valuation := range valuations {
		value := valuation.TotalValue.InexactFloat64()
		if value > peak {
			peak = value
		}

		if peak > 0 {
			drawdown := (peak - value) / peak
			if drawdown > worst {
				worst = drawdown
			}
		}
	}

	return worst
}

// sharpeRatio annualizes the mean and standard deviation of daily returns.
// The risk-free rate is taken as zero.
func sharpeRatio(valuations []broker.DailyValuation) float64 {
	if len(valuations) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(valuations)-1)

	for i := 1; i < len(valuations); i++ {
		previous := valuations[i-1].TotalValue.InexactFloat64()
		current := valuations[i].TotalValue.InexactFloat64()

		if previous > 0 {
			returns = append(returns, current/previous-1)
		}
	}

	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)

	deviation := math.Sqrt(variance)
	if deviation == 0 {
		return 0
	}

	return mean / deviation * math.Sqrt(tradingDaysPerYear)
}

// countTrades counts executed sells as wins or losses by their return rate.
// Buys have no realized return and only contribute to the total count.
func countTrades(history []*broker.Trade) (total int, wins int, losses int) {
	for _, trade := range history {
		if !trade.Executed() {
			continue
		}

		total++

		if trade.Side != broker.SideSell || trade.ReturnRate.IsNone() {
			continue
		}

		if trade.ReturnRate.Unwrap() > 0 {
			wins++
		} else {
			losses++
		}
	}

	return total, wins, losses
}
