package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/webclinic017/quant-research/internal/broker"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
	"go.uber.org/zap"
)

// Period is the investment cadence of the periodic strategy.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Periodic invests a fixed cash amount into every instrument on the first
// trading day of each period. It is the plain dollar-cost-averaging baseline
// the fancier timing strategies are measured against.
type Periodic struct {
	broker      *broker.Broker
	amount      decimal.Decimal
	period      Period
	instruments map[string]*market.Series
	lastBucket  string
	logger      *logger.Logger
}

// NewPeriodic creates a periodic investment strategy placing amount per
// instrument per period.
func NewPeriodic(b *broker.Broker, amount decimal.Decimal, period Period, log *logger.Logger) *Periodic {
	return &Periodic{
		broker:      b,
		amount:      amount,
		period:      period,
		instruments: nil,
		lastBucket:  "",
		logger:      log,
	}
}

// Name implements Strategy.
func (s *Periodic) Name() string {
	return fmt.Sprintf("periodic_%s", s.period)
}

// SetData implements Strategy.
func (s *Periodic) SetData(_ *market.Series, instruments map[string]*market.Series) {
	s.instruments = instruments
}

func (s *Periodic) bucket(today time.Time) string {
	if s.period == PeriodMonthly {
		return today.Format("2006-01")
	}

	year, week := today.ISOWeek()

	return fmt.Sprintf("%d-W%02d", year, week)
}

// Next implements Strategy. The first simulated day of each new period
// triggers one amount-driven buy per instrument.
func (s *Periodic) Next(today time.Time, tradeDate time.Time) error {
	bucket := s.bucket(today)
	if bucket == s.lastBucket {
		return nil
	}

	s.lastBucket = bucket

	for _, code := range sortedCodes(s.instruments) {
		if err := s.broker.Buy(code, tradeDate, broker.SizeByAmount(s.amount)); err != nil {
			// Running out of cash is a normal end state for a fixed-plan
			// strategy without credit, not a reason to stop the run.
			s.logger.Warn("Periodic buy not placed",
				zap.String("code", code),
				zap.Time("today", today),
				zap.Error(err),
			)
		}
	}

	return nil
}
