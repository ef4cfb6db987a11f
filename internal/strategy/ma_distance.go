package strategy

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/webclinic017/quant-research/internal/broker"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/pkg/errors"
	"go.uber.org/zap"
)

// MADistanceConfig tunes the moving-average timing strategy.
type MADistanceConfig struct {
	// MAColumn is the baseline indicator column holding the long moving
	// average, e.g. "ma850".
	MAColumn string `yaml:"ma_column"`
	// BuyAmount is invested each time the baseline closes below the average.
	BuyAmount decimal.Decimal `yaml:"buy_amount"`
	// SellGain is the fraction above the average at which everything is
	// liquidated, e.g. 0.2 sells 20% above the MA.
	SellGain float64 `yaml:"sell_gain"`
}

// MADistance buys when the baseline index closes below its long moving
// average and liquidates once it closes sufficiently above it: cheap by the
// index's own history, not by prediction.
type MADistance struct {
	broker      *broker.Broker
	config      MADistanceConfig
	baseline    *market.Series
	instruments map[string]*market.Series
	logger      *logger.Logger
}

// NewMADistance creates the timing strategy.
func NewMADistance(b *broker.Broker, config MADistanceConfig, log *logger.Logger) *MADistance {
	return &MADistance{
		broker:      b,
		config:      config,
		baseline:    nil,
		instruments: nil,
		logger:      log,
	}
}

// Name implements Strategy.
func (s *MADistance) Name() string {
	return "ma_distance"
}

// SetData implements Strategy.
func (s *MADistance) SetData(baseline *market.Series, instruments map[string]*market.Series) {
	s.baseline = baseline
	s.instruments = instruments
}

// Next implements Strategy.
func (s *MADistance) Next(today time.Time, tradeDate time.Time) error {
	if s.baseline == nil {
		return errors.New(errors.ErrCodeNoData, "ma_distance requires a baseline series")
	}

	bar := s.baseline.Lookup(today)
	if bar.IsNone() {
		// The calendar is a union across series; the baseline simply has no
		// bar on pure instrument dates.
		return nil
	}

	ma := bar.Unwrap().Indicator(s.config.MAColumn)
	if ma.IsNone() || ma.Unwrap() <= 0 {
		return nil
	}

	close := bar.Unwrap().Close
	average := ma.Unwrap()

	switch {
	case close < average:
		for _, code := range sortedCodes(s.instruments) {
			if err := s.broker.Buy(code, tradeDate, broker.SizeByAmount(s.config.BuyAmount)); err != nil {
				s.logger.Warn("Timing buy not placed",
					zap.String("code", code),
					zap.Time("today", today),
					zap.Error(err),
				)
			}
		}
	case close > average*(1+s.config.SellGain):
		for _, code := range sortedCodes(s.instruments) {
			if s.broker.Position(code).IsNone() {
				continue
			}

			if err := s.broker.SellOut(code, tradeDate); err != nil {
				s.logger.Warn("Timing sell not placed",
					zap.String("code", code),
					zap.Time("today", today),
					zap.Error(err),
				)
			}
		}
	}

	return nil
}
