package broker

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/webclinic017/quant-research/internal/commission"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/internal/sizing"
	"github.com/webclinic017/quant-research/mocks"
	"github.com/webclinic017/quant-research/pkg/errors"
	"go.uber.org/mock/gomock"
)

type BrokerTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestBrokerSuite(t *testing.T) {
	suite.Run(t, new(BrokerTestSuite))
}

func (suite *BrokerTestSuite) SetupTest() {
	suite.logger = logger.NewNopLogger()
}

func day(n int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// flatSeries builds a series with the same open and close price on each of
// the given days.
func flatSeries(code string, price float64, days ...int) *market.Series {
	bars := make([]market.Bar, 0, len(days))
	for _, n := range days {
		bars = append(bars, market.Bar{
			Date:  day(n),
			Open:  price,
			High:  price,
			Low:   price,
			Close: price,
		})
	}

	return market.NewSeries(code, bars)
}

func (suite *BrokerTestSuite) newBroker(cash float64, schedule commission.Schedule) *Broker {
	return NewBroker(
		decimal.NewFromFloat(cash),
		schedule,
		sizing.NewUnitSizer(),
		optional.None[CreditProvider](),
		suite.logger,
	)
}

func (suite *BrokerTestSuite) TestAmountBuyReservesCommission() {
	b := suite.newBroker(100000, commission.NewRateSchedule(
		decimal.NewFromFloat(0.001), decimal.Zero,
	))
	b.SetData(nil, map[string]*market.Series{
		"510310": flatSeries("510310", 10, 0),
	})

	suite.Require().NoError(b.Buy("510310", day(0), SizeByAmount(decimal.NewFromInt(50000))))
	b.Run(day(0))

	// floor(50000 * 0.999 / 10) = 4995 shares, 49950 gross, 49.95 commission
	position := b.Position("510310")
	suite.Require().True(position.IsSome())
	suite.Equal(int64(4995), position.Unwrap().Quantity)
	suite.True(position.Unwrap().AverageCost.Equal(decimal.NewFromInt(10)))
	suite.True(b.Cash().Equal(decimal.NewFromFloat(50000.05)),
		"cash is %s", b.Cash().String())
	suite.True(b.TotalCommission().Equal(decimal.NewFromFloat(49.95)))
	suite.Equal(0, b.PendingCount())

	history := b.History()
	suite.Require().Len(history, 1)
	suite.True(history[0].Executed())
	suite.Equal(int64(4995), history[0].ExecutedQuantity)
}

func (suite *BrokerTestSuite) TestAmountBuyBeyondCashRejected() {
	b := suite.newBroker(100, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0)})

	err := b.Buy("fund", day(0), SizeByAmount(decimal.NewFromInt(1000)))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientCash))
	suite.Equal(0, b.PendingCount())
}

func (suite *BrokerTestSuite) TestQuantityBuyShrinksToAffordable() {
	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0)})

	suite.Require().NoError(b.Buy("fund", day(0), SizeByQuantity(200)))
	b.Run(day(0))

	position := b.Position("fund")
	suite.Require().True(position.IsSome())
	suite.Equal(int64(100), position.Unwrap().Quantity)
	suite.True(b.Cash().IsZero(), "cash is %s", b.Cash().String())
}

func (suite *BrokerTestSuite) TestCreditCoversShortfall() {
	banker := NewBanker()
	b := NewBroker(
		decimal.NewFromInt(100),
		commission.NewZeroSchedule(),
		sizing.NewUnitSizer(),
		optional.Some[CreditProvider](banker),
		suite.logger,
	)
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0)})

	suite.Require().NoError(b.Buy("fund", day(0), SizeByAmount(decimal.NewFromInt(1000))))
	b.Run(day(0))

	position := b.Position("fund")
	suite.Require().True(position.IsSome())
	suite.Equal(int64(100), position.Unwrap().Quantity)
	suite.True(b.Cash().IsZero())
	suite.True(banker.Debt().Equal(decimal.NewFromInt(900)),
		"debt is %s", banker.Debt().String())
	suite.Equal(1, banker.Extensions())
}

func (suite *BrokerTestSuite) TestRefusedCreditShrinksBuy() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	credit := mocks.NewMockCreditProvider(ctrl)
	credit.EXPECT().
		Extend(gomock.Any()).
		Return(errors.New(errors.ErrCodeInsufficientCash, "credit line exhausted"))

	b := NewBroker(
		decimal.NewFromInt(100),
		commission.NewZeroSchedule(),
		sizing.NewUnitSizer(),
		optional.Some[CreditProvider](credit),
		suite.logger,
	)
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0)})

	suite.Require().NoError(b.Buy("fund", day(0), SizeByQuantity(100)))
	b.Run(day(0))

	// A refused extension must not fund the full fill; the buy falls back to
	// what the remaining cash covers.
	position := b.Position("fund")
	suite.Require().True(position.IsSome())
	suite.Equal(int64(10), position.Unwrap().Quantity)
	suite.True(b.Cash().IsZero(), "cash is %s", b.Cash().String())

	history := b.History()
	suite.Require().Len(history, 1)
	suite.Equal(int64(10), history[0].ExecutedQuantity)
	suite.True(history[0].Amount.Equal(decimal.NewFromInt(100)))
}

func (suite *BrokerTestSuite) TestSellWithoutPosition() {
	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0)})

	err := b.Sell("fund", day(0), SizeByQuantity(10))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoPosition))

	err = b.SellOut("fund", day(0))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoPosition))
}

func (suite *BrokerTestSuite) TestOverSellClampsToLiquidation() {
	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0, 1)})

	suite.Require().NoError(b.Buy("fund", day(0), SizeByQuantity(100)))
	b.Run(day(0))

	suite.Require().NoError(b.Sell("fund", day(1), SizeByQuantity(150)))
	b.Run(day(1))

	suite.True(b.Position("fund").IsNone())
	suite.True(b.Cash().Equal(decimal.NewFromInt(1000)))

	history := b.History()
	suite.Require().Len(history, 2)
	suite.Equal(int64(100), history[1].ExecutedQuantity)
}

func (suite *BrokerTestSuite) TestMissingBarKeepsTradePending() {
	// Bars exist on day 0 and day 3 only; the buy targets day 1.
	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0, 3)})

	suite.Require().NoError(b.Buy("fund", day(1), SizeByQuantity(10)))

	b.Run(day(1))
	suite.Equal(1, b.PendingCount())
	suite.True(b.Position("fund").IsNone())

	b.Run(day(2))
	suite.Equal(1, b.PendingCount())

	b.Run(day(3))
	suite.Equal(0, b.PendingCount())

	position := b.Position("fund")
	suite.Require().True(position.IsSome())
	suite.Equal(int64(10), position.Unwrap().Quantity)

	history := b.History()
	suite.Require().Len(history, 1)
	suite.Equal(day(3), history[0].ActualDate.Unwrap())
}

func (suite *BrokerTestSuite) TestTradeBeforeTargetDateWaits() {
	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0, 1)})

	suite.Require().NoError(b.Buy("fund", day(1), SizeByQuantity(10)))

	b.Run(day(0))
	suite.Equal(1, b.PendingCount())

	b.Run(day(1))
	suite.Equal(0, b.PendingCount())
}

func (suite *BrokerTestSuite) TestSellsExecuteBeforeBuys() {
	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0, 1)})

	suite.Require().NoError(b.Buy("fund", day(0), SizeByQuantity(100)))
	b.Run(day(0))
	suite.True(b.Cash().IsZero())

	// With zero cash, the buy can only fill if the same-day sell settles
	// first and frees the proceeds.
	suite.Require().NoError(b.Buy("fund", day(1), SizeByQuantity(50)))
	suite.Require().NoError(b.Sell("fund", day(1), SizeByQuantity(100)))
	b.Run(day(1))

	position := b.Position("fund")
	suite.Require().True(position.IsSome())
	suite.Equal(int64(50), position.Unwrap().Quantity)
	suite.True(b.Cash().Equal(decimal.NewFromInt(500)), "cash is %s", b.Cash().String())
}

func (suite *BrokerTestSuite) TestZeroQuantityBuyAbandoned() {
	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0)})

	// 5 of cash at price 10 resolves to zero shares.
	suite.Require().NoError(b.Buy("fund", day(0), SizeByAmount(decimal.NewFromInt(5))))
	b.Run(day(0))

	suite.Equal(0, b.PendingCount())
	suite.Empty(b.History())
	suite.True(b.Position("fund").IsNone())
}

func (suite *BrokerTestSuite) TestSellReturnRate() {
	buy := flatSeries("fund", 10, 0)
	sell := flatSeries("fund", 12, 1)
	merged := market.NewSeries("fund", append(buy.Bars(), sell.Bars()...))

	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": merged})

	suite.Require().NoError(b.Buy("fund", day(0), SizeByQuantity(100)))
	b.Run(day(0))

	suite.Require().NoError(b.SellOut("fund", day(1)))
	b.Run(day(1))

	history := b.History()
	suite.Require().Len(history, 2)

	sellTrade := history[1]
	suite.Equal(SideSell, sellTrade.Side)
	suite.Require().True(sellTrade.ReturnRate.IsSome())
	suite.InDelta(0.2, sellTrade.ReturnRate.Unwrap(), 1e-9)
}

func (suite *BrokerTestSuite) TestMarkToMarketCarriesStaleValue() {
	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0)})

	suite.Require().NoError(b.Buy("fund", day(0), SizeByQuantity(100)))
	b.Run(day(0))
	b.Run(day(1)) // no bar on day 1

	values := b.MarketValues("fund")
	suite.Require().Len(values, 2)
	suite.True(values[0].MarketValue.Equal(decimal.NewFromInt(1000)))
	suite.True(values[1].MarketValue.Equal(values[0].MarketValue))
}

func (suite *BrokerTestSuite) TestValuationConservesTotalValue() {
	b := suite.newBroker(1000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": flatSeries("fund", 10, 0, 1)})

	b.Run(day(0))
	suite.Require().NoError(b.Buy("fund", day(1), SizeByQuantity(40)))
	b.Run(day(1))

	valuations := b.Valuations()
	suite.Require().Len(valuations, 2)

	// Buying at a flat price with zero commission moves value between cash
	// and positions without changing the total.
	suite.True(valuations[0].TotalValue.Equal(decimal.NewFromInt(1000)))
	suite.True(valuations[1].TotalValue.Equal(decimal.NewFromInt(1000)))
	suite.True(valuations[1].Cash.Equal(decimal.NewFromInt(600)))
	suite.True(valuations[1].PositionValue.Equal(decimal.NewFromInt(400)))
	suite.Equal(int64(40), valuations[1].TotalQuantity)
	suite.True(valuations[1].WeightedCost.Equal(decimal.NewFromInt(10)))
}

func (suite *BrokerTestSuite) TestEmptyDayOnlyAppendsValuation() {
	b := suite.newBroker(500, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{})

	b.Run(day(0))
	b.Run(day(1))

	suite.Empty(b.History())
	suite.Equal(0, b.PendingCount())

	valuations := b.Valuations()
	suite.Require().Len(valuations, 2)

	for _, valuation := range valuations {
		suite.True(valuation.TotalValue.Equal(decimal.NewFromInt(500)))
		suite.True(valuation.PositionValue.IsZero())
		suite.True(valuation.WeightedCost.IsZero())
	}
}

func (suite *BrokerTestSuite) TestInvalidOrderRequests() {
	b := suite.newBroker(1000, commission.NewZeroSchedule())

	tests := []struct {
		name string
		run  func() error
		code errors.ErrorCode
	}{
		{
			name: "missing code",
			run: func() error {
				return b.Buy("", day(0), SizeByQuantity(1))
			},
			code: errors.ErrCodeInvalidOrderRequest,
		},
		{
			name: "zero target date",
			run: func() error {
				return b.Buy("fund", time.Time{}, SizeByQuantity(1))
			},
			code: errors.ErrCodeInvalidOrderRequest,
		},
		{
			name: "unset size",
			run: func() error {
				return b.Buy("fund", day(0), OrderSize{})
			},
			code: errors.ErrCodeInvalidOrderSize,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			err := tc.run()
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tc.code))
		})
	}
}

func (suite *BrokerTestSuite) TestAveragedCostAcrossBuys() {
	buy1 := flatSeries("fund", 10, 0)
	buy2 := flatSeries("fund", 20, 1)
	merged := market.NewSeries("fund", append(buy1.Bars(), buy2.Bars()...))

	b := suite.newBroker(3000, commission.NewZeroSchedule())
	b.SetData(nil, map[string]*market.Series{"fund": merged})

	suite.Require().NoError(b.Buy("fund", day(0), SizeByQuantity(100)))
	b.Run(day(0))
	suite.Require().NoError(b.Buy("fund", day(1), SizeByQuantity(100)))
	b.Run(day(1))

	position := b.Position("fund")
	suite.Require().True(position.IsSome())
	suite.Equal(int64(200), position.Unwrap().Quantity)
	suite.True(position.Unwrap().AverageCost.Equal(decimal.NewFromInt(15)),
		"average cost is %s", position.Unwrap().AverageCost.String())
}

func (suite *BrokerTestSuite) TestBoardLotRounding() {
	b := NewBroker(
		decimal.NewFromInt(100000),
		commission.NewZeroSchedule(),
		sizing.NewBoardLotSizer(100),
		optional.None[CreditProvider](),
		suite.logger,
	)
	b.SetData(nil, map[string]*market.Series{"600036": flatSeries("600036", 30, 0)})

	// floor(10000/30) = 333, rounded down to 3 board lots of 100.
	suite.Require().NoError(b.Buy("600036", day(0), SizeByAmount(decimal.NewFromInt(10000))))
	b.Run(day(0))

	position := b.Position("600036")
	suite.Require().True(position.IsSome())
	suite.Equal(int64(300), position.Unwrap().Quantity)
}
