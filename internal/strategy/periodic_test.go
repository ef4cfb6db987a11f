package strategy

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/webclinic017/quant-research/internal/broker"
	"github.com/webclinic017/quant-research/internal/commission"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/internal/sizing"
)

type PeriodicTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestPeriodicSuite(t *testing.T) {
	suite.Run(t, new(PeriodicTestSuite))
}

func (suite *PeriodicTestSuite) SetupTest() {
	suite.logger = logger.NewNopLogger()
}

func (suite *PeriodicTestSuite) newBroker(cash float64) *broker.Broker {
	return broker.NewBroker(
		decimal.NewFromFloat(cash),
		commission.NewZeroSchedule(),
		sizing.NewUnitSizer(),
		optional.None[broker.CreditProvider](),
		suite.logger,
	)
}

func (suite *PeriodicTestSuite) instruments() map[string]*market.Series {
	return map[string]*market.Series{
		"a": market.NewSeries("a", nil),
		"b": market.NewSeries("b", nil),
	}
}

func day(year int, month time.Month, dayNum int) time.Time {
	return time.Date(year, month, dayNum, 0, 0, 0, 0, time.UTC)
}

func (suite *PeriodicTestSuite) TestWeeklyBuysOncePerWeek() {
	b := suite.newBroker(100000)
	s := NewPeriodic(b, decimal.NewFromInt(1000), PeriodWeekly, suite.logger)
	s.SetData(nil, suite.instruments())

	monday := day(2024, time.January, 1)
	tuesday := day(2024, time.January, 2)
	nextMonday := day(2024, time.January, 8)

	suite.Require().NoError(s.Next(monday, monday))
	suite.Equal(2, b.PendingCount()) // one buy per instrument

	suite.Require().NoError(s.Next(tuesday, tuesday))
	suite.Equal(2, b.PendingCount()) // same week, no new buys

	suite.Require().NoError(s.Next(nextMonday, nextMonday))
	suite.Equal(4, b.PendingCount())
}

func (suite *PeriodicTestSuite) TestMonthlyBucketBoundary() {
	b := suite.newBroker(100000)
	s := NewPeriodic(b, decimal.NewFromInt(1000), PeriodMonthly, suite.logger)
	s.SetData(nil, suite.instruments())

	suite.Require().NoError(s.Next(day(2024, time.January, 15), day(2024, time.January, 15)))
	suite.Require().NoError(s.Next(day(2024, time.January, 31), day(2024, time.January, 31)))
	suite.Equal(2, b.PendingCount())

	suite.Require().NoError(s.Next(day(2024, time.February, 1), day(2024, time.February, 1)))
	suite.Equal(4, b.PendingCount())
}

func (suite *PeriodicTestSuite) TestBrokerRejectionDoesNotStopStrategy() {
	// Not enough cash for any buy; the broker rejects each order but the
	// strategy keeps running.
	b := suite.newBroker(1)
	s := NewPeriodic(b, decimal.NewFromInt(1000), PeriodWeekly, suite.logger)
	s.SetData(nil, suite.instruments())

	suite.Require().NoError(s.Next(day(2024, time.January, 1), day(2024, time.January, 1)))
	suite.Equal(0, b.PendingCount())
}

func (suite *PeriodicTestSuite) TestRepeatedRunsProduceIdenticalHistory() {
	trading := day(2024, time.January, 1)

	series := func(code string) *market.Series {
		return market.NewSeries(code, []market.Bar{
			{Date: trading, Open: 10, High: 10, Low: 10, Close: 10},
		})
	}

	// Cash covers one full fill and one shrunk fill; if order placement
	// depended on map iteration, which instruments fill would vary per run.
	signature := func() string {
		b := suite.newBroker(1500)
		instruments := map[string]*market.Series{
			"aaa": series("aaa"),
			"bbb": series("bbb"),
			"ccc": series("ccc"),
		}

		s := NewPeriodic(b, decimal.NewFromInt(1000), PeriodWeekly, suite.logger)
		s.SetData(nil, instruments)
		b.SetData(nil, instruments)

		suite.Require().NoError(s.Next(trading, trading))
		b.Run(trading)

		var sb strings.Builder
		for _, trade := range b.History() {
			fmt.Fprintf(&sb, "%s:%d;", trade.Code, trade.ExecutedQuantity)
		}

		return sb.String()
	}

	first := signature()
	suite.Equal("aaa:100;bbb:50;", first)

	for i := 0; i < 20; i++ {
		suite.Equal(first, signature())
	}
}

func (suite *PeriodicTestSuite) TestName() {
	b := suite.newBroker(1)
	suite.Equal("periodic_weekly", NewPeriodic(b, decimal.Zero, PeriodWeekly, suite.logger).Name())
	suite.Equal("periodic_monthly", NewPeriodic(b, decimal.Zero, PeriodMonthly, suite.logger).Name())
}
