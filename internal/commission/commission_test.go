package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CommissionTestSuite struct {
	suite.Suite
}

func TestCommissionSuite(t *testing.T) {
	suite.Run(t, new(CommissionTestSuite))
}

func (suite *CommissionTestSuite) TestZeroSchedule() {
	schedule := NewZeroSchedule()
	suite.True(schedule.BuyRate().IsZero())
	suite.True(schedule.SellRate().IsZero())
}

func (suite *CommissionTestSuite) TestChinaASchedule() {
	schedule := NewChinaASchedule()

	// brokerage 0.025% + transfer 0.02% both ways, stamp tax 0.1% on sells
	suite.True(schedule.BuyRate().Equal(decimal.NewFromFloat(0.00045)),
		"buy rate is %s", schedule.BuyRate().String())
	suite.True(schedule.SellRate().Equal(decimal.NewFromFloat(0.00145)),
		"sell rate is %s", schedule.SellRate().String())
}

func (suite *CommissionTestSuite) TestOpenFundSchedule() {
	schedule := NewOpenFundSchedule()
	suite.True(schedule.BuyRate().Equal(decimal.NewFromFloat(0.015)))
	suite.True(schedule.SellRate().Equal(decimal.NewFromFloat(0.005)))
}

func (suite *CommissionTestSuite) TestForMarket() {
	tests := []struct {
		name     string
		market   Market
		buyRate  decimal.Decimal
		sellRate decimal.Decimal
	}{
		{"zero", MarketZero, decimal.Zero, decimal.Zero},
		{"china a-share", MarketChinaA, decimal.NewFromFloat(0.00045), decimal.NewFromFloat(0.00145)},
		{"open fund", MarketOpenFund, decimal.NewFromFloat(0.015), decimal.NewFromFloat(0.005)},
		{"unknown defaults to zero", Market("unknown"), decimal.Zero, decimal.Zero},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			schedule := ForMarket(tc.market)
			suite.Require().NotNil(schedule)
			suite.True(schedule.BuyRate().Equal(tc.buyRate))
			suite.True(schedule.SellRate().Equal(tc.sellRate))
		})
	}
}

func (suite *CommissionTestSuite) TestAllMarkets() {
	suite.Len(AllMarkets, 3)
	suite.Contains(AllMarkets, MarketZero)
	suite.Contains(AllMarkets, MarketChinaA)
	suite.Contains(AllMarkets, MarketOpenFund)
}
