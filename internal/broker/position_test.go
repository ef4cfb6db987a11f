package broker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func (suite *PositionTestSuite) date() time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *PositionTestSuite) TestAddReweightsCost() {
	tests := []struct {
		name         string
		startQty     int64
		startCost    float64
		addQty       int64
		addPrice     float64
		expectedQty  int64
		expectedCost float64
	}{
		{"same price", 100, 10, 100, 10, 200, 10},
		{"higher price", 100, 10, 100, 20, 200, 15},
		{"uneven quantities", 300, 10, 100, 20, 400, 12.5},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			p := newPosition("fund", tc.startQty, decimal.NewFromFloat(tc.startCost), suite.date())
			p.add(suite.date(), tc.addQty, decimal.NewFromFloat(tc.addPrice))

			suite.Equal(tc.expectedQty, p.Quantity)
			suite.True(p.AverageCost.Equal(decimal.NewFromFloat(tc.expectedCost)),
				"cost is %s", p.AverageCost.String())
		})
	}
}

func (suite *PositionTestSuite) TestReduceKeepsCostBasis() {
	p := newPosition("fund", 200, decimal.NewFromInt(15), suite.date())

	p.reduce(suite.date(), 50)
	suite.Equal(int64(150), p.Quantity)
	suite.True(p.AverageCost.Equal(decimal.NewFromInt(15)))
}

func (suite *PositionTestSuite) TestReduceFloorsAtZero() {
	p := newPosition("fund", 100, decimal.NewFromInt(15), suite.date())

	p.reduce(suite.date(), 500)
	suite.Equal(int64(0), p.Quantity)
}

func (suite *PositionTestSuite) TestMarketValue() {
	p := newPosition("fund", 250, decimal.NewFromInt(10), suite.date())

	value := p.MarketValue(decimal.NewFromFloat(12.5))
	suite.True(value.Equal(decimal.NewFromFloat(3125)))
}
