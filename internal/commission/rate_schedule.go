package commission

import "github.com/shopspring/decimal"

// RateSchedule is a fixed-rate commission schedule.
type RateSchedule struct {
	buyRate  decimal.Decimal
	sellRate decimal.Decimal
}

// NewRateSchedule builds a schedule from explicit buy and sell rates.
func NewRateSchedule(buyRate, sellRate decimal.Decimal) *RateSchedule {
	return &RateSchedule{
		buyRate:  buyRate,
		sellRate: sellRate,
	}
}

// NewZeroSchedule returns a schedule that charges no commission.
func NewZeroSchedule() *RateSchedule {
	return &RateSchedule{
		buyRate:  decimal.Zero,
		sellRate: decimal.Zero,
	}
}

// NewChinaASchedule returns the A-share schedule: brokerage plus transfer fee
// on both sides, stamp tax on sells only.
func NewChinaASchedule() *RateSchedule {
	brokerage := decimal.NewFromFloat(0.00025)
	transfer := decimal.NewFromFloat(0.0002)
	stampTax := decimal.NewFromFloat(0.001)

	return &RateSchedule{
		buyRate:  brokerage.Add(transfer),
		sellRate: brokerage.Add(transfer).Add(stampTax),
	}
}

// NewOpenFundSchedule returns the open-end fund schedule: subscription fee on
// buys, redemption fee on sells.
func NewOpenFundSchedule() *RateSchedule {
	return &RateSchedule{
		buyRate:  decimal.NewFromFloat(0.015),
		sellRate: decimal.NewFromFloat(0.005),
	}
}

// BuyRate implements Schedule.
func (s *RateSchedule) BuyRate() decimal.Decimal {
	return s.buyRate
}

// SellRate implements Schedule.
func (s *RateSchedule) SellRate() decimal.Decimal {
	return s.sellRate
}
