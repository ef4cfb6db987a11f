package commission

import "github.com/shopspring/decimal"

// Schedule supplies the buy-side and sell-side commission rates used by the
// broker. Rates are fractions of the traded amount (0.001 = 0.1%).
type Schedule interface {
	// BuyRate returns the commission rate charged on purchases.
	BuyRate() decimal.Decimal
	// SellRate returns the commission rate charged on sales.
	SellRate() decimal.Decimal
}

// Market identifies a commission preset.
type Market string

const (
	MarketZero     Market = "zero"
	MarketChinaA   Market = "china_a_share"
	MarketOpenFund Market = "china_open_fund"
)

var AllMarkets = []any{
	MarketZero,
	MarketChinaA,
	MarketOpenFund,
}

// ForMarket returns the commission preset for a market. Unknown markets fall
// back to zero commission.
func ForMarket(market Market) Schedule {
	switch market {
	case MarketChinaA:
		return NewChinaASchedule()
	case MarketOpenFund:
		return NewOpenFundSchedule()
	case MarketZero:
		return NewZeroSchedule()
	default:
		return NewZeroSchedule()
	}
}
