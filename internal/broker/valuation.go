package broker

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyValuation is one row of the portfolio-level mark-to-market history,
// appended once per simulated day the broker ran.
type DailyValuation struct {
	Date          time.Time
	TotalValue    decimal.Decimal
	PositionValue decimal.Decimal
	Cash          decimal.Decimal
	TotalQuantity int64
	// WeightedCost is the quantity-weighted average of per-instrument cost
	// bases; zero when nothing is held.
	WeightedCost decimal.Decimal
}

// PositionValuation is one row of a single instrument's market-value history.
type PositionValuation struct {
	Date        time.Time
	Code        string
	MarketValue decimal.Decimal
	Quantity    int64
	CostBasis   decimal.Decimal
}
