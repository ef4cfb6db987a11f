package broker

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the holding of one instrument: quantity plus cost basis. It is
// owned exclusively by the broker; strategies only see copies.
type Position struct {
	Code        string
	Quantity    int64
	AverageCost decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func newPosition(code string, quantity int64, price decimal.Decimal, date time.Time) *Position {
	return &Position{
		Code:        code,
		Quantity:    quantity,
		AverageCost: price,
		CreatedAt:   date,
		UpdatedAt:   date,
	}
}

// add increases the position and re-weights the cost basis:
// (old_qty*old_cost + bought_qty*price) / (old_qty + bought_qty).
func (p *Position) add(date time.Time, quantity int64, price decimal.Decimal) {
	oldQty := decimal.NewFromInt(p.Quantity)
	addQty := decimal.NewFromInt(quantity)
	newQty := oldQty.Add(addQty)

	if newQty.IsPositive() {
		oldValue := oldQty.Mul(p.AverageCost)
		addValue := addQty.Mul(price)
		p.AverageCost = oldValue.Add(addValue).Div(newQty)
	}

	p.Quantity += quantity
	p.UpdatedAt = date
}

// reduce decreases the position. Sells never change the cost basis.
func (p *Position) reduce(date time.Time, quantity int64) {
	p.Quantity -= quantity
	if p.Quantity < 0 {
		p.Quantity = 0
	}

	p.UpdatedAt = date
}

// MarketValue values the position at the given unit price.
func (p *Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(p.Quantity))
}
