package broker

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/webclinic017/quant-research/internal/commission"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/internal/sizing"
	"github.com/webclinic017/quant-research/pkg/errors"
	"go.uber.org/zap"
)

// Broker owns the ledger of one backtest run: cash, open positions, pending
// trades, and the full trade and valuation history. Strategies enqueue trades
// through Buy/Sell/SellOut; the backtester calls Run once per simulated day to
// execute whatever is eligible and mark the book to market.
//
// Market conditions (missing data, insufficient cash, over-sells) are handled
// here and surfaced as log diagnostics only; a run never aborts because of one
// bad day's data.
type Broker struct {
	cash            decimal.Decimal
	positions       map[string]*Position
	pending         []*Trade
	history         []*Trade
	valuations      []DailyValuation
	marketValues    map[string][]PositionValuation
	totalCommission decimal.Decimal

	schedule commission.Schedule
	sizer    sizing.Sizer
	credit   optional.Option[CreditProvider]

	baseline    *market.Series
	instruments map[string]*market.Series

	logger   *logger.Logger
	validate *validator.Validate
}

// NewBroker creates a broker with the given starting cash. Pass a None credit
// provider to disable credit extension; buys then shrink to the largest
// affordable size instead.
func NewBroker(
	cash decimal.Decimal,
	schedule commission.Schedule,
	sizer sizing.Sizer,
	credit optional.Option[CreditProvider],
	log *logger.Logger,
) *Broker {
	return &Broker{
		cash:            cash,
		positions:       make(map[string]*Position),
		pending:         nil,
		history:         nil,
		valuations:      nil,
		marketValues:    make(map[string][]PositionValuation),
		totalCommission: decimal.Zero,
		schedule:        schedule,
		sizer:           sizer,
		credit:          credit,
		baseline:        nil,
		instruments:     make(map[string]*market.Series),
		logger:          log,
		validate:        validator.New(),
	}
}

// SetData hands the broker the preloaded price series it executes against.
func (b *Broker) SetData(baseline *market.Series, instruments map[string]*market.Series) {
	b.baseline = baseline
	b.instruments = instruments
}

type orderRequest struct {
	Code       string    `validate:"required"`
	TargetDate time.Time `validate:"required"`
}

func (b *Broker) validateRequest(code string, targetDate time.Time, size OrderSize) error {
	request := orderRequest{
		Code:       code,
		TargetDate: targetDate,
	}

	if err := b.validate.Struct(request); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid order request", err)
	}

	// A zero size is a programming error in the strategy; fail before the
	// trade is ever queued.
	if size.IsZero() {
		return errors.New(errors.ErrCodeInvalidOrderSize, "order size must specify an amount or a quantity")
	}

	return nil
}

// Buy enqueues a buy order for execution on or after targetDate. An
// amount-driven buy that exceeds current cash fails immediately unless a
// credit provider is configured.
func (b *Broker) Buy(code string, targetDate time.Time, size OrderSize) error {
	if err := b.validateRequest(code, targetDate, size); err != nil {
		return err
	}

	if amount, ok := size.Amount(); ok {
		if amount.GreaterThan(b.cash) && b.credit.IsNone() {
			b.logger.Warn("Buy order rejected, amount exceeds cash",
				zap.String("code", code),
				zap.Time("target_date", targetDate),
				zap.String("amount", amount.String()),
				zap.String("cash", b.cash.String()),
			)

			return errors.Newf(errors.ErrCodeInsufficientCash,
				"buy amount %s exceeds cash %s", amount.String(), b.cash.String())
		}
	}

	trade := &Trade{
		ID:         uuid.New().String(),
		Code:       code,
		Side:       SideBuy,
		TargetDate: market.DayOf(targetDate),
		Size:       size,
	}
	b.pending = append(b.pending, trade)

	b.logger.Debug("Buy order queued",
		zap.String("code", code),
		zap.Time("target_date", trade.TargetDate),
	)

	return nil
}

// Sell enqueues a sell order. A quantity beyond the current holding is
// clamped down to a full liquidation rather than rejected.
func (b *Broker) Sell(code string, targetDate time.Time, size OrderSize) error {
	if err := b.validateRequest(code, targetDate, size); err != nil {
		return err
	}

	position, ok := b.positions[code]
	if !ok {
		return errors.Newf(errors.ErrCodeNoPosition, "no open position for %s", code)
	}

	if position.Quantity == 0 {
		return errors.Newf(errors.ErrCodeEmptyPosition, "position for %s is empty", code)
	}

	if quantity, byQty := size.Quantity(); byQty && quantity > position.Quantity {
		b.logger.Warn("Sell quantity exceeds holding, clamping to full liquidation",
			zap.String("code", code),
			zap.Int64("requested", quantity),
			zap.Int64("held", position.Quantity),
		)

		size = SizeByQuantity(position.Quantity)
	}

	trade := &Trade{
		ID:         uuid.New().String(),
		Code:       code,
		Side:       SideSell,
		TargetDate: market.DayOf(targetDate),
		Size:       size,
	}
	b.pending = append(b.pending, trade)

	b.logger.Debug("Sell order queued",
		zap.String("code", code),
		zap.Time("target_date", trade.TargetDate),
	)

	return nil
}

// SellOut enqueues a sell of the entire current position in one call.
func (b *Broker) SellOut(code string, targetDate time.Time) error {
	position, ok := b.positions[code]
	if !ok {
		return errors.Newf(errors.ErrCodeNoPosition, "no open position for %s", code)
	}

	return b.Sell(code, targetDate, SizeByQuantity(position.Quantity))
}

// Run executes every eligible pending trade against the given day's prices
// and appends the day's valuation rows. Sells run before buys so freed cash
// can fund same-day purchases. Trades whose price data is missing stay
// pending and are retried on later days.
func (b *Broker) Run(today time.Time) {
	today = market.DayOf(today)

	// Execute against a snapshot and rebuild the pending list by exclusion;
	// the pending list is never mutated mid-iteration.
	snapshot := make([]*Trade, len(b.pending))
	copy(snapshot, b.pending)

	done := make(map[string]struct{})

	for _, trade := range snapshot {
		if trade.Side != SideSell {
			continue
		}

		if removed := b.executeSell(trade, today); removed {
			done[trade.ID] = struct{}{}
		}
	}

	for _, trade := range snapshot {
		if trade.Side != SideBuy {
			continue
		}

		if removed := b.executeBuy(trade, today); removed {
			done[trade.ID] = struct{}{}
		}
	}

	if len(done) > 0 {
		remaining := make([]*Trade, 0, len(b.pending))

		for _, trade := range b.pending {
			if _, ok := done[trade.ID]; !ok {
				remaining = append(remaining, trade)
			}
		}

		b.pending = remaining
	}

	b.markToMarket(today)
}

// lookupOpen finds the day's opening price for an instrument. A None result
// means the trade should stay pending.
func (b *Broker) lookupOpen(code string, date time.Time) optional.Option[float64] {
	series, ok := b.instruments[code]
	if !ok {
		b.logger.Warn("No price series for instrument, trade stays pending",
			zap.String("code", code),
			zap.Time("date", date),
		)

		return optional.None[float64]()
	}

	bar := series.Lookup(date)
	if bar.IsNone() {
		b.logger.Warn("No bar for date, trade stays pending",
			zap.String("code", code),
			zap.Time("date", date),
		)

		return optional.None[float64]()
	}

	open := bar.Unwrap().Open
	if open <= 0 {
		b.logger.Warn("Non-positive open price, trade stays pending",
			zap.String("code", code),
			zap.Time("date", date),
			zap.Float64("open", open),
		)

		return optional.None[float64]()
	}

	return optional.Some(open)
}

// amountQuantity converts a cash amount into a raw quantity at the given
// price, reserving the buy-side commission out of the amount first.
func (b *Broker) amountQuantity(amount, price decimal.Decimal) int64 {
	one := decimal.NewFromInt(1)
	net := amount.Mul(one.Sub(b.schedule.BuyRate()))

	return net.Div(price).IntPart()
}

// executeSell settles one sell trade. The returned bool reports whether the
// trade should be removed from the pending list (executed or abandoned).
func (b *Broker) executeSell(trade *Trade, today time.Time) bool {
	if today.Before(trade.TargetDate) {
		return false
	}

	open := b.lookupOpen(trade.Code, today)
	if open.IsNone() {
		return false
	}

	price := decimal.NewFromFloat(open.Unwrap())

	position, ok := b.positions[trade.Code]
	if !ok {
		// The position existed when the order was created but is gone now,
		// e.g. an earlier sell liquidated it. Nothing left to settle.
		b.logger.Warn("Sell abandoned, position no longer open",
			zap.String("code", trade.Code),
			zap.Time("date", today),
		)

		return true
	}

	var quantity int64
	if amount, byAmount := trade.Size.Amount(); byAmount {
		quantity = b.amountQuantity(amount, price)
	} else {
		quantity, _ = trade.Size.Quantity()
	}

	if quantity > position.Quantity {
		b.logger.Warn("Sell quantity exceeds holding at execution, liquidating",
			zap.String("code", trade.Code),
			zap.Int64("requested", quantity),
			zap.Int64("held", position.Quantity),
		)

		quantity = position.Quantity
	}

	if quantity == 0 {
		b.logger.Warn("Sell abandoned, resolved quantity is zero",
			zap.String("code", trade.Code),
			zap.Time("date", today),
		)

		return true
	}

	gross := price.Mul(decimal.NewFromInt(quantity))
	fee := gross.Mul(b.schedule.SellRate())
	b.totalCommission = b.totalCommission.Add(fee)

	var returnRate optional.Option[float64]

	if position.AverageCost.IsPositive() {
		rate, _ := price.Sub(position.AverageCost).Div(position.AverageCost).Float64()
		returnRate = optional.Some(rate)
	}

	position.reduce(today, quantity)
	if position.Quantity == 0 {
		b.logger.Debug("Position fully liquidated",
			zap.String("code", trade.Code),
			zap.Time("date", today),
		)
		delete(b.positions, trade.Code)
	}

	b.cash = b.cash.Add(gross.Sub(fee))

	trade.ActualDate = optional.Some(today)
	trade.ExecutedPrice = optional.Some(open.Unwrap())
	trade.ExecutedQuantity = quantity
	trade.Amount = gross
	trade.Commission = fee
	trade.ReturnRate = returnRate
	b.history = append(b.history, trade)

	b.logger.Debug("Sell executed",
		zap.String("code", trade.Code),
		zap.Time("date", today),
		zap.Float64("price", open.Unwrap()),
		zap.Int64("quantity", quantity),
		zap.String("commission", fee.String()),
	)

	return true
}

// executeBuy settles one buy trade. The returned bool reports whether the
// trade should be removed from the pending list (executed or abandoned).
func (b *Broker) executeBuy(trade *Trade, today time.Time) bool {
	if today.Before(trade.TargetDate) {
		return false
	}

	open := b.lookupOpen(trade.Code, today)
	if open.IsNone() {
		return false
	}

	price := decimal.NewFromFloat(open.Unwrap())

	var quantity int64
	if amount, byAmount := trade.Size.Amount(); byAmount {
		quantity = b.sizer.Round(b.amountQuantity(amount, price))
	} else {
		explicit, _ := trade.Size.Quantity()
		quantity = b.sizer.Round(explicit)
	}

	gross := price.Mul(decimal.NewFromInt(quantity))
	fee := gross.Mul(b.schedule.BuyRate())
	total := gross.Add(fee)

	if total.GreaterThan(b.cash) {
		funded := false

		if b.credit.IsSome() {
			// Ask the funding line for exactly the shortfall instead of
			// shrinking the order.
			shortfall := total.Sub(b.cash)
			if err := b.credit.Unwrap().Extend(shortfall); err != nil {
				b.logger.Warn("Credit extension refused, shrinking buy",
					zap.String("code", trade.Code),
					zap.Time("date", today),
					zap.String("shortfall", shortfall.String()),
					zap.Error(err),
				)
			} else {
				b.cash = b.cash.Add(shortfall)
				funded = true

				b.logger.Warn("Credit extended to cover buy",
					zap.String("code", trade.Code),
					zap.Time("date", today),
					zap.String("shortfall", shortfall.String()),
				)
			}
		}

		if !funded {
			// Shrink to the largest affordable quantity using all remaining
			// cash, commission included.
			one := decimal.NewFromInt(1)
			affordable := b.cash.Div(one.Add(b.schedule.BuyRate()))
			quantity = b.sizer.Round(affordable.Div(price).IntPart())
			gross = price.Mul(decimal.NewFromInt(quantity))
			fee = gross.Mul(b.schedule.BuyRate())
			total = gross.Add(fee)

			b.logger.Warn("Buy shrunk to affordable quantity",
				zap.String("code", trade.Code),
				zap.Time("date", today),
				zap.Int64("quantity", quantity),
				zap.String("cash", b.cash.String()),
			)
		}
	}

	if quantity == 0 {
		b.logger.Warn("Buy abandoned, resolved quantity is zero",
			zap.String("code", trade.Code),
			zap.Time("date", today),
			zap.String("cash", b.cash.String()),
			zap.Float64("price", open.Unwrap()),
		)

		return true
	}

	if position, ok := b.positions[trade.Code]; ok {
		position.add(today, quantity, price)
	} else {
		b.positions[trade.Code] = newPosition(trade.Code, quantity, price, today)
	}

	b.cash = b.cash.Sub(total)
	if b.cash.IsNegative() {
		// Guard against rounding underflow.
		b.cash = decimal.Zero
	}

	b.totalCommission = b.totalCommission.Add(fee)

	trade.ActualDate = optional.Some(today)
	trade.ExecutedPrice = optional.Some(open.Unwrap())
	trade.ExecutedQuantity = quantity
	trade.Amount = gross
	trade.Commission = fee
	b.history = append(b.history, trade)

	b.logger.Debug("Buy executed",
		zap.String("code", trade.Code),
		zap.Time("date", today),
		zap.Float64("price", open.Unwrap()),
		zap.Int64("quantity", quantity),
		zap.String("commission", fee.String()),
	)

	return true
}

// markToMarket values every open position at the day's close and appends the
// per-instrument and portfolio valuation rows. A position with no bar for the
// day carries its prior recorded market value forward instead of being
// treated as worthless.
func (b *Broker) markToMarket(today time.Time) {
	totalValue := decimal.Zero
	totalQuantity := int64(0)
	weightedCost := decimal.Zero

	for code, position := range b.positions {
		value := b.positionValue(code, position, today)

		b.marketValues[code] = append(b.marketValues[code], PositionValuation{
			Date:        today,
			Code:        code,
			MarketValue: value,
			Quantity:    position.Quantity,
			CostBasis:   position.AverageCost,
		})

		totalValue = totalValue.Add(value)
		totalQuantity += position.Quantity
		weightedCost = weightedCost.Add(position.AverageCost.Mul(decimal.NewFromInt(position.Quantity)))
	}

	if totalQuantity > 0 {
		weightedCost = weightedCost.Div(decimal.NewFromInt(totalQuantity))
	} else {
		weightedCost = decimal.Zero
	}

	b.valuations = append(b.valuations, DailyValuation{
		Date:          today,
		TotalValue:    totalValue.Add(b.cash),
		PositionValue: totalValue,
		Cash:          b.cash,
		TotalQuantity: totalQuantity,
		WeightedCost:  weightedCost,
	})
}

func (b *Broker) positionValue(code string, position *Position, today time.Time) decimal.Decimal {
	if series, ok := b.instruments[code]; ok {
		if bar := series.Lookup(today); bar.IsSome() {
			return position.MarketValue(decimal.NewFromFloat(bar.Unwrap().Close))
		}
	}

	// Stale-price carry-forward: reuse the prior recorded value.
	if rows := b.marketValues[code]; len(rows) > 0 {
		b.logger.Warn("No close price for instrument, carrying prior market value",
			zap.String("code", code),
			zap.Time("date", today),
		)

		return rows[len(rows)-1].MarketValue
	}

	b.logger.Warn("No price history at all for instrument, valuing at zero",
		zap.String("code", code),
		zap.Time("date", today),
	)

	return decimal.Zero
}

// Cash returns the current cash balance.
func (b *Broker) Cash() decimal.Decimal {
	return b.cash
}

// TotalCommission returns the accumulated commission across all executions.
func (b *Broker) TotalCommission() decimal.Decimal {
	return b.totalCommission
}

// Position returns a copy of the open position for an instrument.
func (b *Broker) Position(code string) optional.Option[Position] {
	position, ok := b.positions[code]
	if !ok {
		return optional.None[Position]()
	}

	return optional.Some(*position)
}

// Positions returns copies of all open positions.
func (b *Broker) Positions() []Position {
	positions := make([]Position, 0, len(b.positions))
	for _, position := range b.positions {
		positions = append(positions, *position)
	}

	return positions
}

// PendingCount returns the number of trades still waiting to execute.
func (b *Broker) PendingCount() int {
	return len(b.pending)
}

// History returns the executed trades in execution order. The slice is a
// copy; the trades are shared read-only records.
func (b *Broker) History() []*Trade {
	history := make([]*Trade, len(b.history))
	copy(history, b.history)

	return history
}

// Valuations returns the portfolio-level daily valuation rows.
func (b *Broker) Valuations() []DailyValuation {
	valuations := make([]DailyValuation, len(b.valuations))
	copy(valuations, b.valuations)

	return valuations
}

// MarketValues returns one instrument's daily market-value rows.
func (b *Broker) MarketValues(code string) []PositionValuation {
	rows := make([]PositionValuation, len(b.marketValues[code]))
	copy(rows, b.marketValues[code])

	return rows
}

// AllMarketValues returns every instrument's daily market-value rows.
func (b *Broker) AllMarketValues() map[string][]PositionValuation {
	values := make(map[string][]PositionValuation, len(b.marketValues))
	for code := range b.marketValues {
		values[code] = b.MarketValues(code)
	}

	return values
}
