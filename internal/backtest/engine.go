package backtest

import (
	"github.com/moznion/go-optional"
	"github.com/webclinic017/quant-research/internal/broker"
	"github.com/webclinic017/quant-research/internal/commission"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/sizing"
	"github.com/webclinic017/quant-research/internal/strategy"
)

// StrategyFactory builds a strategy bound to a freshly constructed broker.
// Every run gets its own broker and strategy so runs never share state.
type StrategyFactory func(b *broker.Broker, log *logger.Logger) (strategy.Strategy, error)

// NewEngineFromConfig assembles a broker and a backtester from a config.
func NewEngineFromConfig(
	config Config,
	newStrategy StrategyFactory,
	log *logger.Logger,
) (*BackTester, *broker.Broker, error) {
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	var sizer sizing.Sizer = sizing.NewUnitSizer()
	if config.LotSize > 1 {
		sizer = sizing.NewBoardLotSizer(config.LotSize)
	}

	credit := optional.None[broker.CreditProvider]()
	if config.WithBanker {
		credit = optional.Some[broker.CreditProvider](broker.NewBanker())
	}

	b := broker.NewBroker(
		config.InitialCash,
		commission.ForMarket(config.Market),
		sizer,
		credit,
		log,
	)

	s, err := newStrategy(b, log)
	if err != nil {
		return nil, nil, err
	}

	bt := NewBackTester(b, s, config.StartTime, config.EndTime, config.BuyDay, log)

	return bt, b, nil
}
