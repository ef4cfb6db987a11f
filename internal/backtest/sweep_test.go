package backtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/webclinic017/quant-research/internal/broker"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/internal/strategy"
	"github.com/webclinic017/quant-research/mocks"
)

type SweepTestSuite struct {
	suite.Suite
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepTestSuite))
}

func (suite *SweepTestSuite) periodicFactory(amount int64) StrategyFactory {
	return func(b *broker.Broker, log *logger.Logger) (strategy.Strategy, error) {
		return strategy.NewPeriodic(b, decimal.NewFromInt(amount), strategy.PeriodWeekly, log), nil
	}
}

func (suite *SweepTestSuite) TestSweepRunsAllConfigs() {
	generator := mocks.NewDataGenerator(42)
	config := mocks.DefaultConfig()
	config.Count = 60

	instruments := map[string]*market.Series{
		"fund": generator.GenerateSeries("fund", config),
	}

	baseConfig := EmptyConfig()
	baseConfig.InitialCash = decimal.NewFromInt(50000)

	runs := []SweepRun{
		{Name: "weekly-500", Config: baseConfig, NewStrategy: suite.periodicFactory(500)},
		{Name: "weekly-1000", Config: baseConfig, NewStrategy: suite.periodicFactory(1000)},
		{Name: "weekly-2000", Config: baseConfig, NewStrategy: suite.periodicFactory(2000)},
	}

	results := RunSweep(runs, nil, instruments)
	suite.Require().Len(results, 3)

	for i, result := range results {
		suite.Equal(runs[i].Name, result.Name)
		suite.Require().NoError(result.Err)
		suite.NotEmpty(result.Valuations)
		suite.NotEmpty(result.History)
		suite.True(result.Summary.FinalValue.IsPositive())
	}

	// A bigger periodic amount deploys more capital.
	first := results[0].Valuations[len(results[0].Valuations)-1]
	last := results[2].Valuations[len(results[2].Valuations)-1]
	suite.True(last.Cash.LessThan(first.Cash))
}

func (suite *SweepTestSuite) TestSweepReportsConfigErrors() {
	badConfig := EmptyConfig()
	badConfig.BuyDay = BuyDay("yesterday")

	results := RunSweep([]SweepRun{
		{Name: "broken", Config: badConfig, NewStrategy: suite.periodicFactory(100)},
	}, nil, map[string]*market.Series{})

	suite.Require().Len(results, 1)
	suite.Error(results[0].Err)
}

func (suite *SweepTestSuite) TestSweepRunsAreIsolated() {
	generator := mocks.NewDataGenerator(7)
	config := mocks.DefaultConfig()
	config.Count = 40

	instruments := map[string]*market.Series{
		"fund": generator.GenerateSeries("fund", config),
	}

	baseConfig := EmptyConfig()
	baseConfig.InitialCash = decimal.NewFromInt(10000)

	run := SweepRun{Name: "same", Config: baseConfig, NewStrategy: suite.periodicFactory(1000)}

	results := RunSweep([]SweepRun{run, run}, nil, instruments)
	suite.Require().Len(results, 2)
	suite.Require().NoError(results[0].Err)
	suite.Require().NoError(results[1].Err)

	// Identical configs over shared read-only data must produce identical
	// outcomes regardless of scheduling.
	suite.True(results[0].Summary.FinalValue.Equal(results[1].Summary.FinalValue))
	suite.Equal(len(results[0].History), len(results[1].History))
}
