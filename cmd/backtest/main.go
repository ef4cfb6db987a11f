// Command backtest runs a strategy over daily bar files and reports the
// resulting performance metrics.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"github.com/webclinic017/quant-research/internal/analytics"
	"github.com/webclinic017/quant-research/internal/backtest"
	"github.com/webclinic017/quant-research/internal/broker"
	"github.com/webclinic017/quant-research/internal/datasource"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/internal/results"
	"github.com/webclinic017/quant-research/internal/strategy"
)

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	configData, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	config, err := backtest.ParseConfig(configData)
	if err != nil {
		return err
	}

	source, err := datasource.NewDuckDBSource(log)
	if err != nil {
		return err
	}
	defer source.Close()

	instruments, err := loadInstruments(source, cmd.String("data"))
	if err != nil {
		return err
	}

	var baseline *market.Series

	if baselinePath := cmd.String("baseline"); baselinePath != "" {
		baseline, err = source.LoadSeries(seriesCode(baselinePath), baselinePath)
		if err != nil {
			return err
		}
	}

	factory, err := strategyFactory(cmd)
	if err != nil {
		return err
	}

	bt, b, err := backtest.NewEngineFromConfig(config, factory, log)
	if err != nil {
		return err
	}

	bt.SetData(baseline, instruments)

	bar := progressbar.Default(int64(len(bt.Dates())))
	bt.SetOnDayCallback(func(current int, total int) {
		bar.ChangeMax(total)
		bar.Set(current)
	})

	if err := bt.Run(); err != nil {
		return err
	}

	bar.Finish()

	summary := analytics.Summarize(b.Valuations(), b.History(), b.TotalCommission())
	printSummary(summary)

	if config.ResultsFolder != "" {
		store, err := results.NewStore(log)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SaveRun(b); err != nil {
			return err
		}

		if err := store.Write(config.ResultsFolder); err != nil {
			return err
		}
	}

	return nil
}

// loadInstruments loads every CSV and parquet file in the data directory as
// one instrument series, keyed by file base name.
func loadInstruments(source *datasource.DuckDBSource, dataDir string) (map[string]*market.Series, error) {
	paths := make(map[string]string)

	for _, pattern := range []string{"*.csv", "*.parquet"} {
		files, err := filepath.Glob(filepath.Join(dataDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list data files: %w", err)
		}

		for _, file := range files {
			paths[seriesCode(file)] = file
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no data files found in %s", dataDir)
	}

	return source.LoadAll(paths)
}

func seriesCode(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func strategyFactory(cmd *cli.Command) (backtest.StrategyFactory, error) {
	name := cmd.String("strategy")
	amount := decimal.NewFromFloat(cmd.Float("amount"))

	switch name {
	case "periodic":
		period := strategy.Period(cmd.String("period"))

		return func(b *broker.Broker, log *logger.Logger) (strategy.Strategy, error) {
			return strategy.NewPeriodic(b, amount, period, log), nil
		}, nil
	case "ma_distance":
		config := strategy.MADistanceConfig{
			MAColumn:  cmd.String("ma-column"),
			BuyAmount: amount,
			SellGain:  cmd.Float("sell-gain"),
		}

		return func(b *broker.Broker, log *logger.Logger) (strategy.Strategy, error) {
			return strategy.NewMADistance(b, config, log), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
}

func printSummary(summary analytics.Summary) {
	fmt.Printf("Period:            %s .. %s (%d days)\n",
		summary.StartDate.Format("2006-01-02"), summary.EndDate.Format("2006-01-02"), summary.Days)
	fmt.Printf("Final value:       %s\n", summary.FinalValue.StringFixed(2))
	fmt.Printf("Cumulative return: %.2f%%\n", summary.CumulativeReturn*100)
	fmt.Printf("Annualized return: %.2f%%\n", summary.AnnualizedReturn*100)
	fmt.Printf("Max drawdown:      %.2f%%\n", summary.MaxDrawdown*100)
	fmt.Printf("Sharpe ratio:      %.2f\n", summary.SharpeRatio)
	fmt.Printf("Trades:            %d (win rate %.2f%%)\n", summary.TradeCount, summary.WinRate*100)
	fmt.Printf("Commission paid:   %s\n", summary.TotalCommission.StringFixed(2))
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run a daily backtest over local bar files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the YAML config file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Directory with instrument bar files (csv or parquet)",
				Value:   "data",
			},
			&cli.StringFlag{
				Name:  "baseline",
				Usage: "Optional baseline index file with indicator columns",
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Strategy to run (periodic, ma_distance)",
				Value:   "periodic",
			},
			&cli.FloatFlag{
				Name:  "amount",
				Usage: "Cash amount per buy order",
				Value: 1000,
			},
			&cli.StringFlag{
				Name:  "period",
				Usage: "Periodic strategy interval (weekly, monthly)",
				Value: string(strategy.PeriodWeekly),
			},
			&cli.StringFlag{
				Name:  "ma-column",
				Usage: "Baseline indicator column for ma_distance",
				Value: "ma850",
			},
			&cli.FloatFlag{
				Name:  "sell-gain",
				Usage: "Sell threshold above the moving average for ma_distance",
				Value: 0.2,
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
