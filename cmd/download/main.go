// Command download fetches daily bar history for one or more tickers and
// writes it under a data directory, one file per ticker, ready for the
// backtest command to load.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"github.com/webclinic017/quant-research/pkg/marketdata"
	"github.com/webclinic017/quant-research/pkg/marketdata/provider"
	"github.com/webclinic017/quant-research/pkg/marketdata/writer"
)

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	tickers := cmd.StringSlice("ticker")
	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")
	providerFlag := cmd.String("provider")
	formatFlag := cmd.String("format")
	dataPath := cmd.String("data")

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionShowCount(),
	)

	onProgress := func(current float64, total float64, message string) {
		if total > 0 {
			bar.Describe(message)
			bar.Set(int(current / total * 100))
		}
	}

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		ProviderType:  provider.ProviderType(providerFlag),
		Format:        writer.Format(formatFlag),
		DataPath:      dataPath,
		PolygonApiKey: os.Getenv("POLYGON_API_KEY"),
	}, onProgress)
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	for _, ticker := range tickers {
		path, err := client.Download(ctx, marketdata.DownloadParams{
			Ticker:    ticker,
			StartDate: startDate,
			EndDate:   endDate,
		})
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", ticker, err)
		}

		bar.Finish()
		log.Printf("Downloaded %s to %s", ticker, path)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download daily bar history for backtesting",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "ticker",
				Aliases:  []string{"t"},
				Usage:    "Ticker symbol, repeatable",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage: fmt.Sprintf("Data provider (%s, %s)",
					provider.ProviderPolygon, provider.ProviderBinance),
				Value: string(provider.ProviderPolygon),
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output file format (csv, parquet)",
				Value: string(writer.FormatCSV),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Data output directory",
				Value:   "data",
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
