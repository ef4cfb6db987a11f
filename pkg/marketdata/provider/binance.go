package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/pkg/errors"
	"github.com/webclinic017/quant-research/pkg/marketdata/writer"
)

// binancePageSize is the kline page limit of the Binance REST API.
const binancePageSize = 500

// BinanceClient downloads daily klines from Binance. No API key is needed
// for historical kline data.
type BinanceClient struct {
	client *binance.Client
	writer writer.BarWriter
}

// NewBinanceClient creates a Binance-backed provider.
func NewBinanceClient() *BinanceClient {
	return &BinanceClient{
		client: binance.NewClient("", ""),
		writer: nil,
	}
}

// ConfigWriter implements Provider.
func (c *BinanceClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download implements Provider with paginated 1d klines.
func (c *BinanceClient) Download(
	ctx context.Context,
	ticker string,
	startDate time.Time,
	endDate time.Time,
	onProgress OnDownloadProgress,
) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeInvalidParameter, "no writer configured, call ConfigWriter first")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", err
	}
	defer c.writer.Close()

	startMillis := startDate.UnixMilli()
	endMillis := endDate.UnixMilli()
	currentStart := startMillis

	wrote := 0

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(ticker).
			Interval("1d").
			StartTime(currentStart).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeQueryFailed, err,
				"failed to download %s from binance", ticker)
		}

		if err := c.writeKlines(ticker, klines); err != nil {
			return "", err
		}

		wrote += len(klines)

		if onProgress != nil {
			onProgress(float64(currentStart-startMillis), float64(endMillis-startMillis),
				fmt.Sprintf("Downloading %s", ticker))
		}

		// A short page is the last page.
		if len(klines) < binancePageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	if wrote == 0 {
		return "", errors.Newf(errors.ErrCodeDataNotFound, "binance returned no bars for %s", ticker)
	}

	return c.writer.Finalize()
}

func (c *BinanceClient) writeKlines(ticker string, klines []*binance.Kline) error {
	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		bar := market.Bar{
			Date:   time.UnixMilli(k.OpenTime),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		}

		if err := c.writer.Write(ticker, bar); err != nil {
			return err
		}
	}

	return nil
}
