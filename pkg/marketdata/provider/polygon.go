package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/pkg/errors"
	"github.com/webclinic017/quant-research/pkg/marketdata/writer"
)

// PolygonClient downloads daily aggregates from Polygon.io.
type PolygonClient struct {
	client *polygon.Client
	writer writer.BarWriter
}

// NewPolygonClient creates a Polygon-backed provider.
func NewPolygonClient(apiKey string) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "polygon API key is required")
	}

	return &PolygonClient{
		client: polygon.New(apiKey),
		writer: nil,
	}, nil
}

// ConfigWriter implements Provider.
func (c *PolygonClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download implements Provider with one-day aggregates.
func (c *PolygonClient) Download(
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

	totalDays := endDate.Sub(startDate).Hours()/24 + 1

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000)

	iter := c.client.ListAggs(ctx, params)

	count := 0

	for iter.Next() {
		agg := iter.Item()

		bar := market.Bar{
			Date:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := c.writer.Write(ticker, bar); err != nil {
			return "", err
		}

		count++

		if onProgress != nil {
			elapsed := time.Time(agg.Timestamp).Sub(startDate).Hours() / 24
			onProgress(elapsed, totalDays, fmt.Sprintf("Downloading %s", ticker))
		}
	}

	if iter.Err() != nil {
		return "", errors.Wrapf(errors.ErrCodeQueryFailed, iter.Err(),
			"failed to download %s from polygon", ticker)
	}

	if count == 0 {
		return "", errors.Newf(errors.ErrCodeDataNotFound, "polygon returned no bars for %s", ticker)
	}

	return c.writer.Finalize()
}
