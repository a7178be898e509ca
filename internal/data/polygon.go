package data

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"
)

// PolygonProvider serves contract listings, underlying bars and option closes
// from the vendor REST API. It is the remote complement to FlatFileProvider
// for runs without pre-downloaded snapshot files.
//
// Every call carries a per-request timeout and at most one retry with the
// identical request, so a retried fetch is idempotent.
type PolygonProvider struct {
	client  *polygon.Client
	timeout time.Duration
	retries int
}

func NewPolygonProvider(apiKey string) *PolygonProvider {
	return &PolygonProvider{
		client:  polygon.New(apiKey),
		timeout: 30 * time.Second,
		retries: 1,
	}
}

// ListContracts returns the option contracts for an underlying as of a date,
// restricted to expirations in [expiryFrom, expiryTo].
func (p *PolygonProvider) ListContracts(ctx context.Context, underlying string, asOf, expiryFrom, expiryTo time.Time) ([]OptionContract, error) {
	var out []OptionContract
	err := p.withRetry(ctx, "list_contracts", func(ctx context.Context) error {
		params := models.ListOptionsContractsParams{}.
			WithUnderlyingTicker(models.EQ, underlying).
			WithExpirationDate(models.GTE, models.Date(expiryFrom)).
			WithExpirationDate(models.LTE, models.Date(expiryTo)).
			WithAsOf(models.Date(asOf)).
			WithSort("strike_price").
			WithOrder(models.Asc).
			WithLimit(1000)

		out = out[:0]
		iter := p.client.ListOptionsContracts(ctx, params)
		for iter.Next() {
			item := iter.Item()
			typ, ok := ParseOptionType(item.ContractType)
			if !ok {
				continue
			}
			out = append(out, OptionContract{
				Symbol:     item.Ticker,
				Underlying: item.UnderlyingTicker,
				Expiry:     time.Time(item.ExpirationDate),
				Strike:     item.StrikePrice,
				Type:       typ,
			})
		}
		return iter.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list contracts %s as of %s: %w", underlying, asOf.Format("2006-01-02"), err)
	}
	return out, nil
}

// GetDailyBars returns adjusted daily aggregates for the underlying.
func (p *PolygonProvider) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	var out []Bar
	err := p.withRetry(ctx, "daily_bars", func(ctx context.Context) error {
		params := models.ListAggsParams{
			Ticker:     symbol,
			Multiplier: 1,
			Timespan:   models.Day,
			From:       models.Millis(from),
			To:         models.Millis(to),
		}.WithOrder(models.Asc).WithAdjusted(true)

		out = out[:0]
		iter := p.client.ListAggs(ctx, params)
		for iter.Next() {
			item := iter.Item()
			out = append(out, Bar{
				Date:  time.Time(item.Timestamp).UTC(),
				Open:  item.Open,
				High:  item.High,
				Low:   item.Low,
				Close: item.Close,
				Vol:   item.Volume,
			})
		}
		return iter.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("daily bars %s: %w", symbol, err)
	}
	return out, nil
}

// GetOptionClose returns the end-of-day close of a contract on a date.
func (p *PolygonProvider) GetOptionClose(ctx context.Context, contractSymbol string, date time.Time) (float64, error) {
	var closePx float64
	err := p.withRetry(ctx, "option_close", func(ctx context.Context) error {
		res, err := p.client.GetDailyOpenCloseAgg(ctx, &models.GetDailyOpenCloseAggParams{
			Ticker: contractSymbol,
			Date:   models.Date(date),
		})
		if err != nil {
			return err
		}
		closePx = res.Close
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("option close %s on %s: %w", contractSymbol, date.Format("2006-01-02"), err)
	}
	return closePx, nil
}

// withRetry runs the call under the per-request timeout opaquely retrying the
// identical request at most p.retries times.
func (p *PolygonProvider) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= p.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithFields(log.Fields{"op": op, "attempt": attempt + 1}).
			WithError(err).Warn("vendor request failed")
	}
	return err
}
