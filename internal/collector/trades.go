package collector

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/data"
	"github.com/johan/polymarket-history/internal/gamma"
	"github.com/johan/polymarket-history/internal/token"
)

// TradeCollector fetches per-outcome trade histories.
type TradeCollector struct {
	data *data.Client
	log  logrus.FieldLogger
}

// NewTradeCollector creates a trade collector.
func NewTradeCollector(dataClient *data.Client, log logrus.FieldLogger) *TradeCollector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TradeCollector{data: dataClient, log: log}
}

// Collect fetches the full trade history for both outcomes of a market.
// A failed side is logged and comes back empty; it never aborts the
// sibling. A malformed dual-token field is the only returned error.
func (c *TradeCollector) Collect(ctx context.Context, market *gamma.Market, q data.Query) (yes, no []data.Trade, err error) {
	yesID, noID, err := token.ParseDualTokenField(market.ClobTokenIds)
	if err != nil {
		return nil, nil, err
	}

	yes = c.fetchSide(ctx, yesID, "YES", q)
	no = c.fetchSide(ctx, noID, "NO", q)
	return yes, no, nil
}

func (c *TradeCollector) fetchSide(ctx context.Context, id token.Identity, outcome string, q data.Query) []data.Trade {
	trades, err := c.data.FetchTrades(ctx, id, q)
	if err != nil {
		c.log.WithError(err).WithField("outcome", outcome).Warn("trade fetch failed")
		return nil
	}
	return trades
}
