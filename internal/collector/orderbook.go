package collector

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/clob"
	"github.com/johan/polymarket-history/internal/gamma"
	"github.com/johan/polymarket-history/internal/token"
	"github.com/johan/polymarket-history/internal/types"
)

// BookRow is one exploded order book level.
type BookRow struct {
	Timestamp time.Time
	Side      string // "bid" or "ask"
	Level     int    // 1 = best
	Price     decimal.Decimal
	Size      decimal.Decimal
}

// BookTable is one outcome's order book snapshot exploded into rows.
// An empty Rows slice is a valid snapshot of a market with no live book.
type BookTable struct {
	Outcome string
	Rows    []BookRow
}

// OrderBookCollector fetches and explodes order book snapshots.
type OrderBookCollector struct {
	clob *clob.Client
	log  logrus.FieldLogger
}

// NewOrderBookCollector creates an order book collector.
func NewOrderBookCollector(clobClient *clob.Client, log logrus.FieldLogger) *OrderBookCollector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OrderBookCollector{clob: clobClient, log: log}
}

// Collect fetches one book snapshot per outcome and explodes each into
// (side, level) rows down to depth. A resolved or inactive market returns
// an empty table for a side, which is not an error; transport failures are
// logged and likewise yield an empty table for that side only. A malformed
// dual-token field is the only returned error.
func (c *OrderBookCollector) Collect(ctx context.Context, market *gamma.Market, depth int) (yes, no *BookTable, err error) {
	yesID, noID, err := token.ParseDualTokenField(market.ClobTokenIds)
	if err != nil {
		return nil, nil, err
	}

	yes = c.fetchSide(ctx, yesID, "YES", depth)
	no = c.fetchSide(ctx, noID, "NO", depth)
	return yes, no, nil
}

func (c *OrderBookCollector) fetchSide(ctx context.Context, id token.Identity, outcome string, depth int) *BookTable {
	// The book endpoint wants the hex-canonical form.
	book, err := c.clob.FetchBook(ctx, id.Hex())
	if err != nil {
		c.log.WithError(err).WithField("outcome", outcome).
			Warn("no order book (market may be resolved or inactive)")
		return &BookTable{Outcome: outcome}
	}
	return c.explode(book, depth, outcome)
}

// explode flattens a snapshot into one row per (side, level), best first,
// discarding levels beyond depth.
func (c *OrderBookCollector) explode(book *clob.BookSnapshot, depth int, outcome string) *BookTable {
	ts := parseBookTimestamp(book.Timestamp)
	table := &BookTable{Outcome: outcome}

	for _, ladder := range []struct {
		side   string
		levels []types.PriceLevel
	}{
		{"bid", book.Bids},
		{"ask", book.Asks},
	} {
		for i, entry := range ladder.levels {
			if i >= depth {
				break
			}
			price, err := decimal.NewFromString(entry.Price)
			if err != nil {
				c.log.WithField("price", entry.Price).Warn("skipping unparseable book level")
				continue
			}
			size, err := decimal.NewFromString(entry.Size)
			if err != nil {
				c.log.WithField("size", entry.Size).Warn("skipping unparseable book level")
				continue
			}
			table.Rows = append(table.Rows, BookRow{
				Timestamp: ts,
				Side:      ladder.side,
				Level:     i + 1,
				Price:     price,
				Size:      size,
			})
		}
	}
	return table
}

// parseBookTimestamp parses the snapshot timestamp, which the API returns
// as a millisecond epoch string.
func parseBookTimestamp(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
