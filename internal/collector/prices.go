// Package collector joins per-outcome API results into per-market tables
// and drives the batch collection run.
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/clob"
	"github.com/johan/polymarket-history/internal/gamma"
	"github.com/johan/polymarket-history/internal/token"
)

// PriceRow is one joined observation. A nil side means that outcome had no
// observation at this timestamp.
type PriceRow struct {
	Timestamp time.Time
	Yes       *float64
	No        *float64
}

// PriceTable is the outer join of a market's two outcome price histories,
// sorted by timestamp. HasYes/HasNo record which sides returned any data,
// which controls the columns the writer emits.
type PriceTable struct {
	HasYes bool
	HasNo  bool
	Rows   []PriceRow
}

// PriceCollector fetches and joins price histories.
type PriceCollector struct {
	clob *clob.Client
	log  logrus.FieldLogger
}

// NewPriceCollector creates a price collector.
func NewPriceCollector(clobClient *clob.Client, log logrus.FieldLogger) *PriceCollector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PriceCollector{clob: clobClient, log: log}
}

// Collect resolves the market's dual token field and fetches one price
// history per outcome. A failed side is logged and treated as empty; it
// never aborts the sibling fetch. Returns nil when both sides are empty.
// A malformed dual-token field is the only returned error.
func (c *PriceCollector) Collect(ctx context.Context, market *gamma.Market, interval string, fidelity int) (*PriceTable, error) {
	yes, no, err := token.ParseDualTokenField(market.ClobTokenIds)
	if err != nil {
		return nil, err
	}

	yesHist := c.fetchSide(ctx, yes, "YES", interval, fidelity)
	noHist := c.fetchSide(ctx, no, "NO", interval, fidelity)

	if len(yesHist) == 0 && len(noHist) == 0 {
		return nil, nil
	}
	return joinPrices(yesHist, noHist), nil
}

func (c *PriceCollector) fetchSide(ctx context.Context, id token.Identity, outcome, interval string, fidelity int) []clob.PricePoint {
	// The prices-history endpoint wants the hex-canonical form.
	hist, err := c.clob.FetchPriceHistory(ctx, id.Hex(), interval, fidelity)
	if err != nil {
		c.log.WithError(err).WithField("outcome", outcome).Warn("price history fetch failed")
		return nil
	}
	return hist
}

// joinPrices outer joins the two histories on timestamp. Timestamps present
// on only one side keep the other side nil, never dropped.
func joinPrices(yes, no []clob.PricePoint) *PriceTable {
	table := &PriceTable{
		HasYes: len(yes) > 0,
		HasNo:  len(no) > 0,
	}

	rows := make(map[int64]*PriceRow, len(yes)+len(no))
	rowAt := func(t int64) *PriceRow {
		if r, ok := rows[t]; ok {
			return r
		}
		r := &PriceRow{Timestamp: time.Unix(t, 0).UTC()}
		rows[t] = r
		return r
	}

	for _, p := range yes {
		v := p.P
		rowAt(p.T).Yes = &v
	}
	for _, p := range no {
		v := p.P
		rowAt(p.T).No = &v
	}

	keys := make([]int64, 0, len(rows))
	for t := range rows {
		keys = append(keys, t)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	table.Rows = make([]PriceRow, 0, len(keys))
	for _, t := range keys {
		table.Rows = append(table.Rows, *rows[t])
	}
	return table
}
