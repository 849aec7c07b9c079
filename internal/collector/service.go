package collector

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/clob"
	"github.com/johan/polymarket-history/internal/config"
	"github.com/johan/polymarket-history/internal/data"
	"github.com/johan/polymarket-history/internal/gamma"
)

// Writer persists per-market tables. Implemented by storage.FileWriter.
type Writer interface {
	WritePrices(eventSlug, marketSlug string, table *PriceTable) error
	WriteTrades(eventSlug, marketSlug, outcome string, trades []data.Trade) error
	WriteOrderBook(eventSlug, marketSlug string, table *BookTable) error
	WriteMetadata(eventSlug, marketSlug string, raw json.RawMessage) error
}

// Options selects what a run collects.
type Options struct {
	Interval string
	Fidelity int
	Trades   bool
	Book     bool
	Depth    int
}

// Service drives a batch collection run: one event URL at a time, one
// market within it at a time, one outcome-side fetch at a time. Failures
// are logged and the next independent unit of work continues; no unit's
// failure aborts a sibling.
type Service struct {
	gamma  *gamma.Client
	prices *PriceCollector
	trades *TradeCollector
	books  *OrderBookCollector
	tradeQ data.Query
	writer Writer
	log    logrus.FieldLogger
}

// NewService creates a batch collection service from configuration.
func NewService(cfg *config.Config, writer Writer, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}

	clobClient := clob.NewClient(httpClient, log)
	dataClient := data.NewClient(httpClient, log).WithPageDelay(cfg.Trades.PageDelay)

	return &Service{
		gamma:  gamma.NewClient(httpClient, log),
		prices: NewPriceCollector(clobClient, log),
		trades: NewTradeCollector(dataClient, log),
		books:  NewOrderBookCollector(clobClient, log),
		tradeQ: data.Query{
			Limit:    cfg.Trades.PageLimit,
			MaxPages: cfg.Trades.MaxPages,
		},
		writer: writer,
		log:    log,
	}
}

// Run processes each event URL in order.
func (s *Service) Run(ctx context.Context, urls []string, opts Options) error {
	for n, url := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{"n": n + 1, "of": len(urls), "url": url}).Info("processing event")

		if err := s.processEvent(ctx, url, opts); err != nil {
			s.log.WithError(err).WithField("url", url).Error("event failed")
		}
	}
	return nil
}

// processEvent resolves an event's markets and collects each one.
func (s *Service) processEvent(ctx context.Context, url string, opts Options) error {
	slug, err := gamma.ExtractSlug(url)
	if err != nil {
		return err
	}

	markets, err := s.gamma.EventMarkets(ctx, slug)
	if err != nil {
		return err
	}

	for i := range markets {
		s.log.WithFields(logrus.Fields{"market": i + 1, "of": len(markets)}).Info("market")
		s.processMarket(ctx, slug, &markets[i], opts)
	}
	return nil
}

// processMarket collects prices, trades, book, and metadata for one market.
// Each operation failing skips only itself; metadata is always attempted.
func (s *Service) processMarket(ctx context.Context, eventSlug string, market *gamma.Market, opts Options) {
	mslug := market.FileSlug()
	mlog := s.log.WithField("market", mslug)
	mlog.WithField("question", market.Question).Info("collecting")

	prices, err := s.prices.Collect(ctx, market, opts.Interval, opts.Fidelity)
	if err != nil {
		mlog.WithError(err).Warn("skipping prices: dual token field unusable")
	} else if prices == nil {
		mlog.Info("no price history on either side")
	} else if err := s.writer.WritePrices(eventSlug, mslug, prices); err != nil {
		mlog.WithError(err).Error("writing prices")
	}

	if opts.Trades {
		yes, no, err := s.trades.Collect(ctx, market, s.tradeQ)
		if err != nil {
			mlog.WithError(err).Warn("skipping trades: dual token field unusable")
		} else {
			s.writeTrades(eventSlug, mslug, "YES", yes, mlog)
			s.writeTrades(eventSlug, mslug, "NO", no, mlog)
		}
	}

	if opts.Book {
		yes, no, err := s.books.Collect(ctx, market, opts.Depth)
		if err != nil {
			mlog.WithError(err).Warn("skipping order book: dual token field unusable")
		} else {
			s.writeBook(eventSlug, mslug, yes, mlog)
			s.writeBook(eventSlug, mslug, no, mlog)
		}
	}

	if len(market.Raw) > 0 {
		if err := s.writer.WriteMetadata(eventSlug, mslug, market.Raw); err != nil {
			mlog.WithError(err).Error("writing metadata")
		}
	}
}

func (s *Service) writeTrades(eventSlug, mslug, outcome string, trades []data.Trade, mlog logrus.FieldLogger) {
	if len(trades) == 0 {
		return
	}
	if err := s.writer.WriteTrades(eventSlug, mslug, outcome, trades); err != nil {
		mlog.WithError(err).WithField("outcome", outcome).Error("writing trades")
	}
}

func (s *Service) writeBook(eventSlug, mslug string, table *BookTable, mlog logrus.FieldLogger) {
	if table == nil || len(table.Rows) == 0 {
		return
	}
	if err := s.writer.WriteOrderBook(eventSlug, mslug, table); err != nil {
		mlog.WithError(err).WithField("outcome", table.Outcome).Error("writing order book")
	}
}
