package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/clob"
	"github.com/johan/polymarket-history/internal/data"
	"github.com/johan/polymarket-history/internal/gamma"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type recordingWriter struct {
	prices   []*PriceTable
	trades   map[string]int
	books    []string
	metadata int
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{trades: make(map[string]int)}
}

func (w *recordingWriter) WritePrices(eventSlug, marketSlug string, table *PriceTable) error {
	w.prices = append(w.prices, table)
	return nil
}

func (w *recordingWriter) WriteTrades(eventSlug, marketSlug, outcome string, trades []data.Trade) error {
	w.trades[outcome] += len(trades)
	return nil
}

func (w *recordingWriter) WriteOrderBook(eventSlug, marketSlug string, table *BookTable) error {
	w.books = append(w.books, table.Outcome)
	return nil
}

func (w *recordingWriter) WriteMetadata(eventSlug, marketSlug string, raw json.RawMessage) error {
	w.metadata++
	return nil
}

func TestServiceRun_FullMarket(t *testing.T) {
	yesHex := hexOf(t, "111")

	gammaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("unexpected gamma path %s", r.URL.Path)
		}
		fmt.Fprint(w, `[{"slug":"will-x","question":"Will X?","clobTokenIds":"[\"111\",\"222\"]"}]`)
	}))
	defer gammaSrv.Close()

	clobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/prices-history":
			if r.URL.Query().Get("market") == yesHex {
				fmt.Fprint(w, `{"history":[{"t":1000,"p":0.4}]}`)
			} else {
				fmt.Fprint(w, `{"history":[{"t":1000,"p":0.6},{"t":2000,"p":0.65}]}`)
			}
		case "/book":
			fmt.Fprint(w, `{"timestamp":"1700000000000","bids":[{"price":"0.39","size":"10"}],"asks":[{"price":"0.41","size":"8"}]}`)
		default:
			t.Errorf("unexpected clob path %s", r.URL.Path)
		}
	}))
	defer clobSrv.Close()

	dataSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		asset := r.URL.Query().Get("asset")
		fmt.Fprintf(w, `[{"asset":%q,"timestamp":500,"side":"BUY","price":0.4,"size":2}]`, asset)
	}))
	defer dataSrv.Close()

	gc := gamma.NewClient(gammaSrv.Client(), nil).WithBaseURL(gammaSrv.URL)
	cc := clob.NewClient(clobSrv.Client(), nil).WithBaseURL(clobSrv.URL)
	dc := data.NewClient(dataSrv.Client(), nil).WithBaseURL(dataSrv.URL).WithPageDelay(0)

	writer := newRecordingWriter()
	svc := &Service{
		gamma:  gc,
		prices: NewPriceCollector(cc, nil),
		trades: NewTradeCollector(dc, nil),
		books:  NewOrderBookCollector(cc, nil),
		tradeQ: data.Query{Limit: 10, MaxPages: 2},
		writer: writer,
		log:    testLogger(),
	}

	opts := Options{Interval: "max", Fidelity: 1, Trades: true, Book: true, Depth: 5}
	err := svc.Run(context.Background(), []string{"https://polymarket.com/event/will-x"}, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(writer.prices) != 1 {
		t.Fatalf("prices written %d times, want 1", len(writer.prices))
	}
	if got := len(writer.prices[0].Rows); got != 2 {
		t.Errorf("joined price rows = %d, want 2", got)
	}
	if writer.trades["YES"] != 1 || writer.trades["NO"] != 1 {
		t.Errorf("trade rows = %v, want 1 per outcome", writer.trades)
	}
	if len(writer.books) != 2 {
		t.Errorf("book tables written = %d, want 2", len(writer.books))
	}
	if writer.metadata != 1 {
		t.Errorf("metadata written %d times, want 1", writer.metadata)
	}
}

func TestServiceRun_BadURLContinues(t *testing.T) {
	gammaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer gammaSrv.Close()

	writer := newRecordingWriter()
	svc := &Service{
		gamma:  gamma.NewClient(gammaSrv.Client(), nil).WithBaseURL(gammaSrv.URL),
		writer: writer,
		log:    testLogger(),
	}

	// The first URL has no event slug. Run logs it and moves on.
	err := svc.Run(context.Background(), []string{"https://polymarket.com/markets", "https://polymarket.com/event/gone"}, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if writer.metadata != 0 || len(writer.prices) != 0 {
		t.Errorf("no writes expected, got %+v", writer)
	}
}
