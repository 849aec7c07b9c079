package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/johan/polymarket-history/internal/clob"
	"github.com/johan/polymarket-history/internal/gamma"
)

const bookPayload = `{
	"market": "0xcond",
	"asset_id": "111",
	"timestamp": "1700000000500",
	"bids": [
		{"price":"0.48","size":"100"},
		{"price":"0.47","size":"250"},
		{"price":"0.46","size":"75"}
	],
	"asks": [
		{"price":"0.52","size":"90"},
		{"price":"0.53","size":"10"},
		{"price":"0.54","size":"400"}
	]
}`

func TestOrderBookCollect_ExplodeWithDepth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bookPayload))
	}))
	defer srv.Close()

	oc := NewOrderBookCollector(clob.NewClient(srv.Client(), nil).WithBaseURL(srv.URL), nil)
	yes, no, err := oc.Collect(context.Background(), &gamma.Market{ClobTokenIds: `["111","222"]`}, 2)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if yes.Outcome != "YES" || no.Outcome != "NO" {
		t.Errorf("outcome tags = %q, %q", yes.Outcome, no.Outcome)
	}

	// Depth 2 keeps two levels per side: 2 bids + 2 asks.
	if len(yes.Rows) != 4 {
		t.Fatalf("got %d rows, want 4 (depth 2, two sides)", len(yes.Rows))
	}

	r0 := yes.Rows[0]
	if r0.Side != "bid" || r0.Level != 1 {
		t.Errorf("row 0 = %s level %d, want bid level 1", r0.Side, r0.Level)
	}
	if !r0.Price.Equal(decimal.RequireFromString("0.48")) || !r0.Size.Equal(decimal.RequireFromString("100")) {
		t.Errorf("row 0 price/size = %s/%s", r0.Price, r0.Size)
	}
	if r0.Timestamp.UnixMilli() != 1700000000500 {
		t.Errorf("row 0 timestamp = %v", r0.Timestamp)
	}

	r2 := yes.Rows[2]
	if r2.Side != "ask" || r2.Level != 1 {
		t.Errorf("row 2 = %s level %d, want ask level 1", r2.Side, r2.Level)
	}

	for _, row := range yes.Rows {
		if row.Level > 2 {
			t.Errorf("level %d survived depth cutoff", row.Level)
		}
	}
}

func TestOrderBookCollect_EmptyBookIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"timestamp":"1700000000000","bids":[],"asks":[]}`))
	}))
	defer srv.Close()

	oc := NewOrderBookCollector(clob.NewClient(srv.Client(), nil).WithBaseURL(srv.URL), nil)
	yes, no, err := oc.Collect(context.Background(), &gamma.Market{ClobTokenIds: `["111","222"]`}, 20)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(yes.Rows) != 0 || len(no.Rows) != 0 {
		t.Errorf("got %d/%d rows, want empty tables", len(yes.Rows), len(no.Rows))
	}
}

func TestOrderBookCollect_FailedSideYieldsEmptyTable(t *testing.T) {
	var n int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n++
		if n == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(bookPayload))
	}))
	defer srv.Close()

	oc := NewOrderBookCollector(clob.NewClient(srv.Client(), nil).WithBaseURL(srv.URL), nil)
	yes, no, err := oc.Collect(context.Background(), &gamma.Market{ClobTokenIds: `["111","222"]`}, 20)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(yes.Rows) != 0 {
		t.Errorf("failed YES side has %d rows, want 0", len(yes.Rows))
	}
	if len(no.Rows) == 0 {
		t.Error("NO side empty; sibling fetch should have proceeded")
	}
}
