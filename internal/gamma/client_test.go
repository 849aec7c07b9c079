package gamma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEventMarkets_DirectLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets":
			if got := r.URL.Query().Get("slug"); got != "test-event" {
				t.Errorf("slug = %q, want test-event", got)
			}
			w.Write([]byte(`[{"id":"1","slug":"test-event","question":"Will it?","clobTokenIds":"[\"111\",\"222\"]"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), nil).WithBaseURL(srv.URL)
	markets, err := client.EventMarkets(context.Background(), "test-event")
	if err != nil {
		t.Fatalf("EventMarkets failed: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("got %d markets, want 1", len(markets))
	}
	if markets[0].ClobTokenIds != `["111","222"]` {
		t.Errorf("ClobTokenIds = %q", markets[0].ClobTokenIds)
	}
	if len(markets[0].Raw) == 0 {
		t.Error("Raw metadata not captured")
	}
}

func TestEventMarkets_EventFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets":
			w.Write([]byte(`[]`))
		case "/events":
			w.Write([]byte(`[{"id":"9","slug":"multi","markets":[{"id":"1","slug":"m1"},{"id":"2","slug":"m2"}]}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), nil).WithBaseURL(srv.URL)
	markets, err := client.EventMarkets(context.Background(), "multi")
	if err != nil {
		t.Fatalf("EventMarkets failed: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("got %d markets, want 2", len(markets))
	}
	if markets[0].ID != "1" || markets[1].ID != "2" {
		t.Errorf("got markets %s, %s", markets[0].ID, markets[1].ID)
	}
}

func TestEventMarkets_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), nil).WithBaseURL(srv.URL)
	if _, err := client.EventMarkets(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown slug, got nil")
	}
}

func TestExtractSlug(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"event url", "https://polymarket.com/event/will-it-rain", "will-it-rain", false},
		{"with query", "https://polymarket.com/event/will-it-rain?tid=7", "will-it-rain", false},
		{"uppercase", "https://polymarket.com/event/Will-It-Rain", "will-it-rain", false},
		{"bare slug", "will-it-rain", "will-it-rain", false},
		{"no event segment", "https://polymarket.com/markets", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSlug(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractSlug(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractSlug(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestFetchMarkets_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := NewClient(&http.Client{Timeout: 30 * time.Second}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	active := true
	markets, err := client.FetchMarkets(ctx, &Filter{Active: &active, Limit: 5})
	if err != nil {
		t.Fatalf("FetchMarkets failed: %v", err)
	}

	t.Logf("Fetched %d markets", len(markets))
	for i, m := range markets {
		t.Logf("  [%d] %s (clobTokenIds=%d bytes)", i, m.Question, len(m.ClobTokenIds))
	}
}
