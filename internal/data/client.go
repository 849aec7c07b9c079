package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/token"
	"github.com/johan/polymarket-history/internal/types"
)

const (
	// DefaultBaseURL is the base URL for the Data API.
	DefaultBaseURL = "https://data-api.polymarket.com"

	// DefaultLimit is the page size for trade requests.
	DefaultLimit = 1000

	// DefaultMaxPages caps backward pagination.
	DefaultMaxPages = 50

	// DefaultPageDelay is the courtesy delay between page requests.
	DefaultPageDelay = 250 * time.Millisecond
)

// Client is an HTTP client for the Data API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageDelay  time.Duration
	log        logrus.FieldLogger
}

// NewClient creates a new Data API client.
func NewClient(httpClient *http.Client, log logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		pageDelay:  DefaultPageDelay,
		log:        log,
	}
}

// WithBaseURL sets a custom base URL for the client.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// WithPageDelay sets the delay between page requests.
func (c *Client) WithPageDelay(d time.Duration) *Client {
	c.pageDelay = d
	return c
}

// FetchTrades fetches the trade history for one token identity through
// backward time pagination: each page's oldest timestamp minus one becomes
// the next page's upper bound.
//
// The trades endpoint does not filter by asset server-side; pages carry
// trades for unrelated tokens, and the asset field of each row comes back
// in a server-chosen encoding that need not match the request. Every row is
// therefore matched against the requested identity's canonical forms, and
// only matching rows are kept.
//
// Pagination stops when a page comes back shorter than the requested limit,
// when a page is empty, or when the page cap is reached. A transport
// failure on any page discards the partial result and propagates.
func (c *Client) FetchTrades(ctx context.Context, id token.Identity, q Query) ([]Trade, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	maxPages := q.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var trades []Trade
	end := q.End

	for page := 0; page < maxPages; page++ {
		rows, err := c.fetchPage(ctx, id.Decimal(), q.Start, end, limit)
		if err != nil {
			return nil, fmt.Errorf("trades page %d: %w", page, err)
		}
		if len(rows) == 0 {
			break
		}

		matched := 0
		for _, row := range rows {
			if id.Matches(row.Asset) {
				trades = append(trades, row)
				matched++
			}
		}
		c.log.WithFields(logrus.Fields{
			"page":    page,
			"rows":    len(rows),
			"matched": matched,
		}).Debug("trades page fetched")

		if len(rows) < limit {
			break
		}

		// Advance the cursor from the matched tail when there is one;
		// otherwise the raw page tail keeps pagination moving through
		// pages where nothing matched.
		lastTS := rows[len(rows)-1].Timestamp
		if matched > 0 {
			lastTS = trades[len(trades)-1].Timestamp
		}
		end = lastTS - 1

		if err := c.wait(ctx); err != nil {
			return nil, err
		}
	}

	return trades, nil
}

// fetchPage requests a single page of trades.
func (c *Client) fetchPage(ctx context.Context, asset string, start, end int64, limit int) ([]Trade, error) {
	q := url.Values{}
	q.Set("asset", asset)
	q.Set("limit", strconv.Itoa(limit))
	if start > 0 {
		q.Set("startTime", strconv.FormatInt(start, 10))
	}
	if end > 0 {
		q.Set("endTime", strconv.FormatInt(end, 10))
	}
	u := c.baseURL + "/trades?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, &types.APIError{Status: resp.StatusCode, URL: u, Body: string(body)}
	}

	var rows []Trade
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return rows, nil
}

// wait applies the inter-page delay, honoring context cancellation.
func (c *Client) wait(ctx context.Context) error {
	if c.pageDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.pageDelay):
		return nil
	}
}
