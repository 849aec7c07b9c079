package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/types"
)

const (
	// DefaultBaseURL is the base URL for the CLOB API.
	DefaultBaseURL = "https://clob.polymarket.com"
)

// Client is an HTTP client for the CLOB API. Token IDs passed to it must be
// in the canonical hex encoding; the price and book endpoints reject other
// widths inconsistently.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        logrus.FieldLogger
}

// NewClient creates a new CLOB API client.
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
		log:        log,
	}
}

// WithBaseURL sets a custom base URL for the client.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// FetchPriceHistory fetches the price history for a token. An empty history
// is a valid result, not an error.
func (c *Client) FetchPriceHistory(ctx context.Context, tokenID, interval string, fidelity int) ([]PricePoint, error) {
	q := url.Values{}
	q.Set("market", tokenID)
	q.Set("interval", interval)
	q.Set("fidelity", strconv.Itoa(fidelity))
	u := c.baseURL + "/prices-history?" + q.Encode()

	var hist priceHistoryResponse
	if err := c.get(ctx, u, &hist); err != nil {
		return nil, err
	}
	return hist.History, nil
}

// FetchBook fetches the order book snapshot for a token. A book with no
// bids and no asks is a valid snapshot; resolved markets return one.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (*BookSnapshot, error) {
	u := c.baseURL + "/book?token_id=" + url.QueryEscape(tokenID)

	var book BookSnapshot
	if err := c.get(ctx, u, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// get executes a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, u string, out any) error {
	c.log.WithField("url", u).Debug("clob GET")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return &types.APIError{Status: resp.StatusCode, URL: u, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
