package gamma

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
	// DefaultBaseURL is the base URL for the Gamma API.
	DefaultBaseURL = "https://gamma-api.polymarket.com"
)

// Client is an HTTP client for the Gamma API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        logrus.FieldLogger
}

// NewClient creates a new Gamma API client.
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

// FetchEvents fetches events from the Gamma API.
func (c *Client) FetchEvents(ctx context.Context, filter *Filter) ([]Event, error) {
	var events []Event
	if err := c.get(ctx, "/events", filter, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// FetchMarkets fetches markets from the Gamma API, keeping each market's
// raw JSON alongside the decoded struct.
func (c *Client) FetchMarkets(ctx context.Context, filter *Filter) ([]Market, error) {
	var raws []json.RawMessage
	if err := c.get(ctx, "/markets", filter, &raws); err != nil {
		return nil, err
	}
	return decodeMarkets(raws)
}

// EventMarkets returns the markets for an event slug. A direct market
// lookup is tried first; single-market events often resolve that way. If
// nothing matches, the event itself is looked up and its nested markets
// returned.
func (c *Client) EventMarkets(ctx context.Context, slug string) ([]Market, error) {
	markets, err := c.FetchMarkets(ctx, &Filter{Slug: slug, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(markets) > 0 {
		return markets[:1], nil
	}

	var events []struct {
		Markets []json.RawMessage `json:"markets"`
	}
	if err := c.get(ctx, "/events", &Filter{Slug: slug, Limit: 1}, &events); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no market or event found for slug: %s", slug)
	}
	return decodeMarkets(events[0].Markets)
}

// get executes a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, resource string, filter *Filter, out any) error {
	u := c.baseURL + resource
	if filter != nil {
		if q := buildQuery(filter); q != "" {
			u += "?" + q
		}
	}
	c.log.WithField("url", u).Debug("gamma GET")

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

func decodeMarkets(raws []json.RawMessage) ([]Market, error) {
	markets := make([]Market, 0, len(raws))
	for _, raw := range raws {
		var m Market
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decoding market: %w", err)
		}
		m.Raw = raw
		markets = append(markets, m)
	}
	return markets, nil
}

// buildQuery builds URL query parameters from a Filter.
func buildQuery(f *Filter) string {
	v := url.Values{}
	if f.Active != nil {
		v.Set("active", strconv.FormatBool(*f.Active))
	}
	if f.Closed != nil {
		v.Set("closed", strconv.FormatBool(*f.Closed))
	}
	if f.TagSlug != "" {
		v.Set("tag_slug", f.TagSlug)
	}
	if f.Slug != "" {
		v.Set("slug", f.Slug)
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		v.Set("offset", strconv.Itoa(f.Offset))
	}
	return v.Encode()
}
