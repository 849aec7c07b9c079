// Package gamma provides a client for the Polymarket Gamma metadata API.
package gamma

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Event represents a prediction market event.
type Event struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Active     bool      `json:"active"`
	Closed     bool      `json:"closed"`
	StartDate  time.Time `json:"startDate,omitempty"`
	EndDate    time.Time `json:"endDate,omitempty"`
	Volume24hr float64   `json:"volume24hr"`
	Liquidity  float64   `json:"liquidity"`
	Markets    []Market  `json:"markets,omitempty"`
}

// Market represents a prediction market.
type Market struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	ConditionID  string    `json:"conditionId"`
	Slug         string    `json:"slug"`
	Active       bool      `json:"active"`
	Closed       bool      `json:"closed"`
	LiquidityNum float64   `json:"liquidityNum"`
	Volume24hr   float64   `json:"volume24hr"`
	EndDate      time.Time `json:"endDate,omitempty"`

	// ClobTokenIds is the raw dual-token field: a JSON array of two token
	// IDs serialized as a string, though older responses use looser
	// encodings. Resolved by the token package, never parsed here.
	ClobTokenIds string `json:"clobTokenIds"`

	// Outcomes is a JSON array of outcome names serialized as a string.
	Outcomes string `json:"outcomes"`

	// Raw is the undecoded market object, carried through so metadata can
	// be persisted exactly as the API returned it.
	Raw json.RawMessage `json:"-"`
}

// FileSlug returns a slug suitable for output file naming.
func (m *Market) FileSlug() string {
	if m.Slug != "" {
		return m.Slug
	}
	if m.ID != "" {
		return "market-" + m.ID
	}
	return "market-unknown"
}

// Filter contains query parameters for API requests.
type Filter struct {
	Active  *bool
	Closed  *bool
	TagSlug string
	Slug    string
	Limit   int
	Offset  int
}

var eventSlugRe = regexp.MustCompile(`/event/([^/?#]+)`)

// ExtractSlug extracts the event slug from a Polymarket URL. A bare slug
// (no scheme, no slashes) is accepted as-is.
func ExtractSlug(url string) (string, error) {
	if m := eventSlugRe.FindStringSubmatch(url); m != nil {
		return strings.ToLower(m[1]), nil
	}
	if !strings.ContainsAny(url, "/:") && url != "" {
		return strings.ToLower(url), nil
	}
	return "", &SlugError{URL: url}
}

// SlugError reports a URL that does not name an event.
type SlugError struct {
	URL string
}

func (e *SlugError) Error() string {
	return "url must contain /event/<slug>: " + e.URL
}
