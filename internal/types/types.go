// Package types provides shared type definitions for the Polymarket fetcher.
package types

import "fmt"

// PriceLevel represents a single price level in an order book.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// APIError is returned when an upstream API responds with a non-2xx status.
type APIError struct {
	Status int
	URL    string
	Body   string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api error %d for %s: %s", e.Status, e.URL, e.Body)
	}
	return fmt.Sprintf("api error %d for %s", e.Status, e.URL)
}
