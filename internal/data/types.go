// Package data provides a client for the Polymarket Data API, which serves
// trade history.
package data

import (
	"github.com/shopspring/decimal"
)

// Trade is one trade row from the Data API. Price and size are kept as
// decimals; the remaining attributes pass through unmodified.
type Trade struct {
	ProxyWallet     string          `json:"proxyWallet"`
	Side            string          `json:"side"` // "BUY" or "SELL"
	Asset           string          `json:"asset"`
	ConditionID     string          `json:"conditionId"`
	Size            decimal.Decimal `json:"size"`
	Price           decimal.Decimal `json:"price"`
	Timestamp       int64           `json:"timestamp"` // unix seconds
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	EventSlug       string          `json:"eventSlug"`
	Outcome         string          `json:"outcome"`
	OutcomeIndex    int             `json:"outcomeIndex"`
	TransactionHash string          `json:"transactionHash"`
}

// Query bounds a trade history fetch. Zero values take the client defaults
// (limit 1000, max pages 50, no time bounds).
type Query struct {
	Start    int64 // unix seconds, inclusive lower bound
	End      int64 // unix seconds, inclusive upper bound
	Limit    int   // rows per page
	MaxPages int   // safety cap on pagination
}
