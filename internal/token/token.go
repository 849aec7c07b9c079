// Package token normalizes Polymarket outcome token identifiers.
//
// A token identity is a 256-bit unsigned integer that appears in API
// responses as either a decimal numeral or a 0x-prefixed hex string. The
// Gamma API attaches both outcome tokens of a market to a single
// clobTokenIds field whose encoding varies between responses. All identity
// comparison in this package is done on the parsed integer value, never on
// raw strings across mixed formats.
package token

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// hexWidth is the canonical hex digit count for a 256-bit identifier.
const hexWidth = 64

// ParseError reports a malformed dual-token field.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing token field %q: %s", truncate(e.Field, 60), e.Reason)
}

// ConversionError reports a token string that is not a valid integer under
// its assumed encoding.
type ConversionError struct {
	Input string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("token %q is not a valid identifier", truncate(e.Input, 60))
}

// Identity is a resolved token identifier. The canonical decimal and
// fixed-width hex encodings are computed once at parse time so that trade
// filtering does not re-derive them per row.
type Identity struct {
	n   *big.Int
	dec string
	hex string
}

// Parse resolves a token string in either encoding into an Identity.
// Decimal numerals and 0x-prefixed hex (any case, any width) are accepted.
func Parse(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, &ConversionError{Input: s}
	}

	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = n.SetString(s[2:], 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok || n.Sign() < 0 {
		return Identity{}, &ConversionError{Input: s}
	}

	return Identity{
		n:   n,
		dec: n.String(),
		hex: "0x" + fmt.Sprintf("%0*x", hexWidth, n),
	}, nil
}

// Decimal returns the canonical decimal encoding.
func (id Identity) Decimal() string { return id.dec }

// Hex returns the canonical 0x-prefixed, 64-digit lowercase hex encoding.
func (id Identity) Hex() string { return id.hex }

// IsZero reports whether the identity is the zero value (never parsed).
func (id Identity) IsZero() bool { return id.n == nil }

// Equal reports whether two identities name the same integer.
func (id Identity) Equal(other Identity) bool {
	if id.n == nil || other.n == nil {
		return false
	}
	return id.n.Cmp(other.n) == 0
}

// Matches reports whether raw names this identity. The precomputed decimal
// and hex forms are checked first; anything else falls back to a full parse
// so unpadded or uppercase hex from the server still matches.
func (id Identity) Matches(raw string) bool {
	if id.n == nil {
		return false
	}
	if raw == id.dec || raw == id.hex {
		return true
	}
	other, err := Parse(raw)
	if err != nil {
		return false
	}
	return id.Equal(other)
}

// ParseDualTokenField parses a market's clobTokenIds value into its YES and
// NO outcome identities. The field arrives as a JSON array of two strings,
// or as a bare comma-separated pair possibly still bracket/quote-wrapped.
// Anything other than exactly two resolvable entries is a ParseError.
func ParseDualTokenField(raw string) (yes, no Identity, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, Identity{}, &ParseError{Field: raw, Reason: "empty"}
	}

	var parts []string
	if strings.HasPrefix(raw, "[") {
		if jsonErr := json.Unmarshal([]byte(raw), &parts); jsonErr != nil {
			// Some responses carry the bracket wrapping without valid JSON
			// inside; fall back to plain splitting.
			parts = splitPair(raw)
		}
	} else {
		parts = splitPair(raw)
	}

	return ResolvePair(parts)
}

// ResolvePair resolves an already-split token pair.
func ResolvePair(parts []string) (yes, no Identity, err error) {
	if len(parts) != 2 {
		return Identity{}, Identity{}, &ParseError{
			Field:  strings.Join(parts, ","),
			Reason: fmt.Sprintf("expected 2 tokens, got %d", len(parts)),
		}
	}

	yes, err = Parse(parts[0])
	if err != nil {
		return Identity{}, Identity{}, err
	}
	no, err = Parse(parts[1])
	if err != nil {
		return Identity{}, Identity{}, err
	}
	return yes, no, nil
}

// ToHex converts a token string in either encoding to the canonical
// 0x-prefixed 64-digit lowercase hex form. Conversion failure is an error,
// never a passthrough of the unconverted input.
func ToHex(s string) (string, error) {
	id, err := Parse(s)
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

// ToDecimal converts a hex-prefixed token string to its decimal encoding.
// Input without a 0x prefix is assumed already decimal and passed through
// unchanged.
func ToDecimal(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return s, nil
	}
	id, err := Parse(s)
	if err != nil {
		return "", err
	}
	return id.Decimal(), nil
}

// splitPair splits a comma-separated pair, stripping bracket and quote
// wrapping from each entry.
func splitPair(raw string) []string {
	raw = strings.Trim(raw, "[]")
	fields := strings.Split(raw, ",")
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(strings.TrimSpace(f), `"'`)
		if f != "" {
			parts = append(parts, f)
		}
	}
	return parts
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
