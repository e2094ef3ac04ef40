package codec

import (
	"fmt"
	"strings"
)

// venuePrefixes maps exchange names to the two-letter prefix of a vendor instrument key.
var venuePrefixes = map[string]string{
	"NASDAQ": "NQ",
	"NYSE":   "NY",
	"AMEX":   "AM",
}

var prefixVenues = func() map[string]string {
	m := make(map[string]string, len(venuePrefixes))
	for v, p := range venuePrefixes {
		m[p] = v
	}
	return m
}()

// ToVenueCode は取引所名と銘柄コードからベンダーの銘柄キーを組み立てます（例: NASDAQ, AAPL → NQAAPL）。
func ToVenueCode(venue, symbol string) (string, error) {
	p, ok := venuePrefixes[strings.ToUpper(strings.TrimSpace(venue))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedVenue, venue)
	}
	if symbol == "" {
		return "", fmt.Errorf("%w: empty symbol for %s", ErrUnsupportedVenue, venue)
	}
	return p + symbol, nil
}

// FromVenueCode strips the venue prefix from a vendor instrument key.
func FromVenueCode(code string) (symbol, venue string, err error) {
	if len(code) <= 2 {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedVenue, code)
	}
	v, ok := prefixVenues[code[:2]]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedVenue, code)
	}
	return code[2:], v, nil
}
