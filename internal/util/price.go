package util

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errEmptyPrice = errors.New("empty price")

// ParsePrice parses a decimal price string such as "199.99". Surrounding
// whitespace is ignored; anything else that is not a plain decimal is an error.
func ParsePrice(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.ReplaceAll(input, "\u00A0", " "))
	if s == "" {
		return decimal.Zero, errEmptyPrice
	}
	return decimal.NewFromString(s)
}
