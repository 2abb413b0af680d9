package utils

import (
	"strings"
)

// NormalizeSymbol trims whitespace and a leading "$" and uppercases the
// symbol. A market suffix such as ".NS" is preserved.
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	return strings.TrimPrefix(symbol, "$")
}

// WithSuffix appends the market suffix unless the symbol already carries it.
// Applying it twice is the same as applying it once.
func WithSuffix(symbol, suffix string) string {
	symbol = strings.TrimSpace(symbol)
	if suffix == "" || symbol == "" {
		return symbol
	}
	if strings.HasSuffix(strings.ToUpper(symbol), strings.ToUpper(suffix)) {
		return symbol
	}
	return symbol + suffix
}
