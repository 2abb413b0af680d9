// Package utils provides formatting, ticker and date helpers shared by the
// dashboard, the renderers and the CLI.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatINR formats a number in Indian Rupee format (₹12,34,567.89).
// Uses the Indian numbering system: last 3 digits, then groups of 2.
func FormatINR(amount float64) string {
	negative := amount < 0
	formatted := groupNumeric(fmt.Sprintf("%.2f", math.Abs(amount)), formatIndianNumber)

	if negative {
		return "-₹" + formatted
	}
	return "₹" + formatted
}

// FormatINRCompact formats a number in compact Indian notation.
// e.g., 1927345 → "₹19.27 L", 192734500000 → "₹19,273.45 Cr"
func FormatINRCompact(amount float64) string {
	prefix := "₹"
	if amount < 0 {
		prefix = "-₹"
	}
	amount = math.Abs(amount)

	switch {
	case amount >= 1e12:
		return fmt.Sprintf("%s%s L Cr", prefix, formatWithDecimals(amount/1e12))
	case amount >= 1e7:
		return fmt.Sprintf("%s%s Cr", prefix, groupNumeric(formatWithDecimals(amount/1e7), formatIndianNumber))
	case amount >= 1e5:
		return fmt.Sprintf("%s%s L", prefix, formatWithDecimals(amount/1e5))
	case amount >= 1e3:
		return fmt.Sprintf("%s%s K", prefix, formatWithDecimals(amount/1e3))
	default:
		return fmt.Sprintf("%s%.2f", prefix, amount)
	}
}

// FormatUSDCompact formats a dollar amount with T/B/M/K suffixes.
// e.g., 2.95e12 → "$2.95T", 1.5e9 → "$1.5B"
func FormatUSDCompact(amount float64) string {
	prefix := "$"
	if amount < 0 {
		prefix = "-$"
	}
	amount = math.Abs(amount)

	switch {
	case amount >= 1e12:
		return prefix + formatWithDecimals(amount/1e12) + "T"
	case amount >= 1e9:
		return prefix + formatWithDecimals(amount/1e9) + "B"
	case amount >= 1e6:
		return prefix + formatWithDecimals(amount/1e6) + "M"
	case amount >= 1e3:
		return prefix + formatWithDecimals(amount/1e3) + "K"
	default:
		return fmt.Sprintf("%s%.2f", prefix, amount)
	}
}

// FormatMarketCap formats a market capitalisation in the index currency.
func FormatMarketCap(amount float64, currency string) string {
	if strings.EqualFold(currency, "INR") {
		return FormatINRCompact(amount)
	}
	return FormatUSDCompact(amount)
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatStatementValue formats a statement cell. Whole numbers get
// thousands separators; fractional values such as EPS keep two decimals.
// A nil value renders as "N/A".
func FormatStatementValue(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "N/A"
	}
	x := *v
	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}
	if x == math.Trunc(x) && x >= 1000 {
		return sign + formatWesternNumber(int64(x))
	}
	return sign + groupNumeric(fmt.Sprintf("%.2f", x), formatWesternNumber)
}

// groupNumeric applies digit grouping to the integer part of a formatted
// non-negative decimal string.
func groupNumeric(s string, group func(int64) string) string {
	whole, frac := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		whole, frac = s[:dot], s[dot:]
	}
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return s
	}
	return group(n) + frac
}

// formatIndianNumber formats an integer with Indian grouping (last 3, then 2s).
func formatIndianNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	s := fmt.Sprintf("%d", n)
	result := s[len(s)-3:]
	remaining := s[:len(s)-3]

	for len(remaining) > 0 {
		if len(remaining) > 2 {
			result = remaining[len(remaining)-2:] + "," + result
			remaining = remaining[:len(remaining)-2]
		} else {
			result = remaining + "," + result
			remaining = ""
		}
	}

	return result
}

// formatWesternNumber formats an integer in groups of three.
func formatWesternNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatWithDecimals formats a number with up to 2 decimal places,
// removing trailing zeros.
func formatWithDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
