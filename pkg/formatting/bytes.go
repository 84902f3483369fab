// Package formatting converts byte counts to and from human-readable sizes
// such as "25MB". Units are base 1024.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var units = [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes renders n with the largest unit that keeps the value at or above 1.
// Negative precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	v := float64(n)
	i := 0
	for (v >= 1024 || v <= -1024) && i < len(units)-1 {
		v /= 1024
		i++
	}

	if i == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(v, 'f', precision, 64) + " " + units[i]
}

// ParseBytes parses sizes like "512", "50MB", "1.5 gb", "10M", or "4KiB".
// A bare number is bytes. Units are case-insensitive; the trailing "B" and an
// IEC "i" are optional.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	num, unit := s, ""
	if split >= 0 {
		num, unit = s[:split], strings.TrimSpace(s[split:])
	}
	if num == "" {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number: %w", err)
	}

	exp, err := unitExponent(unit)
	if err != nil {
		return 0, err
	}

	for range exp {
		value *= 1024
	}
	return int64(value), nil
}

func unitExponent(unit string) (int, error) {
	u := strings.ToUpper(unit)
	u = strings.TrimSuffix(u, "B")
	u = strings.TrimSuffix(u, "I")

	if u == "" {
		return 0, nil
	}
	for i, candidate := range units[1:] {
		if u == candidate[:1] {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unknown byte size unit: %q", unit)
}
