// Package formatting provides human-readable formatting and parsing utilities
// for byte sizes.
package formatting

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// fileSizeUnits are the display units used by FormatFileSize.
var fileSizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// parseUnits are the base-1024 units accepted by ParseBytes, by exponent.
var parseUnits = []string{
	"B", "KB", "MB",
	"GB", "TB", "PB",
	"EB", "ZB", "YB",
}

var bytesPattern = regexp.MustCompile(`^(\d+\.?\d*)\s*([A-Za-z]*)$`)

// FormatFileSize renders a byte count with base-1024 units (Bytes, KB, MB, GB),
// rounded to two decimals with trailing zeros dropped: 1536 is "1.5 KB".
// Values past the GB range stay in GB. Non-positive counts render as "0 Bytes".
func FormatFileSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}

	size := float64(n)
	i := 0
	for size >= 1024 && i < len(fileSizeUnits)-1 {
		size /= 1024
		i++
	}

	size = math.Round(size*100) / 100
	return strconv.FormatFloat(size, 'f', -1, 64) + " " + fileSizeUnits[i]
}

// ParseBytes parses a human-readable byte size string (e.g., "50MB") into a byte count.
// Supports units B through YB (base-1024) and the "Bytes" spelling produced by
// FormatFileSize. A bare number with no unit is treated as bytes.
// Unit matching is case-insensitive and an optional space between number and unit is allowed.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	matches := bytesPattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number: %w", err)
	}

	unit := strings.ToUpper(matches[2])
	if unit == "" || unit == "BYTES" {
		return int64(value), nil
	}

	idx := slices.Index(parseUnits, unit)
	if idx == -1 {
		return 0, fmt.Errorf("unknown byte size unit: %q", unit)
	}

	return int64(value * math.Pow(1024, float64(idx))), nil
}
