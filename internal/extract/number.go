package extract

import (
	"strconv"
	"strings"
)

// ParseNumber parses a numeric export value, tolerating European formats:
// a comma as decimal separator and periods as thousands separators
// (e.g. "64.242.400" means 64242.400, "12,5" means 12.5).
//
// An empty value parses as 0.
func ParseNumber(val string) (float64, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}

	// More than one period means thousands separators: drop all but the
	// last, which is the decimal point.
	if strings.Count(val, ".") > 1 {
		i := strings.LastIndex(val, ".")
		val = strings.ReplaceAll(val[:i], ".", "") + val[i:]
	}
	val = strings.ReplaceAll(val, ",", ".")

	return strconv.ParseFloat(val, 64)
}
