package bcnn

import (
	"fmt"
	"strconv"
	"strings"
)

// formatReading renders a value the way the portal's input mask
// expects it: zero-padded to intDigits integer digits plus fracDigits
// fractional ones, so 6.5 with widths (5,2) comes out as "00006.50".
func formatReading(value float64, intDigits, fracDigits int) string {
	width := intDigits + fracDigits + 1
	return fmt.Sprintf("%0*.*f", width, fracDigits, value)
}

// parseReading tolerates the decimal comma and thousands spaces the
// portal renders into table cells
func parseReading(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
