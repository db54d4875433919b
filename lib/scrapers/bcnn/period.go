package bcnn

import (
	"strconv"
	"strings"
	"time"

	"bcnn-backend/lib/timezone"
)

var russianMonths = map[string]time.Month{
	"январь":   time.January,
	"февраль":  time.February,
	"март":     time.March,
	"апрель":   time.April,
	"май":      time.May,
	"июнь":     time.June,
	"июль":     time.July,
	"август":   time.August,
	"сентябрь": time.September,
	"октябрь":  time.October,
	"ноябрь":   time.November,
	"декабрь":  time.December,
}

// parsePeriod turns a period label like "Май 2024" into the start of
// that month. Anything that is not a period label (service names,
// money cells) resolves to today, which is what the period-column
// detection in the billing parser keys on.
func parsePeriod(label string, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, timezone.Location)

	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) != 2 {
		return today
	}
	month, ok := russianMonths[strings.ToLower(fields[0])]
	if !ok {
		return today
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil || year < 2000 || year > 2100 {
		return today
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, timezone.Location)
}
