package bcnn

import (
	"testing"
	"time"

	"bcnn-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	now := time.Date(2024, time.August, 15, 10, 30, 0, 0, timezone.Location)
	today := time.Date(2024, time.August, 15, 0, 0, 0, 0, timezone.Location)

	cases := []struct {
		label    string
		expected time.Time
	}{
		{"Май 2024", time.Date(2024, time.May, 1, 0, 0, 0, 0, timezone.Location)},
		{"  декабрь 2023 ", time.Date(2023, time.December, 1, 0, 0, 0, 0, timezone.Location)},
		{"Январь 2025", time.Date(2025, time.January, 1, 0, 0, 0, 0, timezone.Location)},
		// everything that isn't a period label resolves to today
		{"Холодное водоснабжение", today},
		{"1 234,56", today},
		{"", today},
		{"Май", today},
		{"Май 24", today},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, parsePeriod(test.label, now), "label %q", test.label)
	}
}
