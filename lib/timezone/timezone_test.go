package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonthStart(t *testing.T) {
	cases := []struct {
		now      time.Time
		expected time.Time
	}{
		{
			now:      time.Date(2024, time.May, 22, 13, 45, 0, 0, Location),
			expected: time.Date(2024, time.May, 1, 0, 0, 0, 0, Location),
		},
		{
			now:      time.Date(2024, time.January, 1, 0, 0, 0, 0, Location),
			expected: time.Date(2024, time.January, 1, 0, 0, 0, 0, Location),
		},
		{
			now:      time.Date(2023, time.December, 31, 23, 59, 59, 0, Location),
			expected: time.Date(2023, time.December, 1, 0, 0, 0, 0, Location),
		},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, MonthStart(test.now))
	}
}
