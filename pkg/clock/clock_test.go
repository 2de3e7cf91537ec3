package clock_test

import (
	"testing"
	"time"

	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := clock.ParseDate("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = clock.ParseDate("01/03/2025")
	assert.Error(t, err)

	_, err = clock.ParseDate("2025-02-30")
	assert.Error(t, err)
}

func TestToday_UsesClockLocation(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC; the calendar date follows the clock.
	loc := time.FixedZone("EST", -5*3600)
	c := clock.NewFixed(time.Date(2025, 3, 1, 23, 30, 0, 0, loc))

	assert.Equal(t, "2025-03-01", clock.FormatDate(clock.Today(c)))
}

func TestFixed_Advance(t *testing.T) {
	c := clock.NewFixedDate("2025-03-01")
	c.Advance(24 * time.Hour)
	assert.Equal(t, "2025-03-02", clock.FormatDate(clock.Today(c)))
}

func TestDaysBetween(t *testing.T) {
	a, _ := clock.ParseDate("2025-03-01")
	b, _ := clock.ParseDate("2025-03-11")
	assert.Equal(t, 10, clock.DaysBetween(a, b))
	assert.Equal(t, -10, clock.DaysBetween(b, a))
}
