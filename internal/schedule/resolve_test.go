package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolveBefore(t *testing.T) {
	// earnings on Thursday, snapshot exists the day before
	available := DatesAvailability([]time.Time{day("2024-01-24")})

	res, ok := Resolve(day("2024-01-25"), Before, 2, available)
	require.True(t, ok)
	assert.Equal(t, "2024-01-24", res.Date.Format("2006-01-02"))
	assert.Equal(t, 1, res.DriftDays)
}

func TestResolveAfter(t *testing.T) {
	available := DatesAvailability([]time.Time{day("2024-01-26")})

	res, ok := Resolve(day("2024-01-25"), After, 2, available)
	require.True(t, ok)
	assert.Equal(t, "2024-01-26", res.Date.Format("2006-01-02"))
	assert.Equal(t, 1, res.DriftDays)
}

func TestResolveDriftToToleranceEdge(t *testing.T) {
	// nothing on the 24th; the 23rd is exactly at the edge of a 2-day budget
	available := DatesAvailability([]time.Time{day("2024-01-23")})

	res, ok := Resolve(day("2024-01-25"), Before, 2, available)
	require.True(t, ok)
	assert.Equal(t, "2024-01-23", res.Date.Format("2006-01-02"))
	assert.Equal(t, 2, res.DriftDays)

	// a 1-day budget cannot reach it
	_, ok = Resolve(day("2024-01-25"), Before, 1, available)
	assert.False(t, ok)
}

func TestResolveBeyondTolerance(t *testing.T) {
	available := DatesAvailability([]time.Time{day("2024-01-22")})

	_, ok := Resolve(day("2024-01-25"), Before, 2, available)
	assert.False(t, ok, "3 days of drift must not resolve under a 2-day budget")
}

func TestResolveNeverReturnsTarget(t *testing.T) {
	// only the target date itself is available; it must not count
	available := DatesAvailability([]time.Time{day("2024-01-25")})

	_, ok := Resolve(day("2024-01-25"), Before, 2, available)
	assert.False(t, ok)
	_, ok = Resolve(day("2024-01-25"), After, 2, available)
	assert.False(t, ok)
}

func TestResolvePrefersNearestDate(t *testing.T) {
	available := DatesAvailability([]time.Time{day("2024-01-23"), day("2024-01-24")})

	res, ok := Resolve(day("2024-01-25"), Before, 2, available)
	require.True(t, ok)
	assert.Equal(t, 1, res.DriftDays, "the walk stops at the first hit")
}

func TestValidateTolerance(t *testing.T) {
	assert.NoError(t, ValidateTolerance(1))
	assert.NoError(t, ValidateTolerance(5))
	assert.Error(t, ValidateTolerance(0))
	assert.Error(t, ValidateTolerance(-1))
}
