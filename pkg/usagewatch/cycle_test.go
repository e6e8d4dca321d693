package usagewatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeResetInfo_PlainMonth(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 28, 9, 0, 0, 0, time.UTC)

	info := computeResetInfo(start, now)

	assert.Equal(t, time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), info.ResetDate)
	// 12 days and 15 hours left rounds up to 13.
	assert.Equal(t, 13, info.DaysRemaining)
}

func TestComputeResetInfo_ExactDayBoundary(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)

	info := computeResetInfo(start, now)
	assert.Equal(t, 7, info.DaysRemaining)
}

func TestComputeResetInfo_MonthEndClamp(t *testing.T) {
	// Jan 31 has no counterpart in February.
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	info := computeResetInfo(start, now)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), info.ResetDate)
}

func TestComputeResetInfo_MonthEndClampLeapYear(t *testing.T) {
	start := time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC)
	now := time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC)

	info := computeResetInfo(start, now)
	assert.Equal(t, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), info.ResetDate)
}

func TestComputeResetInfo_ClockSkewClampedForDisplay(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	// Local clock runs ahead of the upstream cycle.
	now := time.Date(2026, 4, 11, 2, 0, 0, 0, time.UTC)

	info := computeResetInfo(start, now)
	assert.Negative(t, info.DaysRemaining)
	assert.Equal(t, 0, info.DisplayDaysRemaining())
}
