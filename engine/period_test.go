package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// =============================================================================
// PERIOD TESTS
// =============================================================================

func TestPeriodOf_UsesUTC(t *testing.T) {
	// GIVEN: A local timestamp that is already the next month in UTC
	// WHEN: Deriving the period
	// THEN: The UTC month wins

	loc := time.FixedZone("UTC-8", -8*60*60)
	// 2025-03-31 20:00 UTC-8 is 2025-04-01 04:00 UTC
	local := time.Date(2025, time.March, 31, 20, 0, 0, 0, loc)

	p := engine.PeriodOf(local)
	assert.Equal(t, engine.Period{Year: 2025, Month: time.April}, p)
}

func TestParsePeriod_RoundTrip(t *testing.T) {
	p, err := engine.ParsePeriod("2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, p.Year)
	assert.Equal(t, time.March, p.Month)
	assert.Equal(t, "2025-03", p.String())
}

func TestParsePeriod_Malformed(t *testing.T) {
	for _, s := range []string{"", "2025", "2025-13", "March 2025", "2025-03-01"} {
		_, err := engine.ParsePeriod(s)
		assert.True(t, errors.Is(err, engine.ErrInvalidPeriod), "input %q", s)
	}
}

func TestPeriod_Bounds_HalfOpen(t *testing.T) {
	// GIVEN: The March 2025 period
	// THEN: Start is inclusive, End is the first instant of April (exclusive)

	p := engine.Period{Year: 2025, Month: time.March}

	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), p.End())

	assert.True(t, p.Contains(p.Start()))
	assert.True(t, p.Contains(p.End().Add(-time.Nanosecond)))
	assert.False(t, p.Contains(p.End()))
	assert.False(t, p.Contains(p.Start().Add(-time.Nanosecond)))
}

func TestPeriod_Next_YearBoundary(t *testing.T) {
	dec := engine.Period{Year: 2025, Month: time.December}
	jan := dec.Next()
	assert.Equal(t, engine.Period{Year: 2026, Month: time.January}, jan)
	assert.True(t, dec.Before(jan))
	assert.False(t, jan.Before(dec))
}

func TestPeriod_IsZero(t *testing.T) {
	assert.True(t, engine.Period{}.IsZero())
	assert.False(t, engine.Period{Year: 2025, Month: time.January}.IsZero())
}

// =============================================================================
// SUSPENSION RECORD TESTS
// =============================================================================

func TestSuspensionRecord_ExpiryRules(t *testing.T) {
	// GIVEN: An active 7-day suspension
	// THEN: It is in effect until EndAt, and expired from EndAt on

	start := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	rec := engine.SuspensionRecord{
		Type:    engine.SuspensionShort,
		StartAt: start,
		EndAt:   start.Add(7 * 24 * time.Hour),
		Active:  true,
	}

	assert.True(t, rec.InEffect(start))
	assert.True(t, rec.InEffect(start.Add(6*24*time.Hour)))
	assert.True(t, rec.InEffect(rec.EndAt)) // EndAt itself is still covered
	assert.False(t, rec.InEffect(start.Add(8*24*time.Hour)))

	assert.False(t, rec.ExpiredAt(start))
	assert.True(t, rec.ExpiredAt(rec.EndAt.Add(time.Second)))

	// A lifted record is never in effect, expired or not.
	rec.Active = false
	assert.False(t, rec.InEffect(start))
}

// =============================================================================
// ERROR HELPER TESTS
// =============================================================================

func TestErrorHelpers_Classification(t *testing.T) {
	assert.True(t, engine.IsNotFound(engine.ErrRepresentativeNotFound))
	assert.True(t, engine.IsNotFound(engine.ErrCompanyNotFound))
	assert.False(t, engine.IsNotFound(engine.ErrInvalidAmount))

	assert.True(t, engine.IsClientError(engine.ErrInvalidAmount))
	assert.True(t, engine.IsClientError(engine.ErrInvalidPeriod))
	assert.False(t, engine.IsClientError(engine.ErrRepresentativeNotFound))

	assert.True(t, engine.IsRetryable(engine.ErrConcurrentModification))
	assert.False(t, engine.IsRetryable(engine.ErrDuplicateCreditEntry))
}

func TestDuplicateEntryError_UnwrapsToSentinel(t *testing.T) {
	err := &engine.DuplicateEntryError{
		RepID:  "rep-1",
		DMID:   "dm-1",
		Period: engine.Period{Year: 2025, Month: time.March},
		Source: engine.SourceOnboarding,
	}
	assert.True(t, errors.Is(err, engine.ErrDuplicateCreditEntry))
	assert.Contains(t, err.Error(), "rep-1")
	assert.Contains(t, err.Error(), "2025-03")
}
