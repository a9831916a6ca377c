package pool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
	"github.com/techizeBuilder/Decision-Maker-sub003/engine/store"
	"github.com/techizeBuilder/Decision-Maker-sub003/pool"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testDomain = engine.CompanyDomain("acme.com")

// fixedChecker reports a canned suspension state.
type fixedChecker struct {
	record *engine.SuspensionRecord
}

func (f *fixedChecker) ActiveSuspension(context.Context, engine.RepID, time.Time) (*engine.SuspensionRecord, error) {
	return f.record, nil
}

func newTestManager(t *testing.T, allowance int64, limits engine.PerRepLimits) (*pool.Manager, *store.Memory) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveRepresentative(ctx, engine.Representative{
		ID: "rep-1", CompanyDomain: testDomain, Standing: engine.StandingGood, Active: true,
	}))

	now := time.Now().UTC()
	require.NoError(t, mem.SavePool(ctx, engine.CompanyCreditPool{
		CompanyDomain: testDomain,
		Allowance:     decimal.NewFromInt(allowance),
		Used:          decimal.Zero,
		Remaining:     decimal.NewFromInt(allowance),
		Period:        engine.PeriodOf(now),
		Limits:        limits,
		CreatedAt:     now,
		UpdatedAt:     now,
	}))

	return pool.NewManager(mem, mem, nil), mem
}

func intPtr(v int) *int { return &v }

// =============================================================================
// CONSUMPTION TESTS
// =============================================================================

func TestConsume_Success_AppliesAllThreeMutations(t *testing.T) {
	// GIVEN: A pool with allowance 10
	// WHEN: Consuming 3 as CALL_BOOKED
	// THEN: used=3, remaining=7, and the rep's usage counter reflects 3

	mgr, mem := newTestManager(t, 10, engine.PerRepLimits{})
	ctx := context.Background()

	receipt, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 3)
	require.NoError(t, err)
	assert.True(t, receipt.OK)
	assert.Equal(t, int64(7), receipt.Remaining)

	p, err := mem.GetPool(ctx, testDomain)
	require.NoError(t, err)
	assert.True(t, p.Used.Equal(decimal.NewFromInt(3)))
	assert.True(t, p.Remaining.Equal(decimal.NewFromInt(7)))
	require.NoError(t, pool.CheckInvariant(*p))

	used, err := mem.UsageFor(ctx, testDomain, "rep-1", p.Period, engine.ConsumeCallBooked)
	require.NoError(t, err)
	assert.Equal(t, 3, used)
}

func TestConsume_InsufficientPool_DeniedWithoutMutation(t *testing.T) {
	// GIVEN: A pool with remaining 2
	// WHEN: Consuming 3
	// THEN: Denied INSUFFICIENT_POOL and nothing changed

	mgr, mem := newTestManager(t, 2, engine.PerRepLimits{})
	ctx := context.Background()

	receipt, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 3)
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, engine.DenyInsufficientPool, receipt.Reason)

	p, err := mem.GetPool(ctx, testDomain)
	require.NoError(t, err)
	assert.True(t, p.Used.IsZero(), "denial must not mutate the pool")
}

func TestConsume_PerRepLimit_Denied(t *testing.T) {
	// GIVEN: max 2 calls per month per rep
	// WHEN: The rep books a third call
	// THEN: Denied REP_LIMIT_REACHED; a different kind is still allowed

	mgr, _ := newTestManager(t, 100, engine.PerRepLimits{MaxCallsPerMonth: intPtr(2)})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		receipt, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 1)
		require.NoError(t, err)
		require.True(t, receipt.OK)
	}

	receipt, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 1)
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, engine.DenyRepLimitReached, receipt.Reason)

	// Unlocks have no limit configured here.
	receipt, err = mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeDMUnlocked, 1)
	require.NoError(t, err)
	assert.True(t, receipt.OK)
}

func TestConsume_SuspendedRep_Denied(t *testing.T) {
	// GIVEN: The rep carries an active suspension
	// WHEN: Consuming
	// THEN: Denied REP_SUSPENDED before any pool check

	mgr, _ := newTestManager(t, 100, engine.PerRepLimits{})
	now := time.Now().UTC()
	mgr.Suspensions = &fixedChecker{record: &engine.SuspensionRecord{
		ID: "s-1", RepID: "rep-1", Type: engine.SuspensionShort,
		StartAt: now.Add(-time.Hour), EndAt: now.Add(24 * time.Hour), Active: true,
	}}

	receipt, err := mgr.Consume(context.Background(), testDomain, "rep-1", engine.ConsumeCallBooked, 1)
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, engine.DenyRepSuspended, receipt.Reason)
}

func TestConsume_Validation(t *testing.T) {
	mgr, _ := newTestManager(t, 10, engine.PerRepLimits{})
	ctx := context.Background()

	_, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 0)
	assert.True(t, errors.Is(err, engine.ErrInvalidAmount))

	_, err = mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeKind("COFFEE"), 1)
	assert.True(t, errors.Is(err, engine.ErrInvalidKind))

	_, err = mgr.Consume(ctx, testDomain, "rep-missing", engine.ConsumeCallBooked, 1)
	assert.True(t, errors.Is(err, engine.ErrRepresentativeNotFound))

	_, err = mgr.Consume(ctx, "nobody.example", "rep-1", engine.ConsumeCallBooked, 1)
	assert.True(t, errors.Is(err, engine.ErrCompanyNotFound))
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestConsume_Concurrent_NeverOverdraws(t *testing.T) {
	// GIVEN: allowance=1000, used=0
	// WHEN: 1,001 concurrent Consume(amount=1) calls
	// THEN: Exactly 1,000 succeed, 1 is denied INSUFFICIENT_POOL, and the
	//       final pool holds remaining=0, used=1000
	//
	// Conflicts beyond the internal retry budget are retried here the way a
	// booking flow would retry a transient failure.

	mgr, mem := newTestManager(t, 1000, engine.PerRepLimits{})
	ctx := context.Background()

	const calls = 1001
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, denied := 0, 0

	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				receipt, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 1)
				if errors.Is(err, engine.ErrRetriesExhausted) {
					continue
				}
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				if receipt.OK {
					succeeded++
				} else {
					assert.Equal(t, engine.DenyInsufficientPool, receipt.Reason)
					denied++
				}
				mu.Unlock()
				return
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, succeeded)
	assert.Equal(t, 1, denied)

	p, err := mem.GetPool(ctx, testDomain)
	require.NoError(t, err)
	assert.True(t, p.Remaining.IsZero())
	assert.True(t, p.Used.Equal(decimal.NewFromInt(1000)))
	require.NoError(t, pool.CheckInvariant(*p))
}

// =============================================================================
// PERIOD ROLLOVER TESTS
// =============================================================================

func TestResetPeriod_RollsAndClearsUsage(t *testing.T) {
	// GIVEN: A pool consumed in a lapsed period
	// WHEN: ResetPeriod runs in the next month
	// THEN: used=0, remaining=allowance, period advanced, usage cleared

	mgr, mem := newTestManager(t, 10, engine.PerRepLimits{MaxCallsPerMonth: intPtr(5)})
	ctx := context.Background()

	receipt, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 4)
	require.NoError(t, err)
	require.True(t, receipt.OK)

	stale, err := mem.GetPool(ctx, testDomain)
	require.NoError(t, err)
	stalePeriod := stale.Period

	// Jump the clock into the next month.
	next := stalePeriod.Next()
	mgr.Now = func() time.Time { return next.Start().Add(time.Hour) }

	summary, err := mgr.ResetPeriod(ctx, testDomain)
	require.NoError(t, err)
	assert.Equal(t, next, summary.Period)
	assert.Equal(t, int64(0), summary.Used)
	assert.Equal(t, int64(10), summary.Remaining)

	used, err := mem.UsageFor(ctx, testDomain, "rep-1", stalePeriod, engine.ConsumeCallBooked)
	require.NoError(t, err)
	assert.Equal(t, 0, used, "usage counters must be cleared with the rollover")
}

func TestResetPeriod_IdempotentWithinMonth(t *testing.T) {
	// GIVEN: A pool already in the current period with consumption on it
	// WHEN: ResetPeriod runs again in the same month
	// THEN: No-op; the consumed amounts survive

	mgr, mem := newTestManager(t, 10, engine.PerRepLimits{})
	ctx := context.Background()

	receipt, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 4)
	require.NoError(t, err)
	require.True(t, receipt.OK)

	summary, err := mgr.ResetPeriod(ctx, testDomain)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Used, "same-month reset must not zero the pool")

	p, err := mem.GetPool(ctx, testDomain)
	require.NoError(t, err)
	assert.True(t, p.Used.Equal(decimal.NewFromInt(4)))
}

func TestResetPeriod_UnknownCompany_NotFound(t *testing.T) {
	mgr, _ := newTestManager(t, 10, engine.PerRepLimits{})
	_, err := mgr.ResetPeriod(context.Background(), "nobody.example")
	assert.True(t, errors.Is(err, engine.ErrCompanyNotFound))
}

// =============================================================================
// ALLOWANCE ADJUSTMENT TESTS
// =============================================================================

func TestAdjustAllowance_RecomputesRemaining(t *testing.T) {
	// GIVEN: allowance=10, used=4
	// WHEN: Allowance is raised to 20
	// THEN: remaining=16, used untouched

	mgr, mem := newTestManager(t, 10, engine.PerRepLimits{})
	ctx := context.Background()

	receipt, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 4)
	require.NoError(t, err)
	require.True(t, receipt.OK)

	summary, err := mgr.AdjustAllowance(ctx, testDomain, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(20), summary.Allowance)
	assert.Equal(t, int64(4), summary.Used)
	assert.Equal(t, int64(16), summary.Remaining)

	p, err := mem.GetPool(ctx, testDomain)
	require.NoError(t, err)
	require.NoError(t, pool.CheckInvariant(*p))
}

func TestAdjustAllowance_BelowUsed_ClampedToUsed(t *testing.T) {
	// GIVEN: used=4
	// WHEN: Allowance is dropped to 2
	// THEN: Clamped to 4 so remaining never goes negative

	mgr, mem := newTestManager(t, 10, engine.PerRepLimits{})
	ctx := context.Background()

	receipt, err := mgr.Consume(ctx, testDomain, "rep-1", engine.ConsumeCallBooked, 4)
	require.NoError(t, err)
	require.True(t, receipt.OK)

	summary, err := mgr.AdjustAllowance(ctx, testDomain, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Allowance)
	assert.Equal(t, int64(0), summary.Remaining)

	p, err := mem.GetPool(ctx, testDomain)
	require.NoError(t, err)
	require.NoError(t, pool.CheckInvariant(*p))
}
