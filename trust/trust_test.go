package trust_test

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
	"github.com/techizeBuilder/Decision-Maker-sub003/trust"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	mem        *store.Memory
	aggregator *trust.Aggregator
	escalator  *trust.Escalator
	gate       *trust.Gate
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveRepresentative(ctx, engine.Representative{
		ID: "rep-1", CompanyDomain: "acme.com", Standing: engine.StandingGood, Active: true,
	}))
	require.NoError(t, mem.SaveRepresentative(ctx, engine.Representative{
		ID: "rep-2", CompanyDomain: "acme.com", Standing: engine.StandingGood, Active: true,
	}))
	require.NoError(t, mem.SaveDecisionMaker(ctx, engine.DecisionMaker{
		ID: "dm-1", Active: true,
	}))

	f := &fixture{mem: mem, now: time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)}
	f.escalator = trust.NewEscalator(mem, mem)
	f.aggregator = trust.NewAggregator(mem, mem, f.escalator)
	f.aggregator.Now = func() time.Time { return f.now }
	f.gate = trust.NewGate(mem, mem, mem)
	f.gate.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) record(t *testing.T, severity engine.Severity) *engine.FlagRecord {
	t.Helper()
	flag, err := f.aggregator.RecordFlag(context.Background(), "rep-1", "dm-1", "unprofessional_conduct", severity, "")
	require.NoError(t, err)
	return flag
}

func (f *fixture) score(t *testing.T) int {
	t.Helper()
	score, err := f.aggregator.TrailingSeverityScore(context.Background(), "rep-1", f.aggregator.Window, f.now)
	require.NoError(t, err)
	return score
}

func (f *fixture) activeSuspension(t *testing.T) *engine.SuspensionRecord {
	t.Helper()
	s, err := f.mem.ActiveSuspension(context.Background(), "rep-1")
	require.NoError(t, err)
	return s
}

// =============================================================================
// SCORING TESTS
// =============================================================================

func TestTrailingSeverityScore_Weights(t *testing.T) {
	// GIVEN: One flag of each severity
	// WHEN: Scoring
	// THEN: 1 + 2 + 3 + 5 = 11

	f := newFixture(t)
	f.record(t, engine.SeverityLow)
	f.record(t, engine.SeverityMedium)
	f.record(t, engine.SeverityHigh)
	f.record(t, engine.SeverityCritical)

	assert.Equal(t, 11, f.score(t))
}

func TestTrailingSeverityScore_ExcludesResolvedAndDismissed(t *testing.T) {
	// GIVEN: Two high flags, one resolved and one dismissed
	// WHEN: Scoring
	// THEN: Neither counts; resolving lowers the score on the next read

	f := newFixture(t)
	a := f.record(t, engine.SeverityHigh)
	b := f.record(t, engine.SeverityHigh)
	require.Equal(t, 6, f.score(t))

	require.NoError(t, f.aggregator.ResolveFlag(context.Background(), a.ID, engine.FlagResolved))
	require.NoError(t, f.aggregator.ResolveFlag(context.Background(), b.ID, engine.FlagDismissed))

	assert.Equal(t, 0, f.score(t))
}

func TestTrailingSeverityScore_InvestigatingStillCounts(t *testing.T) {
	f := newFixture(t)
	a := f.record(t, engine.SeverityMedium)
	require.NoError(t, f.aggregator.ResolveFlag(context.Background(), a.ID, engine.FlagInvestigating))

	assert.Equal(t, 2, f.score(t))
}

func TestTrailingSeverityScore_WindowExcludesOldFlags(t *testing.T) {
	// GIVEN: A critical flag raised 31 days ago and a low flag today
	// WHEN: Scoring over the trailing 30 days
	// THEN: Only the low flag contributes

	f := newFixture(t)
	f.record(t, engine.SeverityCritical)

	f.now = f.now.Add(31 * 24 * time.Hour)
	f.record(t, engine.SeverityLow)

	assert.Equal(t, 1, f.score(t))
}

func TestRecordFlag_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.aggregator.RecordFlag(ctx, "rep-1", "dm-1", "spam", engine.Severity("EXTREME"), "")
	assert.True(t, errors.Is(err, engine.ErrInvalidKind))

	_, err = f.aggregator.RecordFlag(ctx, "rep-missing", "dm-1", "spam", engine.SeverityLow, "")
	assert.True(t, errors.Is(err, engine.ErrRepresentativeNotFound))

	_, err = f.aggregator.RecordFlag(ctx, "rep-1", "ghost", "spam", engine.SeverityLow, "")
	assert.True(t, errors.Is(err, engine.ErrReporterNotFound))

	// Either side of the marketplace may report.
	_, err = f.aggregator.RecordFlag(ctx, "rep-1", "rep-2", "spam", engine.SeverityLow, "")
	assert.NoError(t, err)
}

func TestResolveFlag_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.aggregator.ResolveFlag(ctx, "no-such-flag", engine.FlagResolved)
	assert.True(t, errors.Is(err, engine.ErrFlagNotFound))

	flag := f.record(t, engine.SeverityLow)
	err = f.aggregator.ResolveFlag(ctx, flag.ID, engine.FlagStatus("SHREDDED"))
	assert.True(t, errors.Is(err, engine.ErrInvalidKind))
}

// =============================================================================
// ESCALATION TESTS
// =============================================================================

func TestEscalation_BelowShortThreshold_NoSuspension(t *testing.T) {
	// GIVEN: Score 5 (one critical)
	// THEN: No suspension, standing stays good

	f := newFixture(t)
	f.record(t, engine.SeverityCritical)
	require.Equal(t, 5, f.score(t))

	assert.Nil(t, f.activeSuspension(t))

	rep, err := f.mem.GetRepresentative(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StandingGood, rep.Standing)
}

func TestEscalation_ShortThresholdInclusive(t *testing.T) {
	// GIVEN: Score reaching exactly 6
	// THEN: A SHORT suspension covering 7 days from the triggering flag

	f := newFixture(t)
	f.record(t, engine.SeverityCritical)
	f.record(t, engine.SeverityLow)

	s := f.activeSuspension(t)
	require.NotNil(t, s)
	assert.Equal(t, engine.SuspensionShort, s.Type)
	assert.Equal(t, f.now, s.StartAt)
	assert.Equal(t, f.now.Add(7*24*time.Hour), s.EndAt)

	rep, err := f.mem.GetRepresentative(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StandingSuspended, rep.Standing)
}

func TestEscalation_ShortDoesNotStack(t *testing.T) {
	// GIVEN: An active SHORT suspension
	// WHEN: Another flag lands but the score stays below the LONG threshold
	// THEN: The existing suspension is untouched

	f := newFixture(t)
	f.record(t, engine.SeverityHigh)
	f.record(t, engine.SeverityHigh)
	first := f.activeSuspension(t)
	require.NotNil(t, first)

	f.record(t, engine.SeverityLow) // score 7
	after := f.activeSuspension(t)
	require.NotNil(t, after)
	assert.Equal(t, first.ID, after.ID)
	assert.Equal(t, engine.SuspensionShort, after.Type)
}

func TestEscalation_ShortReplacedByLong(t *testing.T) {
	// GIVEN: An active SHORT suspension
	// WHEN: The score reaches 12
	// THEN: The SHORT row is deactivated and a 90-day LONG row replaces it,
	//       leaving exactly one active record

	f := newFixture(t)
	f.record(t, engine.SeverityHigh)
	f.record(t, engine.SeverityHigh)
	short := f.activeSuspension(t)
	require.NotNil(t, short)
	require.Equal(t, engine.SuspensionShort, short.Type)

	f.record(t, engine.SeverityHigh)
	f.record(t, engine.SeverityHigh) // score 12

	long := f.activeSuspension(t)
	require.NotNil(t, long)
	assert.Equal(t, engine.SuspensionLong, long.Type)
	assert.Equal(t, f.now.Add(90*24*time.Hour), long.EndAt)
	assert.NotEqual(t, short.ID, long.ID)

	history, err := f.escalator.History(context.Background(), "rep-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	activeCount := 0
	for _, s := range history {
		if s.Active {
			activeCount++
		}
		if s.ID == short.ID {
			assert.False(t, s.Active, "superseded SHORT row must be deactivated")
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestEscalation_LongIsTerminalTier(t *testing.T) {
	// GIVEN: An active LONG suspension
	// WHEN: More flags push the score even higher
	// THEN: No new record; the LONG row stands

	f := newFixture(t)
	f.record(t, engine.SeverityCritical)
	f.record(t, engine.SeverityCritical)
	f.record(t, engine.SeverityCritical) // score 15
	long := f.activeSuspension(t)
	require.NotNil(t, long)
	require.Equal(t, engine.SuspensionLong, long.Type)

	f.record(t, engine.SeverityCritical)
	after := f.activeSuspension(t)
	require.NotNil(t, after)
	assert.Equal(t, long.ID, after.ID)
}

func TestEscalation_DirectToLong(t *testing.T) {
	// GIVEN: No prior suspension
	// WHEN: A burst of flags crosses 12 in one evaluation
	// THEN: LONG is created without passing through SHORT

	f := newFixture(t)
	suspension, err := f.escalator.Escalate(context.Background(), "rep-1", 12, f.now)
	require.NoError(t, err)
	require.NotNil(t, suspension)
	assert.Equal(t, engine.SuspensionLong, suspension.Type)
}

func TestEscalation_ExpiredRowOpportunisticallyDeactivated(t *testing.T) {
	// GIVEN: A SHORT suspension whose 7-day window lapsed
	// WHEN: The next escalation evaluation runs
	// THEN: The stale row is deactivated, standing restored, and the current
	//       score decides fresh

	f := newFixture(t)
	f.record(t, engine.SeverityHigh)
	f.record(t, engine.SeverityHigh)
	stale := f.activeSuspension(t)
	require.NotNil(t, stale)

	f.now = f.now.Add(8 * 24 * time.Hour)

	suspension, err := f.escalator.Escalate(context.Background(), "rep-1", 0, f.now)
	require.NoError(t, err)
	assert.Nil(t, suspension)
	assert.Nil(t, f.activeSuspension(t))

	rep, err := f.mem.GetRepresentative(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StandingGood, rep.Standing)
}

func TestEscalation_ConcurrentFlags_SingleActiveRow(t *testing.T) {
	// GIVEN: Ten reporters flagging the same representative at once
	// WHEN: All escalation evaluations race
	// THEN: Exactly one active suspension row survives, and the last
	//       evaluation sees the full score, so it is at the LONG tier

	f := newFixture(t)
	const reporters = 10

	var wg sync.WaitGroup
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.aggregator.RecordFlag(context.Background(), "rep-1", "dm-1",
				"unprofessional_conduct", engine.SeverityHigh, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := f.escalator.History(context.Background(), "rep-1")
	require.NoError(t, err)
	activeCount := 0
	for _, s := range history {
		if s.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	s := f.activeSuspension(t)
	require.NotNil(t, s)
	assert.Equal(t, engine.SuspensionLong, s.Type)

	rep, err := f.mem.GetRepresentative(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StandingSuspended, rep.Standing)
}

func TestLift_TerminalAndSingleShot(t *testing.T) {
	// GIVEN: An active suspension
	// WHEN: Lifted administratively
	// THEN: The record is deactivated for good; a second lift finds nothing

	f := newFixture(t)
	f.record(t, engine.SeverityHigh)
	f.record(t, engine.SeverityHigh)

	lifted, err := f.escalator.Lift(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.False(t, lifted.Active)
	assert.Nil(t, f.activeSuspension(t))

	rep, err := f.mem.GetRepresentative(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StandingGood, rep.Standing)

	_, err = f.escalator.Lift(context.Background(), "rep-1")
	assert.True(t, errors.Is(err, engine.ErrSuspensionNotFound))
}

func TestLift_FreshViolationCreatesNewRecord(t *testing.T) {
	// GIVEN: A lifted suspension
	// WHEN: Another flag keeps the score above the threshold
	// THEN: A brand-new record appears; the lifted one stays dead

	f := newFixture(t)
	f.record(t, engine.SeverityHigh)
	f.record(t, engine.SeverityHigh)

	lifted, err := f.escalator.Lift(context.Background(), "rep-1")
	require.NoError(t, err)

	f.record(t, engine.SeverityLow) // score 7, no active row left
	fresh := f.activeSuspension(t)
	require.NotNil(t, fresh)
	assert.NotEqual(t, lifted.ID, fresh.ID)

	history, err := f.escalator.History(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

// =============================================================================
// ACCESS GATE TESTS
// =============================================================================

func savePool(t *testing.T, f *fixture, remaining int64) {
	t.Helper()
	require.NoError(t, f.mem.SavePool(context.Background(), engine.CompanyCreditPool{
		CompanyDomain: "acme.com",
		Allowance:     decimal.NewFromInt(100),
		Used:          decimal.NewFromInt(100 - remaining),
		Remaining:     decimal.NewFromInt(remaining),
		Period:        engine.PeriodOf(f.now),
		CreatedAt:     f.now,
		UpdatedAt:     f.now,
	}))
}

func TestCanAct_Allowed(t *testing.T) {
	f := newFixture(t)
	savePool(t, f, 50)

	d, err := f.gate.CanAct(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCanAct_SuspendedRep_Denied(t *testing.T) {
	f := newFixture(t)
	savePool(t, f, 50)
	f.record(t, engine.SeverityHigh)
	f.record(t, engine.SeverityHigh)

	d, err := f.gate.CanAct(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, engine.DenyRepSuspended, d.Reason)
}

func TestCanAct_ExpiredSuspension_AllowedWithoutMutation(t *testing.T) {
	// GIVEN: A SHORT suspension row that is still active but 8 days old
	// WHEN: CanAct runs
	// THEN: Allowed, and the row is untouched in storage (pure read)

	f := newFixture(t)
	savePool(t, f, 50)
	f.record(t, engine.SeverityHigh)
	f.record(t, engine.SeverityHigh)

	f.now = f.now.Add(8 * 24 * time.Hour)
	savePool(t, f, 50) // keep the pool in the current period

	d, err := f.gate.CanAct(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	s := f.activeSuspension(t)
	require.NotNil(t, s, "the gate must not deactivate the row itself")
	assert.True(t, s.Active)
}

func TestCanAct_PoolExhausted_Denied(t *testing.T) {
	f := newFixture(t)
	savePool(t, f, 0)

	d, err := f.gate.CanAct(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, engine.DenyPoolExhausted, d.Reason)
}

func TestCanAct_LapsedEmptyPool_Allowed(t *testing.T) {
	// GIVEN: An empty pool whose period is last month (pending rollover)
	// WHEN: CanAct runs
	// THEN: Allowed; a lapsed pool is not "exhausted"

	f := newFixture(t)
	savePool(t, f, 0)
	f.now = f.now.Add(31 * 24 * time.Hour)

	d, err := f.gate.CanAct(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCanAct_NoPool_Allowed(t *testing.T) {
	f := newFixture(t)

	d, err := f.gate.CanAct(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCanAct_UnknownRep_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.gate.CanAct(context.Background(), "rep-missing")
	assert.True(t, errors.Is(err, engine.ErrRepresentativeNotFound))
}
