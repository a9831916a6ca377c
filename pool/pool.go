/*
Package pool manages company credit pools: the shared monthly budget a
company's representatives draw from when booking calls or unlocking
decision-maker contacts.

PURPOSE:
  Consume is the single mutation path for pool spend. It atomically checks
  three conditions - pool remaining, the per-rep limit for the kind, and
  the representative's suspension state - and applies the decrement, the
  used increment, and the per-rep usage counter bump as one unit.

CONCURRENCY:
  Pools are version-guarded. The manager validates against a snapshot and
  submits the mutation with the snapshot's version; the store rejects it
  with ErrConcurrentModification if another consumer got there first, and
  the manager re-reads and re-validates. Two racing consumers can therefore
  never both pass the remaining >= amount check and both deduct.

DENIALS ARE RESULTS:
  A refused consumption returns Receipt{OK: false, Reason: ...}, not an
  error. Reasons: INSUFFICIENT_POOL, REP_LIMIT_REACHED, REP_SUSPENDED.

SEE ALSO:
  - engine/pool.go:  Pool and Consumption types
  - trust/gate.go:   The suspension check Consume delegates to
*/
package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// consumeRetries bounds transparent retries on pool version conflicts.
const consumeRetries = 3

// =============================================================================
// SUSPENSION CHECK - Delegated to the access gate
// =============================================================================

// SuspensionChecker answers whether a representative is restricted as of a
// point in time, applying the read-time expiry rule. Implemented by
// trust.Gate.
type SuspensionChecker interface {
	ActiveSuspension(ctx context.Context, rep engine.RepID, asOf time.Time) (*engine.SuspensionRecord, error)
}

// =============================================================================
// RECEIPT - Structured consumption outcome
// =============================================================================

// Receipt reports a consumption outcome. Remaining reflects the pool after
// a successful consume, or at denial time otherwise.
type Receipt struct {
	OK        bool
	Reason    engine.DenyReason // set when OK is false
	Remaining int64
}

// Summary is the dashboard-facing view of a pool.
type Summary struct {
	CompanyDomain engine.CompanyDomain
	Allowance     int64
	Used          int64
	Remaining     int64
	Limits        engine.PerRepLimits
	Period        engine.Period
	PeriodStart   time.Time
	PeriodEnd     time.Time
}

// =============================================================================
// POOL MANAGER
// =============================================================================

// Manager owns all pool mutations.
type Manager struct {
	Entities    engine.EntityStore
	Pools       engine.PoolStore
	Suspensions SuspensionChecker

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewManager creates a pool manager. The suspension checker may be nil
// (consumption then skips the suspension condition; used by some tests).
func NewManager(entities engine.EntityStore, pools engine.PoolStore, suspensions SuspensionChecker) *Manager {
	return &Manager{Entities: entities, Pools: pools, Suspensions: suspensions, Now: time.Now}
}

// Consume draws amount from the company pool on behalf of a representative.
//
// All three conditions are checked against a consistent snapshot and the
// mutation is applied atomically; on a version conflict the whole cycle is
// retried. No mutation occurs on denial.
func (m *Manager) Consume(ctx context.Context, domain engine.CompanyDomain, repID engine.RepID, kind engine.ConsumeKind, amount int) (Receipt, error) {
	if amount <= 0 {
		return Receipt{}, fmt.Errorf("%w: got %d", engine.ErrInvalidAmount, amount)
	}
	if kind != engine.ConsumeCallBooked && kind != engine.ConsumeDMUnlocked {
		return Receipt{}, fmt.Errorf("%w: unknown consumption kind %q", engine.ErrInvalidKind, kind)
	}

	rep, err := m.Entities.GetRepresentative(ctx, repID)
	if err != nil {
		return Receipt{}, err
	}
	if rep == nil || !rep.Active {
		return Receipt{}, fmt.Errorf("%w: %s", engine.ErrRepresentativeNotFound, repID)
	}

	now := m.Now().UTC()

	for attempt := 0; attempt < consumeRetries; attempt++ {
		pool, err := m.Pools.GetPool(ctx, domain)
		if err != nil {
			return Receipt{}, err
		}
		if pool == nil {
			return Receipt{}, fmt.Errorf("%w: %s", engine.ErrCompanyNotFound, domain)
		}

		// Condition 3: no active suspension (read-time expiry applied).
		if m.Suspensions != nil {
			s, err := m.Suspensions.ActiveSuspension(ctx, repID, now)
			if err != nil {
				return Receipt{}, err
			}
			if s != nil {
				return Receipt{Reason: engine.DenyRepSuspended, Remaining: pool.Remaining.IntPart()}, nil
			}
		}

		// Condition 2: per-rep limit for this kind, if configured.
		if limit := pool.Limits.Limit(kind); limit != nil {
			used, err := m.Pools.UsageFor(ctx, domain, repID, pool.Period, kind)
			if err != nil {
				return Receipt{}, err
			}
			if used+amount > *limit {
				return Receipt{Reason: engine.DenyRepLimitReached, Remaining: pool.Remaining.IntPart()}, nil
			}
		}

		// Condition 1: pool has enough remaining.
		amt := decimal.NewFromInt(int64(amount))
		if pool.Remaining.LessThan(amt) {
			return Receipt{Reason: engine.DenyInsufficientPool, Remaining: pool.Remaining.IntPart()}, nil
		}

		c := engine.Consumption{
			CompanyDomain:   domain,
			RepID:           repID,
			Period:          pool.Period,
			Kind:            kind,
			Amount:          amount,
			NewUsed:         pool.Used.Add(amt),
			NewRemaining:    pool.Remaining.Sub(amt),
			ExpectedVersion: pool.Version,
		}

		err = m.Pools.ApplyConsumption(ctx, c)
		if err == nil {
			return Receipt{OK: true, Remaining: c.NewRemaining.IntPart()}, nil
		}
		if engine.IsRetryable(err) {
			continue
		}
		return Receipt{}, err
	}

	return Receipt{}, fmt.Errorf("consume %s for %s: %w", kind, repID, engine.ErrRetriesExhausted)
}

// ResetPeriod rolls the pool into the current calendar month: used goes to
// zero, remaining is restored to the allowance, per-rep usage counters are
// cleared, and the period advances.
//
// Idempotent per calendar month: a pool already in the current period is
// left untouched.
func (m *Manager) ResetPeriod(ctx context.Context, domain engine.CompanyDomain) (Summary, error) {
	target := engine.PeriodOf(m.Now())

	for attempt := 0; attempt < consumeRetries; attempt++ {
		pool, err := m.Pools.GetPool(ctx, domain)
		if err != nil {
			return Summary{}, err
		}
		if pool == nil {
			return Summary{}, fmt.Errorf("%w: %s", engine.ErrCompanyNotFound, domain)
		}
		if pool.Period == target {
			// Already rolled this month; no-op.
			return summarize(*pool), nil
		}

		err = m.Pools.ResetPool(ctx, domain, target, pool.Version)
		if err == nil {
			pool.Used = decimal.Zero
			pool.Remaining = pool.Allowance
			pool.Period = target
			return summarize(*pool), nil
		}
		if engine.IsRetryable(err) {
			continue
		}
		return Summary{}, err
	}

	return Summary{}, fmt.Errorf("reset pool %s: %w", domain, engine.ErrRetriesExhausted)
}

// Summary returns the dashboard view of the pool.
func (m *Manager) Summary(ctx context.Context, domain engine.CompanyDomain) (Summary, error) {
	pool, err := m.Pools.GetPool(ctx, domain)
	if err != nil {
		return Summary{}, err
	}
	if pool == nil {
		return Summary{}, fmt.Errorf("%w: %s", engine.ErrCompanyNotFound, domain)
	}
	return summarize(*pool), nil
}

// AdjustAllowance administratively changes the monthly allowance, keeping
// used intact and recomputing remaining. An allowance below the amount
// already used is clamped up to it so that used + remaining == allowance
// and remaining >= 0 both survive the adjustment.
func (m *Manager) AdjustAllowance(ctx context.Context, domain engine.CompanyDomain, allowance int) (Summary, error) {
	if allowance < 0 {
		return Summary{}, fmt.Errorf("%w: got %d", engine.ErrInvalidAmount, allowance)
	}

	for attempt := 0; attempt < consumeRetries; attempt++ {
		pool, err := m.Pools.GetPool(ctx, domain)
		if err != nil {
			return Summary{}, err
		}
		if pool == nil {
			return Summary{}, fmt.Errorf("%w: %s", engine.ErrCompanyNotFound, domain)
		}

		newAllowance := decimal.NewFromInt(int64(allowance))
		if newAllowance.LessThan(pool.Used) {
			newAllowance = pool.Used
		}

		updated := *pool
		updated.Allowance = newAllowance
		updated.Remaining = newAllowance.Sub(pool.Used)

		err = m.Pools.UpdatePool(ctx, updated, pool.Version)
		if err == nil {
			return summarize(updated), nil
		}
		if engine.IsRetryable(err) {
			continue
		}
		return Summary{}, err
	}

	return Summary{}, fmt.Errorf("adjust pool %s: %w", domain, engine.ErrRetriesExhausted)
}

// CheckInvariant verifies used + remaining == allowance and remaining >= 0.
// Used by tests and the admin surface; a failure indicates store corruption.
func CheckInvariant(p engine.CompanyCreditPool) error {
	if !p.Used.Add(p.Remaining).Equal(p.Allowance) {
		return fmt.Errorf("pool %s: used %s + remaining %s != allowance %s",
			p.CompanyDomain, p.Used, p.Remaining, p.Allowance)
	}
	if p.Remaining.IsNegative() {
		return fmt.Errorf("pool %s: remaining %s is negative", p.CompanyDomain, p.Remaining)
	}
	return nil
}

func summarize(p engine.CompanyCreditPool) Summary {
	return Summary{
		CompanyDomain: p.CompanyDomain,
		Allowance:     p.Allowance.IntPart(),
		Used:          p.Used.IntPart(),
		Remaining:     p.Remaining.IntPart(),
		Limits:        p.Limits,
		Period:        p.Period,
		PeriodStart:   p.Period.Start(),
		PeriodEnd:     p.Period.End(),
	}
}
