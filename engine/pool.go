/*
pool.go - Company credit pool and consumption records

PURPOSE:
  One CompanyCreditPool exists per company domain: a monthly budget of
  consumable credits for call bookings and decision-maker unlocks, distinct
  from the referral credit ledger.

CRITICAL INVARIANTS:
  1. used + remaining == allowance at all times
  2. remaining >= 0 - concurrent consumption must never drive it negative
  3. Consumption mutates pool counters and the per-rep usage counter as one
     atomic unit; partial application is not permitted

CONCURRENCY:
  Pools carry a Version for optimistic concurrency. Stores reject a write
  whose expected version no longer matches with ErrConcurrentModification;
  the pool manager retries the full check-and-apply cycle.

SEE ALSO:
  - pool/pool.go: Consumption manager (the only mutator)
  - store.go:     PoolStore contract
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONSUMPTION KINDS
// =============================================================================

// ConsumeKind identifies what a pool decrement paid for.
type ConsumeKind string

const (
	ConsumeCallBooked ConsumeKind = "CALL_BOOKED"
	ConsumeDMUnlocked ConsumeKind = "DM_UNLOCKED"
)

// =============================================================================
// COMPANY CREDIT POOL
// =============================================================================

// PerRepLimits caps what a single representative may consume per period.
// nil means unbounded for that kind.
type PerRepLimits struct {
	MaxCallsPerMonth   *int
	MaxUnlocksPerMonth *int
}

// Limit returns the configured cap for a kind, or nil if unbounded.
func (l PerRepLimits) Limit(kind ConsumeKind) *int {
	switch kind {
	case ConsumeCallBooked:
		return l.MaxCallsPerMonth
	case ConsumeDMUnlocked:
		return l.MaxUnlocksPerMonth
	default:
		return nil
	}
}

// CompanyCreditPool is the monthly consumable budget for one company.
// Created at company onboarding; reset at period rollover; mutated
// transactionally by the pool manager.
type CompanyCreditPool struct {
	CompanyDomain CompanyDomain
	Allowance     decimal.Decimal
	Used          decimal.Decimal
	Remaining     decimal.Decimal
	Period        Period
	Limits        PerRepLimits
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// =============================================================================
// CONSUMPTION - Atomic pool mutation
// =============================================================================

// Consumption is the atomic unit a store applies when a representative
// consumes from a pool: pool counters move, the per-rep usage counter for
// the kind increments, and the pool version advances - all or nothing.
// NewUsed/NewRemaining are computed by the manager against the snapshot it
// validated; ExpectedVersion guards against lost updates.
type Consumption struct {
	CompanyDomain   CompanyDomain
	RepID           RepID
	Period          Period
	Kind            ConsumeKind
	Amount          int
	NewUsed         decimal.Decimal
	NewRemaining    decimal.Decimal
	ExpectedVersion int64
}
