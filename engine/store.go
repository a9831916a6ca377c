/*
store.go - Persistence interfaces for the engine

PURPOSE:
  Defines the contract between domain logic and the database. Concrete
  implementations live in store/sqlite (production) and engine/store
  (in-memory, for tests and dev).

WHERE THE INVARIANTS LIVE:
  - Award idempotency: AppendEntry MUST enforce tuple uniqueness itself
    (unique index or equivalent) and return ErrDuplicateCreditEntry on
    collision. A check-then-insert by the caller is not sufficient under
    concurrency.
  - Pool atomicity: ApplyConsumption applies the pool decrement, the used
    increment, and the per-rep usage increment as one unit, guarded by the
    pool version. ErrConcurrentModification on version mismatch.
  - Suspension single-active: ReplaceActiveSuspension deactivates the
    current active row and inserts the replacement in one transaction.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite with WAL and unique partial indexes
  - engine/store/memory.go: In-memory with a single mutex
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// ENTITY STORE - Representatives and decision-makers
// =============================================================================

// EntityStore persists the actors the engine references. Entities are
// created by external flows (signup, onboarding); this engine reads them
// and mutates only representative standing.
type EntityStore interface {
	SaveRepresentative(ctx context.Context, rep Representative) error
	// GetRepresentative returns (nil, nil) when the id is unknown.
	GetRepresentative(ctx context.Context, id RepID) (*Representative, error)

	SaveDecisionMaker(ctx context.Context, dm DecisionMaker) error
	// GetDecisionMaker returns (nil, nil) when the id is unknown.
	GetDecisionMaker(ctx context.Context, id DMID) (*DecisionMaker, error)
}

// =============================================================================
// CREDIT STORE - Append-only award ledger
// =============================================================================

// CreditStore persists credit ledger entries. Append-only: entries are
// never updated except for the Active flag (administrative reversal).
type CreditStore interface {
	// AppendEntry persists an entry. Returns ErrDuplicateCreditEntry if an
	// active entry already exists for (RepID, DMID, Period, Source).
	AppendEntry(ctx context.Context, e CreditLedgerEntry) error

	// ActiveEntry returns the active entry for the tuple, or (nil, nil).
	ActiveEntry(ctx context.Context, rep RepID, dm DMID, period Period, source SourceClass) (*CreditLedgerEntry, error)

	// EntriesByRep returns all entries for a representative, newest first.
	EntriesByRep(ctx context.Context, rep RepID) ([]CreditLedgerEntry, error)

	// DeactivateEntry soft-deactivates an entry (administrative reversal).
	// Returns ErrEntryNotFound if the id is unknown.
	DeactivateEntry(ctx context.Context, id EntryID) error
}

// =============================================================================
// POOL STORE - Versioned company pools and per-rep usage counters
// =============================================================================

// PoolStore persists company credit pools. All mutations besides the
// initial SavePool are version-guarded.
type PoolStore interface {
	// SavePool inserts or replaces a pool (company onboarding path).
	SavePool(ctx context.Context, p CompanyCreditPool) error

	// GetPool returns (nil, nil) when no pool exists for the domain.
	GetPool(ctx context.Context, domain CompanyDomain) (*CompanyCreditPool, error)

	// Pools returns every pool (rollover sweep).
	Pools(ctx context.Context) ([]CompanyCreditPool, error)

	// UpdatePool overwrites pool fields if the stored version still equals
	// expectedVersion, bumping the version. ErrConcurrentModification otherwise.
	UpdatePool(ctx context.Context, p CompanyCreditPool, expectedVersion int64) error

	// ApplyConsumption atomically applies c: pool Used/Remaining move to
	// c.NewUsed/c.NewRemaining, the per-rep usage counter for
	// (domain, rep, period, kind) grows by c.Amount, and the pool version
	// advances. ErrConcurrentModification if the version moved.
	ApplyConsumption(ctx context.Context, c Consumption) error

	// ResetPool atomically zeroes Used, restores Remaining to Allowance,
	// sets the pool period to target, clears the domain's usage counters,
	// and bumps the version. ErrConcurrentModification if the version moved.
	ResetPool(ctx context.Context, domain CompanyDomain, target Period, expectedVersion int64) error

	// UsageFor returns the representative's consumed amount for a kind in a
	// period. Zero when no counter exists.
	UsageFor(ctx context.Context, domain CompanyDomain, rep RepID, period Period, kind ConsumeKind) (int, error)
}

// =============================================================================
// FLAG STORE
// =============================================================================

// FlagStore persists behavioral complaints.
type FlagStore interface {
	AppendFlag(ctx context.Context, f FlagRecord) error

	// GetFlag returns (nil, nil) when the id is unknown.
	GetFlag(ctx context.Context, id FlagID) (*FlagRecord, error)

	// FlagsByTarget returns flags raised against a representative with
	// CreatedAt in [from, to], oldest first.
	FlagsByTarget(ctx context.Context, rep RepID, from, to time.Time) ([]FlagRecord, error)

	// UpdateFlagStatus moves a flag through its resolution lifecycle.
	// Returns ErrFlagNotFound if the id is unknown.
	UpdateFlagStatus(ctx context.Context, id FlagID, status FlagStatus) error
}

// =============================================================================
// SUSPENSION STORE
// =============================================================================

// SuspensionStore persists suspension records.
type SuspensionStore interface {
	AppendSuspension(ctx context.Context, s SuspensionRecord) error

	// ActiveSuspension returns the row with Active=true for the rep, or
	// (nil, nil). Expiry is NOT applied here; callers apply the read-time
	// expiry rule.
	ActiveSuspension(ctx context.Context, rep RepID) (*SuspensionRecord, error)

	// ReplaceActiveSuspension deactivates the rep's current active row (if
	// any) and inserts s, as one transaction. This is the SHORT -> LONG
	// escalation path.
	ReplaceActiveSuspension(ctx context.Context, rep RepID, s SuspensionRecord) error

	// DeactivateSuspension flips Active to false (expiry or lift).
	// Returns ErrSuspensionNotFound if the id is unknown.
	DeactivateSuspension(ctx context.Context, id SuspensionID) error

	// SuspensionsByRep returns the rep's full suspension history, newest first.
	SuspensionsByRep(ctx context.Context, rep RepID) ([]SuspensionRecord, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store is the full persistence surface the engine needs.
type Store interface {
	EntityStore
	CreditStore
	PoolStore
	FlagStore
	SuspensionStore
}
