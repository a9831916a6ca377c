/*
Package engine provides the core types and storage contracts for the
referral credit and trust suspension engine.

PURPOSE:
  This package contains the domain entities and store interfaces shared by
  the credit, pool, and trust packages. It has no business logic of its own
  beyond small derived helpers; the logic lives in the packages that consume
  these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Representative: a sales-side actor who earns credits and can be suspended
  - DecisionMaker: a referred actor whose milestones trigger credit awards
  - Type-safe identifiers for every entity

DESIGN PRINCIPLES:
  1. Derived state: standing, flag counts, and pool remaining are recomputed
     from the underlying records, never maintained as free-floating counters
  2. Soft lifecycle: representatives and ledger entries are deactivated,
     never deleted
  3. Type Safety: strong typing for IDs prevents mixing rep/dm/company keys

SEE ALSO:
  - ledger.go: Credit ledger entry and milestone classification
  - pool.go:   Company credit pool and consumption records
  - trust.go:  Flag and suspension records
  - store.go:  Persistence interfaces
*/
package engine

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RepID string
type DMID string
type CompanyDomain string
type EntryID string
type FlagID string
type SuspensionID string

// =============================================================================
// REPRESENTATIVE - Sales-side actor
// =============================================================================

// Standing is the representative's account standing.
type Standing string

const (
	StandingGood      Standing = "good"
	StandingSuspended Standing = "suspended"
)

// Representative is a sales-side actor. Created at signup by the external
// onboarding flow; mutated here only by the trust components. Never deleted,
// only deactivated.
type Representative struct {
	ID            RepID
	CompanyDomain CompanyDomain
	Standing      Standing
	Active        bool
	CreatedAt     time.Time
}

// =============================================================================
// DECISION MAKER - Referred actor
// =============================================================================

// DecisionMaker is a referred actor. The external onboarding and calendar
// flows own its mutation; this engine observes the false->true transitions
// of OnboardingComplete and CalendarConnected.
type DecisionMaker struct {
	ID                 DMID
	ReferrerID         *RepID // nil for organic signups
	EngagementScore    *int   // 0-100; nil when not yet computed upstream
	CalendarConnected  bool
	OnboardingComplete bool
	Active             bool
	CreatedAt          time.Time
}

// =============================================================================
// DENIAL REASONS - Shared by pool consumption and the access gate
// =============================================================================

// DenyReason explains why an action was refused. These are structured
// negative outcomes, not errors; they are the only detail surfaced to
// end users.
type DenyReason string

const (
	DenyInsufficientPool DenyReason = "INSUFFICIENT_POOL"
	DenyRepLimitReached  DenyReason = "REP_LIMIT_REACHED"
	DenyRepSuspended     DenyReason = "REP_SUSPENDED"
	DenyPoolExhausted    DenyReason = "POOL_EXHAUSTED"
)
