/*
ledger.go - Credit ledger entry and milestone classification

PURPOSE:
  A CreditLedgerEntry is the immutable record that a representative's
  referral produced value. Entries are created exactly once per
  (representative, decision-maker, period, source) tuple and are never
  mutated, only soft-deactivated by administrative reversal.

CRITICAL INVARIANT:
  At most one ACTIVE entry exists for a given (rep, dm, period, source)
  tuple. This is the exactly-once awarding guarantee and is enforced at
  the store level (uniqueness constraint), not by check-then-insert.

SEE ALSO:
  - credit/awarder.go: The only writer of ledger entries
  - store.go:          CreditStore contract
*/
package engine

import "time"

// =============================================================================
// MILESTONES - Edge-triggered events from external collaborators
// =============================================================================

// Milestone identifies which decision-maker transition fired. The external
// flows emit these once per false->true edge; re-emission while the
// underlying boolean is already true is a caller bug, not an engine input.
type Milestone string

const (
	MilestoneOnboardingCompleted Milestone = "ONBOARDING_COMPLETED"
	MilestoneCalendarConnected   Milestone = "CALENDAR_CONNECTED"
)

// SourceClass classifies which milestone a credit was awarded for.
type SourceClass string

const (
	SourceOnboarding             SourceClass = "ONBOARDING"
	SourceOnboardingWithCalendar SourceClass = "ONBOARDING_WITH_CALENDAR"
)

// =============================================================================
// CREDIT LEDGER ENTRY - Immutable award record
// =============================================================================

// CreditLedgerEntry records a single credit award. Immutable once written;
// administrative reversal flips Active to false, it never deletes or edits.
type CreditLedgerEntry struct {
	ID        EntryID
	RepID     RepID
	DMID      DMID
	Period    Period
	Source    SourceClass
	Amount    int // always >= 1
	Active    bool
	AwardedAt time.Time
}
