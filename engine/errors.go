/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The credit, pool, and trust packages wrap these with additional context.

ERROR CATEGORIES:
  1. NotFound errors    - Missing representatives, decision-makers, companies
  2. Validation errors  - Non-positive amounts, malformed periods
  3. Store errors       - Uniqueness violations, optimistic-lock conflicts

PROPAGATION POLICY:
  Policy denials (insufficient pool, rep limit, suspension) and negative
  eligibility outcomes are NOT errors; they are structured results. Only
  malformed input and missing entities are true errors.
  ErrConcurrentModification is retried internally by the awarder and pool
  manager and never surfaced when the retry succeeds.

USAGE:
  if errors.Is(err, engine.ErrDuplicateCreditEntry) {
      // Award already recorded, safe to treat as a no-op
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRepresentativeNotFound is returned when a representative id does not
	// resolve to an existing, active representative.
	ErrRepresentativeNotFound = errors.New("representative not found")

	// ErrDecisionMakerNotFound is returned when a decision-maker id does not
	// resolve to an existing, active decision-maker.
	ErrDecisionMakerNotFound = errors.New("decision maker not found")

	// ErrCompanyNotFound is returned when no pool exists for a company domain.
	ErrCompanyNotFound = errors.New("company pool not found")

	// ErrReporterNotFound is returned when a flag's reporter id resolves to
	// neither a representative nor a decision-maker.
	ErrReporterNotFound = errors.New("reporter not found")

	// ErrFlagNotFound is returned when a referenced flag doesn't exist.
	ErrFlagNotFound = errors.New("flag not found")

	// ErrEntryNotFound is returned when a referenced ledger entry doesn't exist.
	ErrEntryNotFound = errors.New("credit entry not found")

	// ErrSuspensionNotFound is returned when lifting a representative with no
	// active suspension.
	ErrSuspensionNotFound = errors.New("no active suspension")

	// ErrInvalidAmount is returned for non-positive award or consume amounts.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrInvalidPeriod is returned for periods not of the "2006-01" form.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidKind is returned for unknown consumption kinds or severities.
	ErrInvalidKind = errors.New("invalid kind")

	// ErrScoreMissing is returned when a decision-maker has no engagement
	// score yet; eligibility cannot be evaluated without one.
	ErrScoreMissing = errors.New("engagement score missing")

	// ErrDuplicateCreditEntry is returned by stores when an active entry
	// already exists for the (rep, dm, period, source) tuple. Expected under
	// concurrent awarding; the awarder converts it into a no-op.
	ErrDuplicateCreditEntry = errors.New("duplicate credit entry")

	// ErrConcurrentModification is returned when optimistic locking detects
	// a conflicting write. Always retried internally.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrRetriesExhausted is returned when a bounded retry loop gives up on
	// repeated conflicts. Surfaced to callers as a transient failure.
	ErrRetriesExhausted = errors.New("conflict retries exhausted")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateEntryError identifies which tuple an award collided on.
type DuplicateEntryError struct {
	RepID      RepID
	DMID       DMID
	Period     Period
	Source     SourceClass
	ExistingID EntryID
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("credit already awarded: rep=%s dm=%s period=%s source=%s (entry: %s)",
		e.RepID, e.DMID, e.Period, e.Source, e.ExistingID)
}

func (e *DuplicateEntryError) Unwrap() error {
	return ErrDuplicateCreditEntry
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRepresentativeNotFound) ||
		errors.Is(err, ErrDecisionMakerNotFound) ||
		errors.Is(err, ErrCompanyNotFound) ||
		errors.Is(err, ErrReporterNotFound) ||
		errors.Is(err, ErrFlagNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrSuspensionNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrScoreMissing)
}
