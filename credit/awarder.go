/*
awarder.go - Exactly-once credit awarding

PURPOSE:
  Award converts a qualifying milestone into at most one active ledger
  entry per (rep, dm, period, source). Calling it again - sequentially or
  concurrently - is a no-op that reports alreadyExisted=true.

HOW EXACTLY-ONCE HOLDS UNDER RACES:
  The store enforces tuple uniqueness (unique index or equivalent) and
  rejects the second insert with ErrDuplicateCreditEntry. The awarder then
  fetches the winning entry and reports it. There is no window where a
  check-then-insert can double-award.

CORRECTIONS:
  Entries are never edited. An administrative reversal soft-deactivates the
  entry; a subsequent Award for the same tuple may then create a fresh one.

SEE ALSO:
  - eligibility.go:    Whether to award at all
  - engine/store.go:   AppendEntry contract
*/
package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// awardRetries bounds transparent retries on store write conflicts.
const awardRetries = 3

// =============================================================================
// CREDIT AWARDER
// =============================================================================

// Awarder writes credit ledger entries with exactly-once semantics.
type Awarder struct {
	Entities engine.EntityStore
	Credits  engine.CreditStore

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewAwarder creates an awarder over the given stores.
func NewAwarder(entities engine.EntityStore, credits engine.CreditStore) *Awarder {
	return &Awarder{Entities: entities, Credits: credits, Now: time.Now}
}

// Award records a credit for the tuple (repID, dmID, period, source).
//
// Returns the entry and alreadyExisted=true when an active entry for the
// tuple already exists; the call is then a pure no-op. Fails with a
// NotFound error for unknown or inactive entities and ErrInvalidAmount for
// non-positive amounts. Store write conflicts are retried transparently.
func (a *Awarder) Award(ctx context.Context, repID engine.RepID, dmID engine.DMID, period engine.Period, source engine.SourceClass, amount int) (*engine.CreditLedgerEntry, bool, error) {
	if amount <= 0 {
		return nil, false, fmt.Errorf("%w: got %d", engine.ErrInvalidAmount, amount)
	}
	if period.IsZero() {
		return nil, false, engine.ErrInvalidPeriod
	}

	rep, err := a.Entities.GetRepresentative(ctx, repID)
	if err != nil {
		return nil, false, err
	}
	if rep == nil || !rep.Active {
		return nil, false, fmt.Errorf("%w: %s", engine.ErrRepresentativeNotFound, repID)
	}

	dm, err := a.Entities.GetDecisionMaker(ctx, dmID)
	if err != nil {
		return nil, false, err
	}
	if dm == nil || !dm.Active {
		return nil, false, fmt.Errorf("%w: %s", engine.ErrDecisionMakerNotFound, dmID)
	}

	for attempt := 0; attempt < awardRetries; attempt++ {
		// Fast path: the tuple may already be awarded.
		existing, err := a.Credits.ActiveEntry(ctx, repID, dmID, period, source)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}

		entry := engine.CreditLedgerEntry{
			ID:        engine.EntryID(uuid.NewString()),
			RepID:     repID,
			DMID:      dmID,
			Period:    period,
			Source:    source,
			Amount:    amount,
			Active:    true,
			AwardedAt: a.Now().UTC(),
		}

		err = a.Credits.AppendEntry(ctx, entry)
		switch {
		case err == nil:
			return &entry, false, nil
		case errors.Is(err, engine.ErrDuplicateCreditEntry):
			// Lost the race; the winner's entry is the award.
			winner, ferr := a.Credits.ActiveEntry(ctx, repID, dmID, period, source)
			if ferr != nil {
				return nil, false, ferr
			}
			if winner != nil {
				return winner, true, nil
			}
			// Winner was reversed between insert and fetch; retry.
		case engine.IsRetryable(err):
			// Transient store conflict; retry.
		default:
			return nil, false, err
		}
	}

	return nil, false, fmt.Errorf("award rep=%s dm=%s: %w", repID, dmID, engine.ErrRetriesExhausted)
}

// History returns the representative's full credit ledger, newest first.
// Includes reversed (inactive) entries for audit display.
func (a *Awarder) History(ctx context.Context, repID engine.RepID) ([]engine.CreditLedgerEntry, error) {
	rep, err := a.Entities.GetRepresentative(ctx, repID)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrRepresentativeNotFound, repID)
	}
	return a.Credits.EntriesByRep(ctx, repID)
}

// Reverse administratively deactivates an entry. The entry remains in the
// ledger for audit; only its Active flag changes.
func (a *Awarder) Reverse(ctx context.Context, id engine.EntryID) error {
	return a.Credits.DeactivateEntry(ctx, id)
}
