/*
escalator.go - Suspension state machine

PURPOSE:
  Drives the per-representative suspension lifecycle from trailing severity
  scores:

    NONE --score>=6--> ACTIVE(SHORT, 7d) --score>=12--> ACTIVE(LONG, 90d)
                                         \--expire/lift--> inactive

  Escalating SHORT -> LONG replaces the SHORT row transactionally; at most
  one active row exists per representative at any time.

CONCURRENCY:
  Two flags landing concurrently and both crossing a threshold must not
  create two competing active rows. Escalation is serialized per
  representative with a keyed mutex; the store-level transactional replace
  covers multi-process deployments.

EXPIRY:
  Computed at read time (now > EndAt). Any write path through here that
  touches an expired-but-active row opportunistically deactivates it.

LIFTING:
  Administrative and terminal. A lifted record is never re-activated; a
  fresh violation creates a new record.
*/
package trust

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// Escalation defaults. All injectable via configuration.
const (
	DefaultShortThreshold = 6
	DefaultLongThreshold  = 12
	DefaultShortDuration  = 7 * 24 * time.Hour
	DefaultLongDuration   = 90 * 24 * time.Hour
)

// =============================================================================
// SUSPENSION ESCALATOR
// =============================================================================

// Escalator creates and replaces suspension records based on severity
// scores.
type Escalator struct {
	Entities    engine.EntityStore
	Suspensions engine.SuspensionStore

	ShortThreshold int
	LongThreshold  int
	ShortDuration  time.Duration
	LongDuration   time.Duration

	// Per-representative serialization of threshold evaluation.
	locks sync.Map // engine.RepID -> *sync.Mutex
}

// NewEscalator creates an escalator with default thresholds and durations.
func NewEscalator(entities engine.EntityStore, suspensions engine.SuspensionStore) *Escalator {
	return &Escalator{
		Entities:       entities,
		Suspensions:    suspensions,
		ShortThreshold: DefaultShortThreshold,
		LongThreshold:  DefaultLongThreshold,
		ShortDuration:  DefaultShortDuration,
		LongDuration:   DefaultLongDuration,
	}
}

func (e *Escalator) lockFor(rep engine.RepID) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(rep, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Escalate applies the threshold transition rule for a representative given
// its current trailing severity score. Returns the suspension created or
// escalated to, or nil when no transition fired.
//
// Serialized per representative id.
func (e *Escalator) Escalate(ctx context.Context, rep engine.RepID, score int, asOf time.Time) (*engine.SuspensionRecord, error) {
	mu := e.lockFor(rep)
	mu.Lock()
	defer mu.Unlock()

	active, err := e.Suspensions.ActiveSuspension(ctx, rep)
	if err != nil {
		return nil, err
	}

	// Opportunistic expiry: an active row whose window lapsed is dead.
	if active != nil && active.ExpiredAt(asOf) {
		if err := e.Suspensions.DeactivateSuspension(ctx, active.ID); err != nil {
			return nil, err
		}
		if err := e.setStanding(ctx, rep, engine.StandingGood); err != nil {
			return nil, err
		}
		active = nil
	}

	switch {
	case score >= e.LongThreshold:
		if active != nil && active.Type == engine.SuspensionLong {
			return nil, nil // already at the top tier
		}
		record := e.newRecord(rep, engine.SuspensionLong, score, asOf)
		if active != nil {
			// Single transactional replace; the SHORT row is superseded.
			if err := e.Suspensions.ReplaceActiveSuspension(ctx, rep, record); err != nil {
				return nil, err
			}
		} else if err := e.Suspensions.AppendSuspension(ctx, record); err != nil {
			return nil, err
		}
		if err := e.setStanding(ctx, rep, engine.StandingSuspended); err != nil {
			return nil, err
		}
		return &record, nil

	case score >= e.ShortThreshold:
		if active != nil {
			return nil, nil // an active suspension already covers this
		}
		record := e.newRecord(rep, engine.SuspensionShort, score, asOf)
		if err := e.Suspensions.AppendSuspension(ctx, record); err != nil {
			return nil, err
		}
		if err := e.setStanding(ctx, rep, engine.StandingSuspended); err != nil {
			return nil, err
		}
		return &record, nil

	default:
		return nil, nil
	}
}

// Lift administratively ends the representative's active suspension.
// Terminal: the record is deactivated and can never be re-activated.
// Returns ErrSuspensionNotFound when no active suspension exists.
func (e *Escalator) Lift(ctx context.Context, rep engine.RepID) (*engine.SuspensionRecord, error) {
	mu := e.lockFor(rep)
	mu.Lock()
	defer mu.Unlock()

	active, err := e.Suspensions.ActiveSuspension(ctx, rep)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("%w: rep=%s", engine.ErrSuspensionNotFound, rep)
	}

	if err := e.Suspensions.DeactivateSuspension(ctx, active.ID); err != nil {
		return nil, err
	}
	if err := e.setStanding(ctx, rep, engine.StandingGood); err != nil {
		return nil, err
	}

	active.Active = false
	return active, nil
}

// History returns the representative's full suspension record, newest first.
func (e *Escalator) History(ctx context.Context, rep engine.RepID) ([]engine.SuspensionRecord, error) {
	return e.Suspensions.SuspensionsByRep(ctx, rep)
}

func (e *Escalator) newRecord(rep engine.RepID, t engine.SuspensionType, score int, asOf time.Time) engine.SuspensionRecord {
	duration := e.ShortDuration
	if t == engine.SuspensionLong {
		duration = e.LongDuration
	}
	return engine.SuspensionRecord{
		ID:        engine.SuspensionID(uuid.NewString()),
		RepID:     rep,
		Type:      t,
		Reason:    fmt.Sprintf("trailing severity score %d", score),
		StartAt:   asOf,
		EndAt:     asOf.Add(duration),
		Active:    true,
		CreatedAt: asOf,
		UpdatedAt: asOf,
	}
}

func (e *Escalator) setStanding(ctx context.Context, rep engine.RepID, standing engine.Standing) error {
	r, err := e.Entities.GetRepresentative(ctx, rep)
	if err != nil || r == nil {
		return err
	}
	if r.Standing == standing {
		return nil
	}
	r.Standing = standing
	return e.Entities.SaveRepresentative(ctx, *r)
}
