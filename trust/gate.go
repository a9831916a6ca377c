/*
gate.go - Access gate

PURPOSE:
  CanAct is the single choke point all external handlers call before
  permitting a booking, an unlock, or any credit-consuming action. It
  combines the representative's suspension state (with read-time expiry)
  and the owning company's pool state into one allowed/denied answer.

PURE READ:
  The gate never mutates. An expired-but-active suspension row reports
  allowed=true here without waiting for a write path to flip it; the next
  escalation or lift cleans the row up.
*/
package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// =============================================================================
// ACCESS GATE
// =============================================================================

// Decision answers "can this representative act now?". Reason is the only
// error detail surfaced to end users.
type Decision struct {
	Allowed bool
	Reason  engine.DenyReason // set when Allowed is false
}

// Gate is the engine's read path for access checks.
type Gate struct {
	Entities    engine.EntityStore
	Suspensions engine.SuspensionStore
	Pools       engine.PoolStore

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewGate creates an access gate over the given stores.
func NewGate(entities engine.EntityStore, suspensions engine.SuspensionStore, pools engine.PoolStore) *Gate {
	return &Gate{Entities: entities, Suspensions: suspensions, Pools: pools, Now: time.Now}
}

// CanAct reports whether the representative may take a credit-consuming
// action right now. Per-rep kind limits are amount- and kind-specific, so
// they are checked at consumption time (pool.Manager.Consume), not here.
func (g *Gate) CanAct(ctx context.Context, rep engine.RepID) (Decision, error) {
	return g.canActAt(ctx, rep, g.Now().UTC())
}

func (g *Gate) canActAt(ctx context.Context, rep engine.RepID, asOf time.Time) (Decision, error) {
	r, err := g.Entities.GetRepresentative(ctx, rep)
	if err != nil {
		return Decision{}, err
	}
	if r == nil || !r.Active {
		return Decision{}, fmt.Errorf("%w: %s", engine.ErrRepresentativeNotFound, rep)
	}

	s, err := g.ActiveSuspension(ctx, rep, asOf)
	if err != nil {
		return Decision{}, err
	}
	if s != nil {
		return Decision{Reason: engine.DenyRepSuspended}, nil
	}

	pool, err := g.Pools.GetPool(ctx, r.CompanyDomain)
	if err != nil {
		return Decision{}, err
	}
	// A lapsed-period pool is pending rollover, not exhausted; only a pool
	// empty within its current period blocks.
	if pool != nil && pool.Period.Contains(asOf) && !pool.Remaining.IsPositive() {
		return Decision{Reason: engine.DenyPoolExhausted}, nil
	}

	return Decision{Allowed: true}, nil
}

// ActiveSuspension returns the suspension currently restricting the
// representative, applying the read-time expiry rule: an active row whose
// EndAt has passed is reported as nil. Pure read; the row itself is left
// for a write path to deactivate.
func (g *Gate) ActiveSuspension(ctx context.Context, rep engine.RepID, asOf time.Time) (*engine.SuspensionRecord, error) {
	s, err := g.Suspensions.ActiveSuspension(ctx, rep)
	if err != nil {
		return nil, err
	}
	if s == nil || !s.InEffect(asOf) {
		return nil, nil
	}
	return s, nil
}
