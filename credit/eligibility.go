/*
Package credit awards referral credits to representatives when their
referred decision-makers reach qualifying milestones.

PURPOSE:
  Two components live here:
  - Evaluator: a pure function deciding whether a milestone qualifies for
    a credit (engagement score gating, source classification)
  - Awarder: the idempotent operation converting a qualifying milestone into
    at most one ledger entry per (rep, dm, period, source) tuple

EDGE TRIGGERING:
  Milestone events are edge-triggered by the external flows: the caller
  invokes the evaluator only when the decision-maker's underlying boolean
  transitions false -> true. Re-invocation while already true must not be
  presented here; that precondition is the caller's responsibility and the
  HTTP layer enforces it before calling in.

ELIGIBILITY IS NOT AN ERROR:
  A score below the threshold is a valid negative outcome (qualifies=false,
  err=nil). Only a missing score is an error - eligibility cannot be
  evaluated without one.

SEE ALSO:
  - awarder.go:       The exactly-once award operation
  - engine/ledger.go: Entry and milestone types
*/
package credit

import (
	"fmt"

	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// DefaultMinEngagementScore gates credit eligibility. Decision-makers
// scoring below this produce no credit, by business policy.
const DefaultMinEngagementScore = 40

// =============================================================================
// ELIGIBILITY EVALUATOR
// =============================================================================

// Evaluator decides whether a decision-maker milestone qualifies for a
// credit. Pure and side-effect-free.
type Evaluator struct {
	MinEngagementScore int
}

// NewEvaluator returns an evaluator with the given score threshold.
// A threshold of 0 falls back to the default.
func NewEvaluator(minScore int) *Evaluator {
	if minScore <= 0 {
		minScore = DefaultMinEngagementScore
	}
	return &Evaluator{MinEngagementScore: minScore}
}

// Evaluate returns whether the milestone qualifies and, if so, which source
// class the resulting credit is filed under.
//
// PRECONDITION: the caller only invokes this on a false->true edge of the
// decision-maker's milestone boolean.
func (e *Evaluator) Evaluate(dm engine.DecisionMaker, milestone engine.Milestone) (bool, engine.SourceClass, error) {
	source, err := sourceFor(milestone)
	if err != nil {
		return false, "", err
	}
	if dm.EngagementScore == nil {
		return false, "", fmt.Errorf("%w: dm=%s", engine.ErrScoreMissing, dm.ID)
	}
	if *dm.EngagementScore < e.MinEngagementScore {
		// Below threshold is a policy outcome, not a fault.
		return false, source, nil
	}
	return true, source, nil
}

func sourceFor(milestone engine.Milestone) (engine.SourceClass, error) {
	switch milestone {
	case engine.MilestoneOnboardingCompleted:
		return engine.SourceOnboarding, nil
	case engine.MilestoneCalendarConnected:
		return engine.SourceOnboardingWithCalendar, nil
	default:
		return "", fmt.Errorf("%w: unknown milestone %q", engine.ErrInvalidKind, milestone)
	}
}
