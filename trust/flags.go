/*
Package trust enforces behavioral standards on representatives: it records
complaints, scores them over a trailing window, and escalates automatic
suspensions when accumulated severity crosses thresholds.

PURPOSE:
  - Aggregator (this file): records flags and computes the trailing
    severity score. The score is always recomputed from the flag table -
    there is no separately-maintained counter that can drift.
  - Escalator: the SHORT/LONG suspension state machine.
  - Gate: the read path every external action must pass through.

SCORING:
  Each open or investigating flag inside the trailing window contributes a
  weight (low=1, medium=2, high=3, critical=5 by default). Resolved and
  dismissed flags are excluded; resolving a flag therefore immediately
  lowers the score on the next read.

SEE ALSO:
  - escalator.go: Threshold transitions after each recorded flag
  - gate.go:      CanAct
*/
package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// DefaultWindow is the trailing aggregation window for severity scoring.
// Injectable via configuration; this is the product default.
const DefaultWindow = 30 * 24 * time.Hour

// DefaultWeights maps flag severity to its score contribution.
var DefaultWeights = map[engine.Severity]int{
	engine.SeverityLow:      1,
	engine.SeverityMedium:   2,
	engine.SeverityHigh:     3,
	engine.SeverityCritical: 5,
}

// =============================================================================
// FLAG AGGREGATOR
// =============================================================================

// Aggregator records behavioral flags and derives trailing severity scores.
type Aggregator struct {
	Entities  engine.EntityStore
	Flags     engine.FlagStore
	Escalator *Escalator // evaluated after every recorded flag; may be nil

	Weights map[engine.Severity]int
	Window  time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewAggregator creates an aggregator with default weights and window.
func NewAggregator(entities engine.EntityStore, flags engine.FlagStore, escalator *Escalator) *Aggregator {
	return &Aggregator{
		Entities:  entities,
		Flags:     flags,
		Escalator: escalator,
		Weights:   DefaultWeights,
		Window:    DefaultWindow,
		Now:       time.Now,
	}
}

// RecordFlag appends a complaint against a representative and then runs the
// escalation evaluation for that representative.
//
// Fails with a NotFound error when the target is not a known representative
// or the reporter resolves to neither a representative nor a decision-maker.
func (a *Aggregator) RecordFlag(ctx context.Context, target engine.RepID, reporter string, reason string, severity engine.Severity, description string) (*engine.FlagRecord, error) {
	if _, ok := a.Weights[severity]; !ok {
		return nil, fmt.Errorf("%w: unknown severity %q", engine.ErrInvalidKind, severity)
	}

	rep, err := a.Entities.GetRepresentative(ctx, target)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrRepresentativeNotFound, target)
	}

	if err := a.resolveReporter(ctx, reporter); err != nil {
		return nil, err
	}

	now := a.Now().UTC()
	flag := engine.FlagRecord{
		ID:          engine.FlagID(uuid.NewString()),
		TargetRepID: target,
		ReporterID:  reporter,
		Reason:      reason,
		Description: description,
		Severity:    severity,
		Status:      engine.FlagOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.Flags.AppendFlag(ctx, flag); err != nil {
		return nil, err
	}

	if a.Escalator != nil {
		score, err := a.TrailingSeverityScore(ctx, target, a.Window, now)
		if err != nil {
			return &flag, err
		}
		if _, err := a.Escalator.Escalate(ctx, target, score, now); err != nil {
			return &flag, err
		}
	}

	return &flag, nil
}

// TrailingSeverityScore sums the severity weights of the representative's
// open and investigating flags raised within the trailing window ending at
// asOf. Always recomputed from the flag table.
func (a *Aggregator) TrailingSeverityScore(ctx context.Context, rep engine.RepID, window time.Duration, asOf time.Time) (int, error) {
	flags, err := a.Flags.FlagsByTarget(ctx, rep, asOf.Add(-window), asOf)
	if err != nil {
		return 0, err
	}

	score := 0
	for _, f := range flags {
		if !f.Status.Counted() {
			continue
		}
		score += a.Weights[f.Severity]
	}
	return score, nil
}

// OpenFlagCount returns how many counted flags the representative carries
// in the trailing window. Surfaced on the representative detail view.
func (a *Aggregator) OpenFlagCount(ctx context.Context, rep engine.RepID, asOf time.Time) (int, error) {
	flags, err := a.Flags.FlagsByTarget(ctx, rep, asOf.Add(-a.Window), asOf)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range flags {
		if f.Status.Counted() {
			n++
		}
	}
	return n, nil
}

// ResolveFlag moves a flag through its resolution lifecycle. Resolved and
// dismissed flags stop counting toward the severity score immediately.
func (a *Aggregator) ResolveFlag(ctx context.Context, id engine.FlagID, status engine.FlagStatus) error {
	switch status {
	case engine.FlagInvestigating, engine.FlagResolved, engine.FlagDismissed:
	default:
		return fmt.Errorf("%w: invalid resolution status %q", engine.ErrInvalidKind, status)
	}

	flag, err := a.Flags.GetFlag(ctx, id)
	if err != nil {
		return err
	}
	if flag == nil {
		return fmt.Errorf("%w: %s", engine.ErrFlagNotFound, id)
	}
	return a.Flags.UpdateFlagStatus(ctx, id, status)
}

// resolveReporter accepts either side of the marketplace as a reporter.
func (a *Aggregator) resolveReporter(ctx context.Context, reporter string) error {
	rep, err := a.Entities.GetRepresentative(ctx, engine.RepID(reporter))
	if err != nil {
		return err
	}
	if rep != nil {
		return nil
	}
	dm, err := a.Entities.GetDecisionMaker(ctx, engine.DMID(reporter))
	if err != nil {
		return err
	}
	if dm != nil {
		return nil
	}
	return fmt.Errorf("%w: %s", engine.ErrReporterNotFound, reporter)
}
