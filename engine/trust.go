/*
trust.go - Behavioral flags and suspension records

PURPOSE:
  FlagRecord captures one behavioral complaint against a representative.
  SuspensionRecord is a time-bounded access restriction that escalates with
  accumulated flag severity.

SUSPENSION LIFECYCLE:
  Active -> Expired (derived at read time: now > EndAt) -> Lifted (terminal)
  Active -> Lifted directly

  Expiry is computed on read, never by a background sweep. Write paths that
  touch a suspension opportunistically flip Active to false once expired.

INVARIANT:
  At most one suspension row with Active=true per representative. Escalating
  SHORT -> LONG is a transactional replace, not an insert-and-leave-stale.

SEE ALSO:
  - trust/flags.go:     Flag aggregation and trailing severity scoring
  - trust/escalator.go: The suspension state machine
  - trust/gate.go:      Read-time expiry in the access gate
*/
package engine

import "time"

// =============================================================================
// FLAGS
// =============================================================================

// Severity grades a behavioral complaint.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FlagStatus is the resolution state of a complaint. Only open and
// investigating flags contribute to the trailing severity score.
type FlagStatus string

const (
	FlagOpen          FlagStatus = "open"
	FlagInvestigating FlagStatus = "investigating"
	FlagResolved      FlagStatus = "resolved"
	FlagDismissed     FlagStatus = "dismissed"
)

// Counted reports whether a flag in this status contributes to the
// trailing severity score.
func (s FlagStatus) Counted() bool {
	return s == FlagOpen || s == FlagInvestigating
}

// FlagRecord is one behavioral complaint against a representative.
type FlagRecord struct {
	ID          FlagID
	TargetRepID RepID
	ReporterID  string // representative or decision-maker id
	Reason      string
	Description string
	Severity    Severity
	Status      FlagStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// =============================================================================
// SUSPENSIONS
// =============================================================================

// SuspensionType distinguishes the two escalation tiers.
type SuspensionType string

const (
	SuspensionShort SuspensionType = "SHORT" // 7 days
	SuspensionLong  SuspensionType = "LONG"  // 90 days
)

// SuspensionRecord is a time-bounded restriction on a representative.
type SuspensionRecord struct {
	ID        SuspensionID
	RepID     RepID
	Type      SuspensionType
	Reason    string
	StartAt   time.Time
	EndAt     time.Time
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExpiredAt reports whether the suspension window has lapsed as of now.
// An expired-but-still-active row is treated as inactive by all read paths.
func (s SuspensionRecord) ExpiredAt(now time.Time) bool {
	return now.After(s.EndAt)
}

// InEffect reports whether the suspension actually restricts the
// representative as of now (active and not yet expired).
func (s SuspensionRecord) InEffect(now time.Time) bool {
	return s.Active && !s.ExpiredAt(now)
}
