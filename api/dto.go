/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateRepresentativeRequest registers a representative (external signup
// flow glue).
type CreateRepresentativeRequest struct {
	ID            string `json:"id"`
	CompanyDomain string `json:"company_domain"`
}

// CreateDecisionMakerRequest registers a decision maker. ReferrerID is
// empty for organic signups.
type CreateDecisionMakerRequest struct {
	ID              string `json:"id"`
	ReferrerID      string `json:"referrer_id,omitempty"`
	EngagementScore *int   `json:"engagement_score,omitempty"`
}

// MilestoneRequest reports a decision-maker lifecycle transition.
type MilestoneRequest struct {
	Milestone string `json:"milestone"` // ONBOARDING_COMPLETED | CALENDAR_CONNECTED
}

// CreateCompanyRequest provisions a company pool at onboarding.
type CreateCompanyRequest struct {
	Domain             string `json:"domain"`
	Allowance          int64  `json:"allowance"`
	MaxCallsPerMonth   *int   `json:"max_calls_per_month,omitempty"`
	MaxUnlocksPerMonth *int   `json:"max_unlocks_per_month,omitempty"`
}

// ConsumeRequest draws from a company pool.
type ConsumeRequest struct {
	RepID  string `json:"rep_id"`
	Kind   string `json:"kind"` // CALL_BOOKED | DM_UNLOCKED
	Amount int    `json:"amount"`
}

// AdjustAllowanceRequest changes a pool's monthly allowance.
type AdjustAllowanceRequest struct {
	Allowance int64 `json:"allowance"`
}

// RecordFlagRequest files a behavioral complaint against a representative.
type RecordFlagRequest struct {
	ReporterID  string `json:"reporter_id"`
	Reason      string `json:"reason"`
	Severity    string `json:"severity"` // low | medium | high | critical
	Description string `json:"description,omitempty"`
}

// ResolveFlagRequest moves a flag through its resolution lifecycle.
type ResolveFlagRequest struct {
	Status string `json:"status"` // investigating | resolved | dismissed
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RepresentativeDTO is the API view of a representative.
type RepresentativeDTO struct {
	ID            string `json:"id"`
	CompanyDomain string `json:"company_domain"`
	Standing      string `json:"standing"`
	Active        bool   `json:"active"`
	OpenFlags     int    `json:"open_flags"`
	CreatedAt     string `json:"created_at"`
}

// DecisionMakerDTO is the API view of a decision maker.
type DecisionMakerDTO struct {
	ID                 string `json:"id"`
	ReferrerID         string `json:"referrer_id,omitempty"`
	EngagementScore    *int   `json:"engagement_score,omitempty"`
	CalendarConnected  bool   `json:"calendar_connected"`
	OnboardingComplete bool   `json:"onboarding_complete"`
	Active             bool   `json:"active"`
}

// CreditEntryDTO is the API view of a ledger entry.
type CreditEntryDTO struct {
	ID        string `json:"id"`
	RepID     string `json:"rep_id"`
	DMID      string `json:"dm_id"`
	Period    string `json:"period"`
	Source    string `json:"source"`
	Amount    int    `json:"amount"`
	Active    bool   `json:"active"`
	AwardedAt string `json:"awarded_at"`
}

// MilestoneResultDTO reports what a milestone event produced.
type MilestoneResultDTO struct {
	Milestone      string          `json:"milestone"`
	Applied        bool            `json:"applied"` // false when the boolean was already set
	Awarded        bool            `json:"awarded"`
	AlreadyExisted bool            `json:"already_existed,omitempty"`
	Entry          *CreditEntryDTO `json:"entry,omitempty"`
}

// PoolSummaryDTO is the dashboard view of a company pool.
type PoolSummaryDTO struct {
	CompanyDomain      string `json:"company_domain"`
	Allowance          int64  `json:"allowance"`
	Used               int64  `json:"used"`
	Remaining          int64  `json:"remaining"`
	Period             string `json:"period"`
	PeriodStart        string `json:"period_start"`
	PeriodEnd          string `json:"period_end"`
	MaxCallsPerMonth   *int   `json:"max_calls_per_month,omitempty"`
	MaxUnlocksPerMonth *int   `json:"max_unlocks_per_month,omitempty"`
}

// ConsumeResultDTO is the structured outcome of a consumption attempt.
// Denials are outcomes, not errors: ok=false with a reason and HTTP 200.
type ConsumeResultDTO struct {
	OK        bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
	Remaining int64  `json:"remaining"`
}

// CanActDTO is the access gate's answer.
type CanActDTO struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// FlagDTO is the API view of a behavioral flag.
type FlagDTO struct {
	ID          string `json:"id"`
	TargetRepID string `json:"target_rep_id"`
	ReporterID  string `json:"reporter_id"`
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// RecordFlagResultDTO reports the flag plus any suspension it triggered.
type RecordFlagResultDTO struct {
	Flag          FlagDTO        `json:"flag"`
	SeverityScore int            `json:"severity_score"`
	Suspension    *SuspensionDTO `json:"suspension,omitempty"`
}

// SuspensionDTO is the API view of a suspension record.
type SuspensionDTO struct {
	ID      string `json:"id"`
	RepID   string `json:"rep_id"`
	Type    string `json:"type"`
	Reason  string `json:"reason,omitempty"`
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
	Active  bool   `json:"active"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toCreditEntryDTO(e engine.CreditLedgerEntry) CreditEntryDTO {
	return CreditEntryDTO{
		ID:        string(e.ID),
		RepID:     string(e.RepID),
		DMID:      string(e.DMID),
		Period:    e.Period.String(),
		Source:    string(e.Source),
		Amount:    e.Amount,
		Active:    e.Active,
		AwardedAt: e.AwardedAt.UTC().Format(time.RFC3339),
	}
}

func toFlagDTO(f engine.FlagRecord) FlagDTO {
	return FlagDTO{
		ID:          string(f.ID),
		TargetRepID: string(f.TargetRepID),
		ReporterID:  f.ReporterID,
		Reason:      f.Reason,
		Description: f.Description,
		Severity:    string(f.Severity),
		Status:      string(f.Status),
		CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toSuspensionDTO(s engine.SuspensionRecord) SuspensionDTO {
	return SuspensionDTO{
		ID:      string(s.ID),
		RepID:   string(s.RepID),
		Type:    string(s.Type),
		Reason:  s.Reason,
		StartAt: s.StartAt.UTC().Format(time.RFC3339),
		EndAt:   s.EndAt.UTC().Format(time.RFC3339),
		Active:  s.Active,
	}
}
