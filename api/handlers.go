/*
handlers.go - HTTP API handlers for the referral credit and trust engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Representatives:
    POST   /api/representatives                     Register representative
    GET    /api/representatives/{id}                Details incl. open flag count
    GET    /api/representatives/{id}/credits        Credit history
    GET    /api/representatives/{id}/can-act        Access gate check
    POST   /api/representatives/{id}/flags          Record behavioral flag
    GET    /api/representatives/{id}/suspensions    Suspension history
    POST   /api/representatives/{id}/suspension/lift Lift active suspension

  Decision makers:
    POST   /api/decision-makers                     Register decision maker
    POST   /api/decision-makers/{id}/milestones     Milestone event (award trigger)

  Companies:
    POST   /api/companies                           Provision pool
    GET    /api/companies/{domain}/pool             Pool summary
    POST   /api/companies/{domain}/pool/consume     Consume from pool
    POST   /api/companies/{domain}/pool/reset       Period rollover
    POST   /api/companies/{domain}/pool/allowance   Adjust allowance

  Flags:
    POST   /api/flags/{id}/resolve                  Flag resolution lifecycle

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Concurrent-write conflict that survived internal retries
  - 500: Internal errors
  Policy denials (insufficient pool, rep limit, suspension) are NOT errors:
  they come back 200 with {ok:false, reason} / {allowed:false, reason}.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/techizeBuilder/Decision-Maker-sub003/config"
	"github.com/techizeBuilder/Decision-Maker-sub003/credit"
	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
	"github.com/techizeBuilder/Decision-Maker-sub003/pool"
	"github.com/techizeBuilder/Decision-Maker-sub003/trust"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      engine.Store
	Evaluator  *credit.Evaluator
	Awarder    *credit.Awarder
	Pool       *pool.Manager
	Aggregator *trust.Aggregator
	Escalator  *trust.Escalator
	Gate       *trust.Gate
}

// NewHandler wires the full engine on top of a store, applying the
// configured thresholds and durations.
func NewHandler(store engine.Store, cfg config.Config) *Handler {
	escalator := trust.NewEscalator(store, store)
	escalator.ShortThreshold = cfg.Trust.ShortThreshold
	escalator.LongThreshold = cfg.Trust.LongThreshold
	escalator.ShortDuration = cfg.Trust.ShortDuration()
	escalator.LongDuration = cfg.Trust.LongDuration()

	aggregator := trust.NewAggregator(store, store, escalator)
	aggregator.Weights = cfg.Trust.Weights()
	aggregator.Window = cfg.Trust.Window()

	gate := trust.NewGate(store, store, store)

	return &Handler{
		Store:      store,
		Evaluator:  credit.NewEvaluator(cfg.Credit.MinEngagementScore),
		Awarder:    credit.NewAwarder(store, store),
		Pool:       pool.NewManager(store, store, gate),
		Aggregator: aggregator,
		Escalator:  escalator,
		Gate:       gate,
	}
}

// =============================================================================
// REPRESENTATIVE HANDLERS
// =============================================================================

// CreateRepresentative registers a representative (signup flow glue).
func (h *Handler) CreateRepresentative(w http.ResponseWriter, r *http.Request) {
	var req CreateRepresentativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.CompanyDomain == "" {
		writeError(w, http.StatusBadRequest, "id and company_domain are required", nil)
		return
	}

	rep := engine.Representative{
		ID:            engine.RepID(req.ID),
		CompanyDomain: engine.CompanyDomain(req.CompanyDomain),
		Standing:      engine.StandingGood,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Store.SaveRepresentative(r.Context(), rep); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create representative", err)
		return
	}

	writeJSON(w, http.StatusCreated, RepresentativeDTO{
		ID:            string(rep.ID),
		CompanyDomain: string(rep.CompanyDomain),
		Standing:      string(rep.Standing),
		Active:        rep.Active,
		CreatedAt:     rep.CreatedAt.Format(time.RFC3339),
	})
}

// GetRepresentative returns representative details plus the open flag count.
func (h *Handler) GetRepresentative(w http.ResponseWriter, r *http.Request) {
	id := engine.RepID(chi.URLParam(r, "id"))

	rep, err := h.Store.GetRepresentative(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get representative", err)
		return
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, "Representative not found", nil)
		return
	}

	openFlags, err := h.Aggregator.OpenFlagCount(r.Context(), id, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count flags", err)
		return
	}

	writeJSON(w, http.StatusOK, RepresentativeDTO{
		ID:            string(rep.ID),
		CompanyDomain: string(rep.CompanyDomain),
		Standing:      string(rep.Standing),
		Active:        rep.Active,
		OpenFlags:     openFlags,
		CreatedAt:     rep.CreatedAt.Format(time.RFC3339),
	})
}

// GetCreditHistory returns a representative's credit ledger, newest first.
func (h *Handler) GetCreditHistory(w http.ResponseWriter, r *http.Request) {
	id := engine.RepID(chi.URLParam(r, "id"))

	entries, err := h.Awarder.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get credit history", err)
		return
	}

	dtos := make([]CreditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toCreditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CanAct answers the access gate check for a representative.
func (h *Handler) CanAct(w http.ResponseWriter, r *http.Request) {
	id := engine.RepID(chi.URLParam(r, "id"))

	decision, err := h.Gate.CanAct(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to evaluate access", err)
		return
	}

	writeJSON(w, http.StatusOK, CanActDTO{
		Allowed: decision.Allowed,
		Reason:  string(decision.Reason),
	})
}

// =============================================================================
// DECISION MAKER HANDLERS
// =============================================================================

// CreateDecisionMaker registers a decision maker (onboarding flow glue).
func (h *Handler) CreateDecisionMaker(w http.ResponseWriter, r *http.Request) {
	var req CreateDecisionMakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	if req.EngagementScore != nil && (*req.EngagementScore < 0 || *req.EngagementScore > 100) {
		writeError(w, http.StatusBadRequest, "engagement_score must be 0-100", nil)
		return
	}

	dm := engine.DecisionMaker{
		ID:              engine.DMID(req.ID),
		EngagementScore: req.EngagementScore,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}
	if req.ReferrerID != "" {
		ref := engine.RepID(req.ReferrerID)
		rep, err := h.Store.GetRepresentative(r.Context(), ref)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resolve referrer", err)
			return
		}
		if rep == nil {
			writeError(w, http.StatusNotFound, "Referrer not found", nil)
			return
		}
		dm.ReferrerID = &ref
	}

	if err := h.Store.SaveDecisionMaker(r.Context(), dm); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create decision maker", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDecisionMakerDTO(dm))
}

// ApplyMilestone records a decision-maker milestone transition and awards a
// referral credit when it qualifies.
//
// The edge rule is enforced here: only a false->true transition of the
// milestone boolean triggers eligibility evaluation. Replays of an
// already-set milestone are acknowledged without side effects.
func (h *Handler) ApplyMilestone(w http.ResponseWriter, r *http.Request) {
	id := engine.DMID(chi.URLParam(r, "id"))

	var req MilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	milestone, ok := parseMilestone(req.Milestone)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown milestone", nil)
		return
	}

	ctx := r.Context()
	dm, err := h.Store.GetDecisionMaker(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get decision maker", err)
		return
	}
	if dm == nil {
		writeError(w, http.StatusNotFound, "Decision maker not found", nil)
		return
	}

	result := MilestoneResultDTO{Milestone: string(milestone)}

	// Edge detection: a replay of a set milestone is a no-op.
	switch milestone {
	case engine.MilestoneOnboardingCompleted:
		if dm.OnboardingComplete {
			writeJSON(w, http.StatusOK, result)
			return
		}
		dm.OnboardingComplete = true
	case engine.MilestoneCalendarConnected:
		if dm.CalendarConnected {
			writeJSON(w, http.StatusOK, result)
			return
		}
		dm.CalendarConnected = true
	}

	// Award before persisting the transition. A failed award must not consume
	// the false->true edge: the boolean stays unset, so the caller's retry
	// evaluates it again, and the ledger's tuple uniqueness makes the
	// re-attempt exactly-once. Organic decision makers have no referrer and
	// earn nobody credits.
	if dm.ReferrerID != nil {
		// A missing score means not eligible, not a request failure.
		qualifies, source, err := h.Evaluator.Evaluate(*dm, milestone)
		if err != nil && !errors.Is(err, engine.ErrScoreMissing) {
			writeError(w, http.StatusInternalServerError, "Failed to evaluate eligibility", err)
			return
		}
		if err == nil && qualifies {
			period := engine.PeriodOf(time.Now().UTC())
			entry, alreadyExisted, err := h.Awarder.Award(ctx, *dm.ReferrerID, dm.ID, period, source, 1)
			if err != nil {
				writeDomainError(w, "Failed to award credit", err)
				return
			}

			if alreadyExisted {
				creditsDuplicate.Inc()
			} else {
				creditsAwarded.WithLabelValues(string(source)).Inc()
			}

			result.Awarded = true
			result.AlreadyExisted = alreadyExisted
			dto := toCreditEntryDTO(*entry)
			result.Entry = &dto
		}
	}

	if err := h.Store.SaveDecisionMaker(ctx, *dm); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update decision maker", err)
		return
	}
	result.Applied = true
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// COMPANY POOL HANDLERS
// =============================================================================

// CreateCompany provisions a company credit pool for the current month.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required", nil)
		return
	}
	if req.Allowance < 0 {
		writeError(w, http.StatusBadRequest, "allowance must not be negative", nil)
		return
	}

	// A pool carries consumption state and a version; re-provisioning must
	// not overwrite it. Allowance changes go through the allowance endpoint.
	existing, err := h.Store.GetPool(r.Context(), engine.CompanyDomain(req.Domain))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read pool", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Company pool already exists", nil)
		return
	}

	now := time.Now().UTC()
	p := engine.CompanyCreditPool{
		CompanyDomain: engine.CompanyDomain(req.Domain),
		Allowance:     decimal.NewFromInt(req.Allowance),
		Used:          decimal.Zero,
		Remaining:     decimal.NewFromInt(req.Allowance),
		Period:        engine.PeriodOf(now),
		Limits: engine.PerRepLimits{
			MaxCallsPerMonth:   req.MaxCallsPerMonth,
			MaxUnlocksPerMonth: req.MaxUnlocksPerMonth,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.SavePool(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create pool", err)
		return
	}

	summary, err := h.Pool.Summary(r.Context(), p.CompanyDomain)
	if err != nil {
		writeDomainError(w, "Failed to read pool", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPoolSummaryDTO(summary))
}

// GetPoolSummary returns the pool state for a company domain.
func (h *Handler) GetPoolSummary(w http.ResponseWriter, r *http.Request) {
	domain := engine.CompanyDomain(chi.URLParam(r, "domain"))

	summary, err := h.Pool.Summary(r.Context(), domain)
	if err != nil {
		writeDomainError(w, "Failed to get pool", err)
		return
	}
	writeJSON(w, http.StatusOK, toPoolSummaryDTO(summary))
}

// Consume draws from a company pool on behalf of a representative.
// Denials come back 200 with ok=false; they are outcomes, not errors.
func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	domain := engine.CompanyDomain(chi.URLParam(r, "domain"))

	var req ConsumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	receipt, err := h.Pool.Consume(r.Context(), domain, engine.RepID(req.RepID), engine.ConsumeKind(req.Kind), req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to consume from pool", err)
		return
	}

	outcome := "ok"
	if !receipt.OK {
		outcome = string(receipt.Reason)
	}
	poolConsumptions.WithLabelValues(req.Kind, outcome).Inc()

	writeJSON(w, http.StatusOK, ConsumeResultDTO{
		OK:        receipt.OK,
		Reason:    string(receipt.Reason),
		Remaining: receipt.Remaining,
	})
}

// ResetPool rolls the pool into the current month. Idempotent: a second
// reset in the same month is acknowledged without mutation.
func (h *Handler) ResetPool(w http.ResponseWriter, r *http.Request) {
	domain := engine.CompanyDomain(chi.URLParam(r, "domain"))

	summary, err := h.Pool.ResetPeriod(r.Context(), domain)
	if err != nil {
		writeDomainError(w, "Failed to reset pool", err)
		return
	}
	writeJSON(w, http.StatusOK, toPoolSummaryDTO(summary))
}

// AdjustAllowance changes a pool's monthly allowance (admin).
func (h *Handler) AdjustAllowance(w http.ResponseWriter, r *http.Request) {
	domain := engine.CompanyDomain(chi.URLParam(r, "domain"))

	var req AdjustAllowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	summary, err := h.Pool.AdjustAllowance(r.Context(), domain, int(req.Allowance))
	if err != nil {
		writeDomainError(w, "Failed to adjust allowance", err)
		return
	}
	writeJSON(w, http.StatusOK, toPoolSummaryDTO(summary))
}

// =============================================================================
// TRUST HANDLERS
// =============================================================================

// RecordFlag files a behavioral complaint and reports any suspension the
// resulting severity score triggered.
func (h *Handler) RecordFlag(w http.ResponseWriter, r *http.Request) {
	target := engine.RepID(chi.URLParam(r, "id"))

	var req RecordFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ReporterID == "" || req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reporter_id and reason are required", nil)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	before, err := h.Store.ActiveSuspension(ctx, target)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read suspension state", err)
		return
	}

	severity := engine.Severity(strings.ToLower(req.Severity))
	flag, err := h.Aggregator.RecordFlag(ctx, target, req.ReporterID, req.Reason, severity, req.Description)
	if err != nil {
		writeDomainError(w, "Failed to record flag", err)
		return
	}
	flagsRecorded.WithLabelValues(string(severity)).Inc()

	score, err := h.Aggregator.TrailingSeverityScore(ctx, target, h.Aggregator.Window, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute severity score", err)
		return
	}

	result := RecordFlagResultDTO{Flag: toFlagDTO(*flag), SeverityScore: score}

	after, err := h.Gate.ActiveSuspension(ctx, target, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read suspension state", err)
		return
	}
	if after != nil {
		dto := toSuspensionDTO(*after)
		result.Suspension = &dto
		if before == nil || before.ID != after.ID {
			suspensionsCreated.WithLabelValues(string(after.Type)).Inc()
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// ResolveFlag moves a flag through its resolution lifecycle.
func (h *Handler) ResolveFlag(w http.ResponseWriter, r *http.Request) {
	id := engine.FlagID(chi.URLParam(r, "id"))

	var req ResolveFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Aggregator.ResolveFlag(r.Context(), id, engine.FlagStatus(strings.ToLower(req.Status))); err != nil {
		writeDomainError(w, "Failed to resolve flag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LiftSuspension removes a representative's active suspension (admin).
func (h *Handler) LiftSuspension(w http.ResponseWriter, r *http.Request) {
	id := engine.RepID(chi.URLParam(r, "id"))

	rec, err := h.Escalator.Lift(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to lift suspension", err)
		return
	}
	writeJSON(w, http.StatusOK, toSuspensionDTO(*rec))
}

// GetSuspensions returns a representative's suspension history.
func (h *Handler) GetSuspensions(w http.ResponseWriter, r *http.Request) {
	id := engine.RepID(chi.URLParam(r, "id"))

	recs, err := h.Escalator.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get suspensions", err)
		return
	}

	dtos := make([]SuspensionDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toSuspensionDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseMilestone(s string) (engine.Milestone, bool) {
	// External event names carry a DM_ prefix; accept both forms.
	switch strings.TrimPrefix(strings.ToUpper(s), "DM_") {
	case string(engine.MilestoneOnboardingCompleted):
		return engine.MilestoneOnboardingCompleted, true
	case string(engine.MilestoneCalendarConnected):
		return engine.MilestoneCalendarConnected, true
	}
	return "", false
}

func toDecisionMakerDTO(dm engine.DecisionMaker) DecisionMakerDTO {
	dto := DecisionMakerDTO{
		ID:                 string(dm.ID),
		EngagementScore:    dm.EngagementScore,
		CalendarConnected:  dm.CalendarConnected,
		OnboardingComplete: dm.OnboardingComplete,
		Active:             dm.Active,
	}
	if dm.ReferrerID != nil {
		dto.ReferrerID = string(*dm.ReferrerID)
	}
	return dto
}

func toPoolSummaryDTO(s pool.Summary) PoolSummaryDTO {
	return PoolSummaryDTO{
		CompanyDomain:      string(s.CompanyDomain),
		Allowance:          s.Allowance,
		Used:               s.Used,
		Remaining:          s.Remaining,
		Period:             s.Period.String(),
		PeriodStart:        s.PeriodStart.UTC().Format(time.RFC3339),
		PeriodEnd:          s.PeriodEnd.UTC().Format(time.RFC3339),
		MaxCallsPerMonth:   s.Limits.MaxCallsPerMonth,
		MaxUnlocksPerMonth: s.Limits.MaxUnlocksPerMonth,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, engine.ErrRetriesExhausted):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
