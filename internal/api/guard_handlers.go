package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/httputil"
	"github.com/ignite/mailguard/internal/service/guard"
)

// LeadEligibility reports whether one lead may be mailed.
//
//	GET /api/v1/leads/{id}/eligibility
func (h *Handlers) LeadEligibility(w http.ResponseWriter, r *http.Request) {
	res, err := h.guard.IsLeadEligible(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, res)
}

type eligibilityRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

// FilterEligible partitions a recipient list.
//
//	POST /api/v1/eligibility
func (h *Handlers) FilterEligible(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	res, err := h.guard.FilterEligible(r.Context(), req.LeadIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Eligible == nil {
		res.Eligible = []string{}
	}
	if res.Skipped == nil {
		res.Skipped = []guard.Skipped{}
	}
	httputil.OK(w, res)
}

type engagementRequest struct {
	Type domain.EventType `json:"type"`
}

type engagementResponse struct {
	LeadID string  `json:"lead_id"`
	Score  float64 `json:"engagement_score"`
}

// RecordEngagement applies an open, click or reply to the lead's score.
//
//	POST /api/v1/leads/{id}/engagement
func (h *Handlers) RecordEngagement(w http.ResponseWriter, r *http.Request) {
	var req engagementRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	score, err := h.guard.RecordEngagement(r.Context(), id, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, engagementResponse{LeadID: id, Score: score})
}

// SoftBounce records a temporary failure.
//
//	POST /api/v1/bounces/soft
func (h *Handlers) SoftBounce(w http.ResponseWriter, r *http.Request) {
	var req guard.SoftBounce
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.LeadID == "" {
		httputil.BadRequest(w, "lead_id is required")
		return
	}
	res, err := h.guard.HandleSoftBounce(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, res)
}

type hardBounceRequest struct {
	LeadID     string `json:"lead_id"`
	CampaignID string `json:"campaign_id"`
}

// HardBounce records a permanent failure.
//
//	POST /api/v1/bounces/hard
func (h *Handlers) HardBounce(w http.ResponseWriter, r *http.Request) {
	var req hardBounceRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.LeadID == "" {
		httputil.BadRequest(w, "lead_id is required")
		return
	}
	res, err := h.guard.HandleHardBounce(r.Context(), req.LeadID, req.CampaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, res)
}

// DueRetries lists soft-bounce retries ready to resend.
//
//	GET /api/v1/bounces/due?limit=100
func (h *Handlers) DueRetries(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", 100, 1, 1000)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	entries, err := h.guard.DueRetries(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.BounceQueueEntry{}
	}
	httputil.OK(w, entries)
}

// CampaignHealth checks one campaign and pauses it on a breach.
//
//	POST /api/v1/campaigns/{id}/health
func (h *Handlers) CampaignHealth(w http.ResponseWriter, r *http.Request) {
	report, err := h.guard.CheckCampaignHealth(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, report)
}

// CampaignHealthSweep checks every sending campaign.
//
//	POST /api/v1/campaigns/health
func (h *Handlers) CampaignHealthSweep(w http.ResponseWriter, r *http.Request) {
	reports, err := h.guard.CheckSendingCampaigns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if reports == nil {
		reports = []guard.HealthReport{}
	}
	httputil.OK(w, reports)
}

// Thresholds returns the auto-pause thresholds in effect.
//
//	GET /api/v1/campaigns/thresholds
func (h *Handlers) Thresholds(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.guard.Thresholds())
}

// Score computes the current deliverability score.
//
//	GET /api/v1/deliverability/score
func (h *Handlers) Score(w http.ResponseWriter, r *http.Request) {
	score, err := h.guard.ComputeScore(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, score)
}

// Snapshots returns the daily snapshots for the last N days.
//
//	GET /api/v1/deliverability/snapshots?days=30
func (h *Handlers) Snapshots(w http.ResponseWriter, r *http.Request) {
	days, err := httputil.QueryInt(r, "days", 30, 1, 365)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	snaps, err := h.guard.Snapshots(r.Context(), days)
	if err != nil {
		writeError(w, err)
		return
	}
	if snaps == nil {
		snaps = []domain.DeliverabilitySnapshot{}
	}
	httputil.OK(w, snaps)
}

// DomainAuth reports the auth status of a from-address's domain.
//
//	GET /api/v1/domains/auth?from=news@acme.io
func (h *Handlers) DomainAuth(w http.ResponseWriter, r *http.Request) {
	auth, err := h.guard.CheckDomainAuth(r.Context(), r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, auth)
}

// RefreshDomainAuth re-runs the SPF, DKIM and DMARC lookups.
//
//	POST /api/v1/domains/{name}/refresh
func (h *Handlers) RefreshDomainAuth(w http.ResponseWriter, r *http.Request) {
	auth, err := h.guard.RefreshDomainAuth(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, auth)
}
