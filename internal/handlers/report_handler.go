package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/DamionHane/FHEReporting/internal/models"
	"github.com/DamionHane/FHEReporting/internal/workflow"
)

// ReportHandler handles report lifecycle requests
type ReportHandler struct {
	svc *workflow.Service
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *workflow.Service) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// SubmitRequest is the payload for submitting a new report.
type SubmitRequest struct {
	Category  uint8 `json:"category"`
	Anonymous bool  `json:"anonymous"`
	Severity  uint8 `json:"severity"`
}

// Submit registers a new report with sealed fields
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	id, err := h.svc.Submit(r.Context(), caller, req.Category, req.Anonymous, req.Severity)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"report_id": id,
		"status":    models.StatusSubmitted,
	})
}

// Get returns the public projection of a report
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	info, err := h.svc.GetBasicInfo(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, info)
}

// AssignRequest is the payload for assigning an investigator.
type AssignRequest struct {
	Investigator string `json:"investigator"`
}

// Assign starts an investigation on a submitted report
func (h *ReportHandler) Assign(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.svc.Assign(r.Context(), caller, id, req.Investigator); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"report_id":    id,
		"status":       models.StatusUnderInvestigation,
		"investigator": req.Investigator,
	})
}

// GetInvestigation returns the investigation record for a report.
// Notes are redacted unless the caller is the authority or the assigned
// investigator.
func (h *ReportHandler) GetInvestigation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	inv, err := h.svc.GetInvestigationInfo(r.Context(), caller, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, inv)
}

// NotesRequest is the payload for appending investigation notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// AddNotes appends notes to an active investigation
func (h *ReportHandler) AddNotes(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	var req NotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.svc.AddNotes(r.Context(), caller, id, req.Notes); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int64{"report_id": id})
}

// StatusRequest is the payload for a manual status transition.
type StatusRequest struct {
	Status models.ReportStatus `json:"status"`
}

// UpdateStatus applies a manual status transition (resolve or dismiss)
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.svc.UpdateStatus(r.Context(), caller, id, req.Status); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"report_id": id,
		"status":    req.Status,
	})
}

// RequestDecryption dispatches a report's sealed fields to the oracle
func (h *ReportHandler) RequestDecryption(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	requestID, deadline, err := h.svc.RequestDecryption(r.Context(), caller, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"report_id":  id,
		"request_id": requestID,
		"deadline":   deadline.Format(time.RFC3339),
	})
}

// GetDecryptionStatus returns the oracle exchange state for a report
func (h *ReportHandler) GetDecryptionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	status, err := h.svc.GetDecryptionStatus(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// ClaimDecryptionRefund claims the refund for an expired decryption request.
// Open to any caller; the deadline and claimed-latch checks gate the effect.
func (h *ReportHandler) ClaimDecryptionRefund(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.svc.ClaimDecryptionTimeoutRefund(r.Context(), actorForRequest(r), id); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"report_id": id,
		"status":    models.StatusRefunded,
	})
}

// ClaimInvestigationRefund claims the refund for an expired investigation.
// Open to any caller, like the decryption refund.
func (h *ReportHandler) ClaimInvestigationRefund(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.svc.ClaimInvestigationTimeoutRefund(r.Context(), actorForRequest(r), id); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"report_id": id,
		"status":    models.StatusRefunded,
	})
}

// GetRefundAvailability reports whether a refund is currently claimable
func (h *ReportHandler) GetRefundAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := reportIDFromPath(w, r)
	if !ok {
		return
	}

	available, err := h.svc.IsRefundAvailable(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"report_id": id,
		"available": available,
	})
}

// GetStats returns aggregate report counts
func (h *ReportHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// GetMyReports returns the report ids assigned to the calling investigator
func (h *ReportHandler) GetMyReports(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}

	ids, err := h.svc.GetInvestigatorReports(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"investigator": caller,
		"report_ids":   ids,
	})
}
