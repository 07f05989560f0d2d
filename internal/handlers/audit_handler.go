package handlers

import (
	"net/http"
	"strconv"

	"github.com/DamionHane/FHEReporting/internal/workflow"
)

// AuditHandler handles audit log requests
type AuditHandler struct {
	svc *workflow.Service
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(svc *workflow.Service) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// ListAuditLogs lists workflow events with pagination, oldest first.
// Authority only; the service rejects every other principal.
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}

	page := 1
	limit := 50

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	offset := (page - 1) * limit

	logs, err := h.svc.AuditTrail(r.Context(), caller, limit, offset)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"page":  page,
		"limit": limit,
	})
}
