package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/DamionHane/FHEReporting/internal/workflow"
)

// RosterHandler handles investigator roster and authority requests
type RosterHandler struct {
	svc *workflow.Service
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(svc *workflow.Service) *RosterHandler {
	return &RosterHandler{svc: svc}
}

// AddressRequest is the payload for roster mutations.
type AddressRequest struct {
	Address string `json:"address"`
}

// AddInvestigator adds a principal to the investigator roster
func (h *RosterHandler) AddInvestigator(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}

	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.svc.AddInvestigator(r.Context(), caller, req.Address); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"address": req.Address})
}

// RemoveInvestigator removes a principal from the investigator roster
func (h *RosterHandler) RemoveInvestigator(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}

	address := r.PathValue("address")
	if err := h.svc.RemoveInvestigator(r.Context(), caller, address); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"address": address})
}

// CheckInvestigator reports whether a principal is on the roster
func (h *RosterHandler) CheckInvestigator(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	authorized, err := h.svc.IsAuthorizedInvestigator(r.Context(), address)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"address":    address,
		"authorized": authorized,
	})
}

// TransferAuthority hands the authority role to a new principal
func (h *RosterHandler) TransferAuthority(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}

	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.svc.TransferAuthority(r.Context(), caller, req.Address); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"authority": req.Address})
}
