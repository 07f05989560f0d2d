package handlers

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/DamionHane/FHEReporting/internal/models"
	"github.com/DamionHane/FHEReporting/internal/workflow"
)

// OracleHandler receives decryption callbacks from the oracle worker
type OracleHandler struct {
	svc *workflow.Service
}

// NewOracleHandler creates a new oracle handler
func NewOracleHandler(svc *workflow.Service) *OracleHandler {
	return &OracleHandler{svc: svc}
}

// CallbackRequest is the payload posted by the oracle after decryption.
// Proof is the hex-encoded signature over the canonical request context.
type CallbackRequest struct {
	RequestID string `json:"request_id"`
	Category  uint8  `json:"category"`
	Severity  uint8  `json:"severity"`
	Timestamp int64  `json:"timestamp"`
	Proof     string `json:"proof"`
}

// Callback applies a decryption result to the owning report
func (h *OracleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	proof, err := hex.DecodeString(req.Proof)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid proof encoding")
		return
	}

	values := models.ClearValues{
		Category:  req.Category,
		Severity:  req.Severity,
		Timestamp: req.Timestamp,
	}

	if err := h.svc.HandleCallback(r.Context(), req.RequestID, values, proof); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"request_id": req.RequestID})
}
