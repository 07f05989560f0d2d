package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/DamionHane/FHEReporting/internal/middleware"
	"github.com/DamionHane/FHEReporting/internal/workflow"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := JSONResponse(w, payload); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps workflow failure kinds onto HTTP status codes.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrUnauthorized):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, workflow.ErrInvalidProof):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, workflow.ErrReportNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrInvalidState):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrDeadlineNotReached):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// callerAddress extracts the authenticated principal or fails the request.
func callerAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	address, ok := middleware.GetAddress(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return "", false
	}
	return address, true
}

// actorForRequest identifies the caller of an open endpoint for the audit
// trail. Preconditions inside the service gate the effect, so an anonymous
// caller is recorded by network address rather than rejected.
func actorForRequest(r *http.Request) string {
	if address, ok := middleware.GetAddress(r); ok {
		return address
	}
	return r.RemoteAddr
}

// reportIDFromPath parses the {id} path value as a report id.
func reportIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReportID)
		return 0, false
	}
	return id, true
}
