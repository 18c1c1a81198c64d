package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"esgledger/auth"
	"esgledger/ledger"
)

// PendingRecords lists submissions awaiting review, merged with ledger data.
func (s *Server) PendingRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.pipelines.PendingRecords(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// AllRecords lists the most recent submissions regardless of status.
func (s *Server) AllRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.pipelines.AllRecords(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

type verifyRequest struct {
	Approved bool   `json:"approved"`
	Comments string `json:"comments"`
}

// VerifyRecord runs the verification pipeline for the authenticated verifier.
func (s *Server) VerifyRecord(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, ledger.Errorf(ledger.KindValidation, "invalid payload"))
		return
	}
	result, err := s.pipelines.VerifyRecord(r.Context(), claims.ParticipantID, chi.URLParam(r, "recordId"), req.Approved, req.Comments)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// VerificationStats reports mirror counts and ledger totals.
func (s *Server) VerificationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.pipelines.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}
