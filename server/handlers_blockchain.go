package server

import (
	"net/http"

	"esgledger/auth"
)

// RegisterCompany runs the on-ledger registration pipeline for the caller.
func (s *Server) RegisterCompany(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	result, err := s.pipelines.RegisterCompany(r.Context(), claims.ParticipantID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CompanyInfo returns the caller's on-ledger registration.
func (s *Server) CompanyInfo(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	company, err := s.pipelines.CompanyInfo(r.Context(), claims.ParticipantID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// LedgerStats reports ledger-wide totals alongside the contract address.
func (s *Server) LedgerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.pipelines.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":           stats,
		"contractAddress": s.contractAddr,
	})
}
